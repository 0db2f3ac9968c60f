// Package fakevault provides a minimal in-process Vault server for tests.
package fakevault

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/vault/api"
)

// Token is the only token the fake server accepts for reads.
const Token = "fake-vault-token"

// Server is a fake Vault server.
type Server struct {
	*httptest.Server

	// Revoked counts calls to auth/token/revoke-self
	Revoked atomic.Int32
	// Reads counts secret reads and lists
	Reads atomic.Int32
}

//nolint:gochecknoglobals
var secrets = map[string]any{
	"/v1/secret/foo":    map[string]any{"value": "foo", "port": 5432},
	"/v1/secret/bar":    map[string]any{"password": "hunter2"},
	"/v1/kv/data/app":   map[string]any{"data": map[string]any{"user": "admin", "pass": "s3cr3t"}, "metadata": map[string]any{"version": 3}},
	"/v1/kv/data/app2":  map[string]any{"data": map[string]any{"token": "t2"}, "metadata": map[string]any{"version": 1}},
	"/v1/secret/":       map[string]any{"keys": []string{"foo", "bar", "sub/"}},
	"/v1/kv/metadata/":  map[string]any{"keys": []string{"app", "app2"}},
	"/v1/secret/empty/": map[string]any{"keys": []string{}},
}

// NewServer starts a fake Vault server, which is closed when the test ends.
// Logging in with approle (role "role", secret "secret") or userpass (user
// "user", password "password") yields Token.
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)

	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPut || r.Method == http.MethodPost:
		s.handleWrite(w, r)

		return
	case r.Header.Get("X-Vault-Token") != Token:
		writeError(w, http.StatusForbidden, "permission denied")

		return
	}

	p := r.URL.Path
	if r.Method == "LIST" || r.URL.Query().Get("list") == "true" {
		p = strings.TrimSuffix(p, "/") + "/"
	}

	data, ok := secrets[p]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[]}`))

		return
	}

	s.Reads.Add(1)

	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Path {
	case "/v1/auth/approle/login":
		if body["role_id"] != "role" || body["secret_id"] != "secret" {
			writeError(w, http.StatusBadRequest, "invalid role or secret ID")

			return
		}
	case "/v1/auth/userpass/login/user":
		if body["password"] != "password" {
			writeError(w, http.StatusBadRequest, "invalid username or password")

			return
		}
	case "/v1/auth/token/revoke-self":
		s.Revoked.Add(1)
		w.WriteHeader(http.StatusNoContent)

		return
	default:
		w.WriteHeader(http.StatusNotFound)

		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"auth": map[string]any{"client_token": Token},
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": []string{msg}})
}

// Client returns a Vault client for the server, with no token set.
func (s *Server) Client(t *testing.T) *api.Client {
	t.Helper()

	c, err := api.NewClient(&api.Config{Address: s.URL})
	if err != nil {
		t.Fatal(err)
	}

	c.ClearToken()

	return c
}
