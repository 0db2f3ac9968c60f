package consulsrc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/hashicorp/consul/api"
)

const testToken = "consul-acl-token"

// fakeConsulServer creates a fake Consul server with a predefined set of keys.
// Requests must carry testToken, either as an X-Consul-Token header or as a
// bearer token.
func fakeConsulServer(t *testing.T) *httptest.Server {
	t.Helper()

	files := map[string]string{
		"app/db_password":    "hunter2",
		"app/api_key":        "abc123",
		"app/":               "",
		"app/nested/":        "",
		"app/nested/ignored": "deep",
		"other/value":        "x",
	}

	srv := httptest.NewServer(fakeConsulHandler(t, files))
	t.Cleanup(srv.Close)

	return srv
}

func fakeConsulHandler(t *testing.T, files map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()

		token := r.Header.Get("X-Consul-Token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}

		if token != testToken {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("Permission denied"))

			return
		}

		key := strings.TrimPrefix(r.URL.Path, "/v1/kv/")

		var pairs []*api.KVPair

		if r.URL.Query().Has("recurse") {
			for k, v := range files {
				if strings.HasPrefix(k, key) {
					pairs = append(pairs, &api.KVPair{Key: k, Value: []byte(v)})
				}
			}

			sort.Slice(pairs, func(i, j int) bool {
				return pairs[i].Key < pairs[j].Key
			})
		} else if v, ok := files[key]; ok {
			pairs = []*api.KVPair{{Key: key, Value: []byte(v)}}
		}

		if len(pairs) == 0 {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pairs)
	}
}
