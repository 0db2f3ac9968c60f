package vaultauth

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/hashicorp/vault/api"
)

// NewTokenAuth authenticates with the given token, or if none is provided,
// attempts to read from the $VAULT_TOKEN environment variable, or the
// $HOME/.vault-token file.
//
// When using this method, the token is not managed by vaultsrc, and will not
// be revoked after secrets are fetched. It is the responsibility of the caller
// to manage the token.
//
// See also https://www.vaultproject.io/docs/auth/token
func NewTokenAuth(token string) api.AuthMethod {
	return &tokenAuthMethod{token: token, fsys: os.DirFS("/")}
}

type tokenAuthMethod struct {
	fsys  fs.FS
	token string
}

func (m *tokenAuthMethod) Login(_ context.Context, _ *api.Client) (*api.Secret, error) {
	if m.token != "" {
		return tokenSecret(m.token), nil
	}

	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		return tokenSecret(token), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	p := strings.TrimPrefix(path.Join(homeDir, ".vault-token"), "/")

	b, err := fs.ReadFile(m.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("readFile %q: %w", p, err)
	}

	return tokenSecret(strings.TrimSpace(string(b))), nil
}

func tokenSecret(token string) *api.Secret {
	return &api.Secret{Auth: &api.SecretAuth{ClientToken: token}}
}

// Logout only clears the client's token, since the token isn't managed here.
func (m *tokenAuthMethod) Logout(_ context.Context, client *api.Client) {
	client.ClearToken()
}
