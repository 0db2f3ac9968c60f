package vaultauth

import (
	"context"
	"fmt"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hashicorp/vault/api"
)

// withAuthMethoder is a secretfs.Source that can be configured with a custom
// AuthMethod
type withAuthMethoder interface {
	WithAuthMethod(auth api.AuthMethod) secretfs.Source
}

// WithAuthMethod configures the given source to authenticate with auth, if the
// source supports it.
//
// Note that this is not required if $VAULT_TOKEN is set.
func WithAuthMethod(auth api.AuthMethod, src secretfs.Source) secretfs.Source {
	if asrc, ok := src.(withAuthMethoder); ok {
		return asrc.WithAuthMethod(auth)
	}

	return src
}

// CompositeAuthMethod returns an AuthMethod that will try each of the given
// methods in order, until one succeeds.
func CompositeAuthMethod(methods ...api.AuthMethod) api.AuthMethod {
	return &compositeAuthMethod{methods: methods}
}

type compositeAuthMethod struct {
	chosen  api.AuthMethod
	methods []api.AuthMethod
}

func (m *compositeAuthMethod) Login(ctx context.Context, client *api.Client) (secret *api.Secret, err error) {
	if m.chosen != nil {
		return m.chosen.Login(ctx, client)
	}

	for _, auth := range m.methods {
		if auth == nil {
			continue
		}

		secret, err = auth.Login(ctx, client)
		if err == nil {
			m.chosen = auth

			return secret, nil
		}
	}

	if err == nil {
		err = fmt.Errorf("no auth methods configured")
	}

	return nil, fmt.Errorf("unable to authenticate with vault by any configured method. Last error was: %w", err)
}

// Logout revokes the token acquired by the chosen method, unless that method
// manages its own tokens.
func (m *compositeAuthMethod) Logout(ctx context.Context, client *api.Client) {
	if m.chosen == nil {
		return
	}

	Logout(ctx, m.chosen, client)
}

// Logout ends the session established by auth. Auth methods that manage their
// own tokens (like the token method) implement a Logout method which is
// called instead, otherwise the client's token is revoked.
func Logout(ctx context.Context, auth api.AuthMethod, client *api.Client) {
	if lauth, ok := auth.(interface {
		Logout(ctx context.Context, client *api.Client)
	}); ok {
		lauth.Logout(ctx, client)

		return
	}

	_, _ = client.Logical().WriteWithContext(ctx, "auth/token/revoke-self", nil)
	client.ClearToken()
}
