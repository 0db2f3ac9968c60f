package vaultauth

import (
	"context"
	"errors"
	"testing"

	"github.com/hairyhenderson/go-secretfs/internal/tests/fakevault"
	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failAuth struct{ calls int }

func (f *failAuth) Login(context.Context, *api.Client) (*api.Secret, error) {
	f.calls++

	return nil, errors.New("nope")
}

func TestCompositeAuthMethod(t *testing.T) {
	ctx := context.Background()
	srv := fakevault.NewServer(t)
	client := srv.Client(t)

	fail := &failAuth{}
	m := CompositeAuthMethod(nil, fail, NewTokenAuth("tok"))

	s, err := m.Login(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "tok", s.Auth.ClientToken)
	assert.Equal(t, 1, fail.calls)

	// the chosen method is reused
	_, err = m.Login(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, 1, fail.calls)

	client.SetToken("tok")
	m.(*compositeAuthMethod).Logout(ctx, client)
	assert.Empty(t, client.Token())

	// the token method doesn't revoke
	assert.Equal(t, int32(0), srv.Revoked.Load())

	_, err = CompositeAuthMethod(fail).Login(ctx, client)
	require.ErrorContains(t, err, "nope")

	_, err = CompositeAuthMethod().Login(ctx, client)
	require.ErrorContains(t, err, "no auth methods configured")
}

func TestLogout_Revokes(t *testing.T) {
	ctx := context.Background()
	srv := fakevault.NewServer(t)
	client := srv.Client(t)
	client.SetToken(fakevault.Token)

	Logout(ctx, &failAuth{}, client)
	assert.Equal(t, int32(1), srv.Revoked.Load())
	assert.Empty(t, client.Token())
}
