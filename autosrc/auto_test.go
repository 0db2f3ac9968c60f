package autosrc

import (
	"context"
	"testing"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tfs "gotest.tools/v3/fs"
)

func TestSchemes(t *testing.T) {
	assert.Equal(t, []string{
		"aws+sm", "aws+smp", "azblob",
		"consul", "consul+http", "consul+https",
		"file", "gcp+sm",
		"git", "git+file", "git+http", "git+https", "git+ssh",
		"gs", "http", "https", "s3", "sops",
		"vault", "vault+http", "vault+https",
	}, Source.Schemes())
}

func TestMux(t *testing.T) {
	mux := Mux()
	mux.Add(secretfs.WrappedSourceProvider(secretfs.SourceFunc(
		func(context.Context) ([]secretfs.Secret, error) { return nil, nil },
	), "mock"))

	assert.Contains(t, mux.Schemes(), "mock")
	assert.NotContains(t, Mux().Schemes(), "mock")
	assert.NotContains(t, Source.Schemes(), "mock")
}

func TestLookup(t *testing.T) {
	dir := tfs.NewDir(t, "secretfs-autosrc", tfs.WithFile("api_key", "abc123"))

	src, err := Lookup("file://" + dir.Path() + "/")
	require.NoError(t, err)

	secrets, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, secrets, 1)
	assert.Equal(t, "api_key", secrets[0].Name)

	_, err = Lookup("ftp://example.com/secrets")
	require.Error(t, err)
}
