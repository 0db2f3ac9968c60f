package awssmsrc

import (
	"context"
	"io/fs"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecrets() map[string]*testVal {
	return map[string]*testVal{
		"/prod/app/db-password": vs("hunter2"),
		"/prod/app/api-key":     vs("abc123"),
		"/prod/app/cert.der":    vb([]byte{0xde, 0xad, 0xbe, 0xef}),
		"/prod/app/nested/deep": vs("skipped"),
		"/prod/other":           vs("other"),
		"/staging/app/api-key":  vs("staging"),
		"prod/doc":              vs(`{"user": "admin", "port": 5432}`),
		"prod/doc.yaml":         vs("user: admin\nport: 5432\n"),
		"prod/bad":              vs(`"just a string"`),
	}
}

func fetch(t *testing.T, rawURL string, client SecretsManagerClient) ([]secretfs.Secret, error) {
	t.Helper()

	src, err := New(tests.MustURL(rawURL))
	require.NoError(t, err)

	src = WithSMClientSource(client, src)

	return src.Fetch(context.Background())
}

func TestNew(t *testing.T) {
	_, err := New(tests.MustURL("http://example.com/foo"))
	require.Error(t, err)

	_, err = New(tests.MustURL("aws+sm:"))
	require.Error(t, err)

	_, err = New(tests.MustURL("aws+sm:///"))
	require.Error(t, err)

	_, err = New(tests.MustURL("aws+sm:foo?format=toml"))
	require.Error(t, err)

	src, err := New(tests.MustURL("aws+sm:foo/bar?format=yaml"))
	require.NoError(t, err)
	assert.Equal(t, "foo/bar", src.(*awssmSource).name)
	assert.Equal(t, secretfs.FormatYAML, src.(*awssmSource).format)

	src, err = New(tests.MustURL("aws+sm:///foo/bar/"))
	require.NoError(t, err)
	assert.Equal(t, "/foo/bar/", src.(*awssmSource).name)
}

func TestFetch_Prefix(t *testing.T) {
	client := clientWithValues(t, testSecrets())

	secrets, err := fetch(t, "aws+sm:///prod/app/", client)
	require.NoError(t, err)

	require.Len(t, secrets, 3)
	assert.Equal(t, "api-key", secrets[0].Name)
	assert.Equal(t, "abc123", string(secrets[0].Value))
	assert.Equal(t, "cert.der", secrets[1].Name)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, secrets[1].Value)
	assert.Equal(t, "db-password", secrets[2].Name)
	assert.Equal(t, "hunter2", string(secrets[2].Value))
	assert.Equal(t, "aws+sm:///prod/app/", secrets[0].Source)

	// prefix with no secrets under it
	secrets, err = fetch(t, "aws+sm:///nothing/", client)
	require.NoError(t, err)
	assert.Empty(t, secrets)
}

func TestFetch_Single(t *testing.T) {
	client := clientWithValues(t, testSecrets())

	secrets, err := fetch(t, "aws+sm:///prod/other", client)
	require.NoError(t, err)
	assert.Equal(t, []secretfs.Secret{
		{Name: "other", Source: "aws+sm:///prod/other", Value: []byte("other")},
	}, secrets)

	secrets, err = fetch(t, "aws+sm:prod/doc?format=json", client)
	require.NoError(t, err)
	require.Len(t, secrets, 2)
	assert.Equal(t, "user", secrets[0].Name)
	assert.Equal(t, "admin", string(secrets[0].Value))
	assert.Equal(t, "port", secrets[1].Name)
	assert.Equal(t, "5432", string(secrets[1].Value))

	secrets, err = fetch(t, "aws+sm:prod/doc.yaml?format=yaml", client)
	require.NoError(t, err)
	require.Len(t, secrets, 2)
	assert.Equal(t, "admin", string(secrets[0].Value))

	_, err = fetch(t, "aws+sm:prod/bad?format=json", client)
	require.ErrorIs(t, err, secretfs.ErrUnsupportedDocument)
}

func TestFetch_Errors(t *testing.T) {
	client := clientWithValues(t, testSecrets())

	_, err := fetch(t, "aws+sm:///prod/missing", client)
	require.ErrorIs(t, err, fs.ErrNotExist)

	client = clientWithValues(t, testSecrets(),
		&types.DecryptionFailure{Message: aws.String("kms says no")})

	_, err = fetch(t, "aws+sm:///prod/other", client)
	require.ErrorIs(t, err, fs.ErrPermission)

	_, err = fetch(t, "aws+sm:///prod/app/", client)
	require.ErrorIs(t, err, fs.ErrPermission)

	client = clientWithValues(t, testSecrets(), nil,
		&types.InvalidParameterException{Message: aws.String("bad filter")})

	_, err = fetch(t, "aws+sm:///prod/app/", client)
	require.ErrorIs(t, err, fs.ErrInvalid)
	assert.Equal(t, 0, client.gets)

	client = clientWithValues(t, testSecrets(),
		&types.InternalServiceError{Message: aws.String("oops")})

	_, err = fetch(t, "aws+sm:///prod/other", client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")
}

func TestWithHTTPClient(t *testing.T) {
	src, err := New(tests.MustURL("aws+sm:///prod/app/"))
	require.NoError(t, err)

	client := &http.Client{}
	src = secretfs.WithHTTPClientSource(client, src)
	assert.Same(t, client, src.(*awssmSource).httpclient)

	assert.Same(t, src, secretfs.WithHTTPClientSource(nil, src))
	assert.Same(t, src, WithSMClientSource(nil, src))
}
