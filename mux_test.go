package secretfs

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/hairyhenderson/go-secretfs/internal/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceMux(t *testing.T) {
	src := SourceFunc(func(_ context.Context) ([]Secret, error) {
		return []Secret{{Name: "a", Value: []byte("1")}}, nil
	})
	fn := func(_ *url.URL) (Source, error) { return src, nil }
	sp := SourceProviderFunc(fn, "foo", "bar")
	sp2 := SourceProviderFunc(fn, "baz", "qux")

	m := NewMux()

	_, err := m.Lookup(":bogus/url")
	require.Error(t, err)

	_, err = m.Lookup("foo:///")
	require.Error(t, err)

	m.Add(sp)
	m.Add(sp2)

	actual, err := m.Lookup("foo:///")
	require.NoError(t, err)

	secrets, err := actual.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", secrets[0].Name)

	_, err = m.Lookup("qux:///")
	require.NoError(t, err)

	_, err = m.Lookup("file:///")
	require.Error(t, err)

	assert.True(t, m.Supports(tests.MustURL("bar://host/path")))
	assert.False(t, m.Supports(tests.MustURL("https://example.com")))

	// test out SourceProvider functionality
	assert.Equal(t, []string{"bar", "baz", "foo", "qux"}, m.Schemes())
	_, err = m.New(tests.MustURL("bar:///"))
	require.NoError(t, err)
}

func TestWrappedSourceProvider(t *testing.T) {
	src := SourceFunc(func(_ context.Context) ([]Secret, error) { return nil, nil })

	sp := WrappedSourceProvider(src, "static")
	assert.Equal(t, []string{"static"}, sp.Schemes())

	actual, err := sp.New(tests.MustURL("static:///anything"))
	require.NoError(t, err)
	assert.NotNil(t, actual)
}

type headerSource struct {
	SourceFunc
	hdr   http.Header
	token string
}

func (s headerSource) WithHeader(h http.Header) Source {
	s.hdr = h

	return s
}

func (s headerSource) WithToken(token string) Source {
	s.token = token

	return s
}

func TestExtensions(t *testing.T) {
	var src Source = headerSource{}

	src = WithHeaderSource(http.Header{"X-Foo": {"bar"}}, src)
	src = WithTokenSource("tok", src)

	hs, ok := src.(headerSource)
	require.True(t, ok)
	assert.Equal(t, "bar", hs.hdr.Get("X-Foo"))
	assert.Equal(t, "tok", hs.token)

	// unsupported extensions are a no-op
	plain := SourceFunc(func(_ context.Context) ([]Secret, error) { return nil, nil })
	assert.NotNil(t, WithHTTPClientSource(http.DefaultClient, plain))
	assert.NotNil(t, WithHeaderSource(nil, plain))
}
