package consulsrc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal"
	"github.com/hashicorp/consul/api"
)

type consulSource struct {
	base   *url.URL
	config *api.Config
	header http.Header
	token  string
}

// New creates a secret source for the Consul KV key, or key prefix, at u.
func New(u *url.URL) (secretfs.Source, error) {
	if u == nil {
		return nil, errors.New("url must not be nil")
	}

	if strings.Trim(u.Path, "/") == "" {
		return nil, fmt.Errorf("invalid url %q: a key or key prefix is required", u.Redacted())
	}

	return &consulSource{base: u}, nil
}

// Source is used to register this source with a [secretfs.SourceMux]
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, "consul", "consul+http", "consul+https")

func (s *consulSource) URL() string {
	return s.base.Redacted()
}

func (s *consulSource) WithHeader(header http.Header) secretfs.Source {
	if header == nil {
		return s
	}

	src := *s
	src.header = header.Clone()

	return &src
}

func (s *consulSource) WithToken(token string) secretfs.Source {
	src := *s
	src.token = token

	return &src
}

// WithConfig sets the configuration for the Consul client. This can be used
// to set a custom HTTP client, TLS configuration, etc... The address of the
// Consul server is still taken from the URL, when it has a host part.
func (s *consulSource) WithConfig(config *api.Config) secretfs.Source {
	if config == nil {
		return s
	}

	src := *s
	src.config = config

	return &src
}

type withConfiger interface {
	WithConfig(config *api.Config) secretfs.Source
}

// WithConfigSource configures the Consul client used by src, if the source
// supports it (i.e. has a WithConfig method).
func WithConfigSource(config *api.Config, src secretfs.Source) secretfs.Source {
	if csrc, ok := src.(withConfiger); ok {
		return csrc.WithConfig(config)
	}

	return src
}

func (s *consulSource) client() (*api.Client, error) {
	config := api.DefaultConfig()
	if s.config != nil {
		c := *s.config
		config = &c
	}

	if addr := internal.ServerAddress(s.base, "consul", "http"); addr != "" {
		config.Address = addr
	}

	if s.token != "" {
		config.Token = s.token
	}

	c, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("consul client creation failed: %w", err)
	}

	if s.header != nil {
		c.SetHeaders(s.header)
	}

	return c, nil
}

func (s *consulSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	c, err := s.client()
	if err != nil {
		return nil, err
	}

	key := strings.TrimPrefix(s.base.Path, "/")
	opts := (&api.QueryOptions{}).WithContext(ctx)

	if strings.HasSuffix(key, "/") {
		return s.list(c.KV(), key, opts)
	}

	pair, _, err := c.KV().Get(key, opts)
	if err != nil {
		return nil, fmt.Errorf("kv.Get: %w", err)
	}

	if pair == nil {
		return nil, &fs.PathError{Op: "get", Path: key, Err: fs.ErrNotExist}
	}

	return []secretfs.Secret{{Name: path.Base(key), Source: s.URL(), Value: pair.Value}}, nil
}

func (s *consulSource) list(kv *api.KV, prefix string, opts *api.QueryOptions) ([]secretfs.Secret, error) {
	pairs, _, err := kv.List(prefix, opts)
	if err != nil {
		return nil, fmt.Errorf("kv.List: %w", err)
	}

	secrets := make([]secretfs.Secret, 0, len(pairs))

	for _, pair := range pairs {
		name := strings.TrimPrefix(pair.Key, prefix)

		// skip the prefix itself, "folders", and anything nested
		if name == "" || strings.Contains(name, "/") {
			continue
		}

		secrets = append(secrets, secretfs.Secret{Name: name, Source: s.URL(), Value: pair.Value})
	}

	return secrets, nil
}
