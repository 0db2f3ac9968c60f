package vaultsrc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal"
	"github.com/hairyhenderson/go-secretfs/vaultsrc/vaultauth"
	"github.com/hashicorp/vault/api"
)

type vaultSource struct {
	config  *api.Config
	auth    api.AuthMethod
	headers http.Header
	base    *url.URL
	secPath string
	token   string
	timeout time.Duration
}

// New creates a secret source for the Vault secret (or secret path prefix)
// referenced by u.
func New(u *url.URL) (secretfs.Source, error) {
	if u == nil {
		return nil, fmt.Errorf("url must not be nil")
	}

	secPath := strings.TrimPrefix(u.Path, "/")
	secPath = strings.TrimPrefix(secPath, "v1/")

	if strings.Trim(secPath, "/") == "" {
		return nil, fmt.Errorf("invalid url %q: a secret path is required", u.Redacted())
	}

	config, err := vaultConfig(u)
	if err != nil {
		return nil, fmt.Errorf("vault configuration error: %w", err)
	}

	return &vaultSource{
		config:  config,
		auth:    vaultauth.EnvAuthMethod(),
		headers: http.Header{},
		base:    u,
		secPath: secPath,
	}, nil
}

func vaultConfig(u *url.URL) (*api.Config, error) {
	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, config.Error
	}

	// only override $VAULT_ADDR if the URL has a host part
	if addr := internal.ServerAddress(u, "vault", "https"); addr != "" {
		config.Address = addr
	}

	return config, nil
}

// Source is used to register this source with a secretfs.SourceMux
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, "vault", "vault+http", "vault+https")

func (s *vaultSource) URL() string {
	return s.base.Redacted()
}

func (s *vaultSource) WithHeader(headers http.Header) secretfs.Source {
	src := *s
	src.headers = s.headers.Clone()

	for k, vs := range headers {
		// Vault reads the token from its own header
		if http.CanonicalHeaderKey(k) == "Authorization" {
			continue
		}

		for _, v := range vs {
			src.headers.Add(k, v)
		}
	}

	return &src
}

// WithHTTPClient applies the client's timeout. The client itself isn't used,
// so that Vault's TLS settings still apply.
func (s *vaultSource) WithHTTPClient(client *http.Client) secretfs.Source {
	if client == nil {
		return s
	}

	src := *s
	src.timeout = client.Timeout

	return &src
}

func (s *vaultSource) WithToken(token string) secretfs.Source {
	src := *s
	src.token = token

	return &src
}

func (s *vaultSource) WithAuthMethod(auth api.AuthMethod) secretfs.Source {
	src := *s
	src.auth = auth

	return &src
}

func (s *vaultSource) client(ctx context.Context) (*api.Client, func(), error) {
	c, err := api.NewClient(s.config)
	if err != nil {
		return nil, nil, fmt.Errorf("vault client creation failed: %w", err)
	}

	c.SetHeaders(s.headers.Clone())

	if s.timeout > 0 {
		c.SetClientTimeout(s.timeout)
	}

	if s.token != "" {
		c.SetToken(s.token)

		return c, func() { c.ClearToken() }, nil
	}

	if s.auth == nil {
		return nil, nil, fmt.Errorf("missing vault auth method")
	}

	if _, err := c.Auth().Login(ctx, s.auth); err != nil {
		return nil, nil, fmt.Errorf("vault login failure: %w", err)
	}

	return c, func() { vaultauth.Logout(context.WithoutCancel(ctx), s.auth, c) }, nil
}

func (s *vaultSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	c, logout, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	defer logout()

	if !strings.HasSuffix(s.secPath, "/") {
		secrets, err := s.read(ctx, c, s.secPath)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return secrets, err
		}
	}

	return s.list(ctx, c, strings.TrimSuffix(s.secPath, "/"))
}

func (s *vaultSource) read(ctx context.Context, c *api.Client, p string) ([]secretfs.Secret, error) {
	secret, err := c.Logical().ReadWithContext(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, vaultFSError(err))
	}

	if secret == nil || secret.Data == nil {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}

	return s.fields(p, kvData(secret.Data))
}

func (s *vaultSource) list(ctx context.Context, c *api.Client, p string) ([]secretfs.Secret, error) {
	secret, err := c.Logical().ListWithContext(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", p, vaultFSError(err))
	}

	if secret == nil || secret.Data == nil {
		return nil, &fs.PathError{Op: "list", Path: p, Err: fs.ErrNotExist}
	}

	keys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("keys returned in unexpected format from vault LIST response: %#v", secret.Data["keys"])
	}

	listPath := p

	// KV v2 lists under metadata/ but reads under data/
	if before, after, found := strings.Cut(p, "/metadata"); found && (after == "" || after[0] == '/') {
		p = before + "/data" + after
	}

	secrets := []secretfs.Secret{}

	for _, k := range keys {
		key, ok := k.(string)
		if !ok || strings.HasSuffix(key, "/") {
			continue
		}

		fetched, err := s.read(ctx, c, path.Join(p, key))
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", listPath, err)
		}

		secrets = append(secrets, fetched...)
	}

	return secrets, nil
}

// kvData unwraps the data of a K/V Version 2 secret
func kvData(data map[string]interface{}) map[string]interface{} {
	inner, ok := data["data"].(map[string]interface{})
	if !ok {
		return data
	}

	if _, ok := data["metadata"]; !ok {
		return data
	}

	return inner
}

// fields converts the fields of a secret to secrets, sorted by name
func (s *vaultSource) fields(p string, data map[string]interface{}) ([]secretfs.Secret, error) {
	names := make([]string, 0, len(data))
	for k := range data {
		names = append(names, k)
	}

	sort.Strings(names)

	secrets := make([]secretfs.Secret, 0, len(names))

	for _, name := range names {
		var b []byte

		switch v := data[name].(type) {
		case string:
			b = []byte(v)
		default:
			var err error

			b, err = json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("unexpected failure to marshal field %q of %s: %w", name, p, err)
			}
		}

		secrets = append(secrets, secretfs.Secret{
			Name:   name,
			Source: s.URL(),
			Value:  b,
		})
	}

	return secrets, nil
}

// vaultFSError converts from a vault API error to an appropriate filesystem
// error, preventing Vault API types from leaking
func vaultFSError(err error) error {
	rerr := &api.ResponseError{}
	if !errors.As(err, &rerr) {
		return err
	}

	errDetails := strings.Join(rerr.Errors, ", ")
	if errDetails != "" {
		errDetails = ", details: " + errDetails
	}

	var fsErr error

	switch rerr.StatusCode {
	case http.StatusNotFound:
		fsErr = fs.ErrNotExist
	case http.StatusUnauthorized, http.StatusForbidden:
		fsErr = fs.ErrPermission
	default:
		fsErr = fs.ErrInvalid
	}

	return fmt.Errorf("%s %s - %d%s: %w",
		rerr.HTTPMethod,
		rerr.URL,
		rerr.StatusCode,
		errDetails,
		fsErr,
	)
}
