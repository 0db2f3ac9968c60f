package sopssrc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/getsops/sops/v3/decrypt"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
)

type sopsSource struct {
	base    *url.URL
	decrypt func(path, format string) ([]byte, error)
	path    string
	format  secretfs.Format
}

// New creates a secret source for the SOPS-encrypted document at u.
func New(u *url.URL) (secretfs.Source, error) {
	p := u.Path
	if p == "" {
		p = u.Opaque
	}

	if p == "" || strings.HasSuffix(p, "/") {
		return nil, fmt.Errorf("invalid url %q: a file path is required", u.Redacted())
	}

	format := secretfs.Format(u.Query().Get("format"))
	if format == "" {
		format = secretfs.FormatOf("", p)
	}

	switch format {
	case secretfs.FormatJSON, secretfs.FormatYAML, secretfs.FormatDotenv:
	default:
		return nil, fmt.Errorf("could not determine sops format; got: %s", format)
	}

	return &sopsSource{
		base:    u,
		decrypt: decrypt.File,
		path:    p,
		format:  format,
	}, nil
}

// Source is used to register this source with a [secretfs.SourceMux]
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, "sops")

func (s *sopsSource) URL() string {
	return s.base.Redacted()
}

// Fetch decrypts the document. Decryption isn't cancellable, so ctx is only
// checked before starting.
func (s *sopsSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := s.decrypt(s.path, string(s.format))
	if err != nil {
		return nil, fmt.Errorf("sops decrypt %s: %w", s.path, err)
	}

	defer memlock.Wipe(content)

	secrets, err := secretfs.DecodeSecrets(content, s.format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	for i := range secrets {
		secrets[i].Source = s.URL()
	}

	return secrets, nil
}
