// Package filesrc provides a secret source for local files, for file:// URLs.
//
// A URL naming a directory (with a trailing "/") exposes every regular file
// directly in that directory as a secret named by the file's name. Hidden
// files are skipped, which conveniently ignores the "..data" links in
// Kubernetes secret volumes. Otherwise the URL names a secrets document (JSON,
// YAML or dotenv), whose format is taken from the "format" query parameter
// or the file's extension.
package filesrc

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
)

type fileSource struct {
	base   *url.URL
	root   fs.FS
	name   string
	format secretfs.Format
}

// New returns a secret source for the file or directory at u.
func New(u *url.URL) (secretfs.Source, error) {
	p := pathForDirFS(u)
	if p == "" {
		return nil, fmt.Errorf("invalid url %q: a file or directory path is required", u.Redacted())
	}

	format := secretfs.Format(u.Query().Get("format"))
	switch format {
	case "", secretfs.FormatJSON, secretfs.FormatYAML, secretfs.FormatDotenv:
	default:
		return nil, fmt.Errorf("invalid url %q: unsupported format %q", u.Redacted(), format)
	}

	if strings.HasSuffix(p, "/") {
		return &fileSource{base: u, root: os.DirFS(p), name: "."}, nil
	}

	if format == "" {
		format = secretfs.FormatOf("", p)
	}

	return &fileSource{
		base:   u,
		root:   os.DirFS(path.Dir(p)),
		name:   path.Base(p),
		format: format,
	}, nil
}

// return the correct filesystem path for the given URL. Supports Windows paths
// and UNCs as well
func pathForDirFS(u *url.URL) string {
	if u.Path == "" {
		return ""
	}

	rootPath := u.Path
	if len(rootPath) >= 3 {
		if rootPath[0] == '/' && rootPath[2] == ':' {
			rootPath = rootPath[1:]
		}
	}

	// a file:// URL with a host part should be interpreted as a UNC
	switch u.Host {
	case ".":
		rootPath = "//./" + rootPath
	case "":
		// nothin'
	default:
		rootPath = "//" + u.Host + rootPath
	}

	return rootPath
}

// Source is used to register this source with a [secretfs.SourceMux]
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, "file")

func (s *fileSource) URL() string {
	return s.base.Redacted()
}

func (s *fileSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.name == "." {
		return s.fetchDir(ctx)
	}

	data, err := fs.ReadFile(s.root, s.name)
	if err != nil {
		return nil, err
	}

	defer memlock.Wipe(data)

	secrets, err := secretfs.DecodeSecrets(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	for i := range secrets {
		secrets[i].Source = s.URL()
	}

	return secrets, nil
}

func (s *fileSource) fetchDir(ctx context.Context) ([]secretfs.Secret, error) {
	des, err := fs.ReadDir(s.root, ".")
	if err != nil {
		return nil, err
	}

	secrets := make([]secretfs.Secret, 0, len(des))

	for _, de := range des {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}

		// symlinks are followed, so stat rather than trusting the entry's type
		fi, err := fs.Stat(s.root, de.Name())
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}

		if err := ctx.Err(); err != nil {
			secretfs.WipeAll(secrets)

			return nil, err
		}

		value, err := fs.ReadFile(s.root, de.Name())
		if err != nil {
			secretfs.WipeAll(secrets)

			return nil, err
		}

		secrets = append(secrets, secretfs.Secret{Name: de.Name(), Source: s.URL(), Value: value})
	}

	return secrets, nil
}
