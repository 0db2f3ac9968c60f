package httpsrc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 16 << 20

type httpSource struct {
	base    *url.URL
	client  *http.Client
	headers http.Header
}

// New provides a secret source for the HTTP (or HTTPS) endpoint at u. This
// source is suitable for use with the 'http' or 'https' URL schemes.
func New(u *url.URL) (secretfs.Source, error) {
	return &httpSource{
		client:  http.DefaultClient,
		base:    u,
		headers: http.Header{},
	}, nil
}

// Source is used to register this source with a secretfs.SourceMux
//
//nolint:gochecknoglobals
var Source = secretfs.SourceProviderFunc(New, "http", "https")

func (s *httpSource) URL() string {
	return s.base.Redacted()
}

func (s *httpSource) WithHeader(headers http.Header) secretfs.Source {
	if headers == nil {
		return s
	}

	src := *s
	src.headers = s.headers.Clone()

	for k, vs := range headers {
		for _, v := range vs {
			src.headers.Add(k, v)
		}
	}

	return &src
}

func (s *httpSource) WithHTTPClient(client *http.Client) secretfs.Source {
	if client == nil {
		return s
	}

	src := *s
	src.client = client

	return &src
}

func (s *httpSource) Fetch(ctx context.Context) ([]secretfs.Secret, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header = s.headers.Clone()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		return nil, httpError(http.MethodGet, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	defer memlock.Wipe(body)

	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBodySize)
	}

	format := secretfs.FormatOf(resp.Header.Get("Content-Type"), s.base.Path)

	secrets, err := secretfs.DecodeSecrets(body, format)
	if err != nil {
		return nil, err
	}

	for i := range secrets {
		secrets[i].Source = s.URL()
	}

	return secrets, nil
}

// httpError represents an HTTP error with its status code
func httpError(method string, statusCode int) error {
	return httpErr{
		method:     method,
		statusCode: statusCode,
	}
}

type httpErr struct {
	method     string
	statusCode int
}

func (e httpErr) Error() string {
	return fmt.Sprintf("http %s failed with status %d", e.method, e.statusCode)
}

func (e httpErr) StatusCode() int {
	return e.statusCode
}
