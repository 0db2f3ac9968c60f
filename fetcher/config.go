package fetcher

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	secretfs "github.com/hairyhenderson/go-secretfs"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 3
	DefaultUserAgent     = "secretfs/1.0"
)

// Config describes where, and how, to fetch secrets.
type Config struct {
	// Headers are sent with every request. They override the Authorization
	// header set from Token.
	Headers http.Header

	// Token is sent as a bearer token, and passed to sources that support
	// token authentication.
	Token string

	// UserAgent is sent with every HTTP request. DefaultUserAgent is used when
	// empty.
	UserAgent string

	// Endpoints are the URLs of the sources to fetch from, in order.
	Endpoints []string

	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// RetryAttempts is the number of times a failed endpoint is retried.
	RetryAttempts int
}

// NewConfig returns a Config with the default timeout, retry count and user
// agent.
func NewConfig(endpoints ...string) *Config {
	return &Config{
		Endpoints:     endpoints,
		Timeout:       DefaultTimeout,
		RetryAttempts: DefaultRetryAttempts,
		UserAgent:     DefaultUserAgent,
	}
}

var (
	ErrNoEndpoints    = errors.New("no endpoints configured")
	ErrInvalidTimeout = errors.New("timeout must be greater than 0")
)

// Validate checks that the config can be used with the given sources: there
// must be at least one endpoint, every endpoint must be an absolute URL with
// a scheme supported by mux, and the timeout must be positive.
func (c *Config) Validate(mux secretfs.SourceMux) error {
	if len(c.Endpoints) == 0 {
		return ErrNoEndpoints
	}

	for _, e := range c.Endpoints {
		u, err := url.Parse(e)
		if err != nil {
			// url.Error includes the raw URL, which may hold credentials
			var uerr *url.Error
			if errors.As(err, &uerr) {
				err = uerr.Err
			}

			return fmt.Errorf("invalid endpoint: %w", err)
		}

		if !u.IsAbs() {
			return fmt.Errorf("invalid endpoint %q: not an absolute URL", u.Redacted())
		}

		if !mux.Supports(u) {
			return fmt.Errorf("invalid endpoint %q: unsupported scheme %q", u.Redacted(), u.Scheme)
		}
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must not be negative, got %d", c.RetryAttempts)
	}

	return nil
}

// RequestHeaders returns the headers to send with every request: the bearer
// token, the user agent, then the configured headers.
func (c *Config) RequestHeaders() http.Header {
	h := http.Header{}

	if c.Token != "" {
		h.Set("Authorization", "Bearer "+c.Token)
	}

	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	h.Set("User-Agent", ua)

	for k, vs := range c.Headers {
		h[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	return h
}

// ParseEndpoints splits a comma-separated list of endpoint URLs, dropping
// empty entries.
func ParseEndpoints(s string) []string {
	out := []string{}

	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}

	return out
}

// ParseHeaders parses a list of headers in the form "Key1:Value1,Key2:Value2".
// Each entry is split on its first colon, and entries without a colon or with
// an empty key are ignored. A key given more than once keeps its last value.
func ParseHeaders(s string) http.Header {
	h := http.Header{}

	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}

		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}

		h.Set(k, strings.TrimSpace(v))
	}

	return h
}
