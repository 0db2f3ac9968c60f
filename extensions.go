package secretfs

import (
	"net/http"
)

type withHeaderer interface {
	WithHeader(headers http.Header) Source
}

// WithHeaderSource injects custom HTTP headers into the source src, if the
// source supports it (i.e. has a WithHeader method).
func WithHeaderSource(headers http.Header, src Source) Source {
	if hsrc, ok := src.(withHeaderer); ok {
		return hsrc.WithHeader(headers)
	}

	return src
}

type withHTTPClienter interface {
	WithHTTPClient(client *http.Client) Source
}

// WithHTTPClientSource injects an HTTP client into the source src, if the
// source supports it (i.e. has a WithHTTPClient method). This is mainly used to
// apply a request timeout.
func WithHTTPClientSource(client *http.Client, src Source) Source {
	if csrc, ok := src.(withHTTPClienter); ok {
		return csrc.WithHTTPClient(client)
	}

	return src
}

type withTokener interface {
	WithToken(token string) Source
}

// WithTokenSource sets the authentication token used by src, if the source
// supports it (i.e. has a WithToken method). Sources that authenticate with a
// bearer token in the Authorization header don't need this, as the header can
// be set with WithHeaderSource.
func WithTokenSource(token string, src Source) Source {
	if tsrc, ok := src.(withTokener); ok {
		return tsrc.WithToken(token)
	}

	return src
}
