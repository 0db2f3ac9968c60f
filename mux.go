package secretfs

import (
	"context"
	"fmt"
	"net/url"
	"sort"
)

// Source provides the secrets held at a single endpoint.
type Source interface {
	// Fetch retrieves all secrets from the endpoint. Fetch is expected to
	// either return a complete set of secrets or an error.
	Fetch(ctx context.Context) ([]Secret, error)
}

// SourceFunc is an adapter to allow the use of ordinary functions as a Source.
type SourceFunc func(ctx context.Context) ([]Secret, error)

// Fetch calls f(ctx).
func (f SourceFunc) Fetch(ctx context.Context) ([]Secret, error) {
	return f(ctx)
}

// SourceMux allows you to dynamically look up a registered source for a given
// URL. Each source package in this module provides a SourceProvider that can
// be registered, and additional sources can be registered given an
// implementation of SourceProvider.
// SourceMux is itself a SourceProvider, which provides the superset of all
// registered sources.
type SourceMux map[string]func(*url.URL) (Source, error)

var _ SourceProvider = (SourceMux)(nil)

// NewMux returns a SourceMux ready for use.
func NewMux() SourceMux {
	return SourceMux(map[string]func(*url.URL) (Source, error){})
}

// Add registers the given source provider for its supported URL schemes. If
// any of its schemes are already registered, they will be overridden.
func (m SourceMux) Add(p SourceProvider) {
	for _, scheme := range p.Schemes() {
		m[scheme] = p.New
	}
}

// Lookup returns an appropriate source for the given URL. Use Add to register
// providers.
func (m SourceMux) Lookup(u string) (Source, error) {
	base, err := url.Parse(u)
	if err != nil {
		return nil, err
	}

	return m.New(base)
}

// Supports reports whether a source is registered for the URL's scheme.
func (m SourceMux) Supports(u *url.URL) bool {
	_, ok := m[u.Scheme]

	return ok
}

// Schemes - implements SourceProvider
func (m SourceMux) Schemes() []string {
	schemes := make([]string, 0, len(m))
	for scheme := range m {
		schemes = append(schemes, scheme)
	}

	sort.Strings(schemes)

	return schemes
}

// New - implements SourceProvider
func (m SourceMux) New(u *url.URL) (Source, error) {
	f, ok := m[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("no secret source registered for scheme %q", u.Scheme)
	}

	return f(u)
}

// SourceProvider provides a Source for a set of defined schemes
type SourceProvider interface {
	// Schemes returns the valid URL schemes for this source
	Schemes() []string

	// New returns a source for the given URL
	New(u *url.URL) (Source, error)
}

// SourceProviderFunc -
func SourceProviderFunc(f func(*url.URL) (Source, error), schemes ...string) SourceProvider {
	return sp{f, schemes}
}

type sp struct {
	newFunc func(*url.URL) (Source, error)
	schemes []string
}

func (p sp) Schemes() []string {
	return p.schemes
}

func (p sp) New(u *url.URL) (Source, error) {
	return p.newFunc(u)
}

// WrappedSourceProvider is a SourceProvider that always returns the given
// Source, whatever the URL.
func WrappedSourceProvider(src Source, schemes ...string) SourceProvider {
	return sp{
		newFunc: func(_ *url.URL) (Source, error) { return src, nil },
		schemes: schemes,
	}
}
