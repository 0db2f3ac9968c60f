// Package autosrc provides the ability to look up all secret sources supported
// by this module. Using this package will compile a great many dependencies
// into the resulting binary, so unless you need to support all supported
// sources, use secretfs.NewMux instead.
package autosrc

import (
	"net/url"
	"sync"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/awssmpsrc"
	"github.com/hairyhenderson/go-secretfs/awssmsrc"
	"github.com/hairyhenderson/go-secretfs/blobsrc"
	"github.com/hairyhenderson/go-secretfs/consulsrc"
	"github.com/hairyhenderson/go-secretfs/filesrc"
	"github.com/hairyhenderson/go-secretfs/gcpsmsrc"
	"github.com/hairyhenderson/go-secretfs/gitsrc"
	"github.com/hairyhenderson/go-secretfs/httpsrc"
	"github.com/hairyhenderson/go-secretfs/sopssrc"
	"github.com/hairyhenderson/go-secretfs/vaultsrc"
)

// Lookup returns an appropriate source for the given URL.
// If a source can't be found for the provided URL's scheme, an error will
// be returned.
func Lookup(u string) (secretfs.Source, error) {
	return initMux().Lookup(u)
}

// Mux returns a new SourceMux with every source registered. Further sources
// can be added to it without affecting other callers.
func Mux() secretfs.SourceMux {
	mux := secretfs.NewMux()
	mux.Add(Source)

	return mux
}

// Source is used to register every source with a secretfs.SourceMux
//
//nolint:gochecknoglobals
var Source = &autoSource{}

type autoSource struct{}

var _ secretfs.SourceProvider = (*autoSource)(nil)

func (c *autoSource) Schemes() []string {
	return initMux().Schemes()
}

func (c *autoSource) New(u *url.URL) (secretfs.Source, error) {
	return initMux().New(u)
}

//nolint:gochecknoglobals
var initMux = sync.OnceValue(func() secretfs.SourceMux {
	mux := secretfs.NewMux()
	mux.Add(awssmsrc.Source)
	mux.Add(awssmpsrc.Source)
	mux.Add(blobsrc.Source)
	mux.Add(consulsrc.Source)
	mux.Add(filesrc.Source)
	mux.Add(gcpsmsrc.Source)
	mux.Add(gitsrc.Source)
	mux.Add(httpsrc.Source)
	mux.Add(sopssrc.Source)
	mux.Add(vaultsrc.Source)

	return mux
})
