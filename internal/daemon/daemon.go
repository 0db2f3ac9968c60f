// Package daemon runs secretfs: it collects secrets, stores them in an
// index, serves the index over FUSE until told to stop, then tears it down.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/autosrc"
	"github.com/hairyhenderson/go-secretfs/cipher"
	"github.com/hairyhenderson/go-secretfs/envsrc"
	"github.com/hairyhenderson/go-secretfs/fetcher"
	"github.com/hairyhenderson/go-secretfs/fetcher/tracefetch"
	"github.com/hairyhenderson/go-secretfs/fusefs"
	"github.com/hairyhenderson/go-secretfs/internal/config"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "github.com/hairyhenderson/go-secretfs/internal/daemon"

// Server is a running mount.
type Server interface {
	Unmount() error
	Wait()
}

// MountFunc mounts idx at mountpoint.
type MountFunc func(mountpoint string, idx *secretfs.Index, opts fusefs.Options) (Server, error)

// Daemon builds and serves a secretfs filesystem.
type Daemon struct {
	cfg   *config.Config
	log   logrus.FieldLogger
	mux   secretfs.SourceMux
	mount MountFunc
}

// New returns a daemon for cfg, fetching from every source in autosrc and
// mounting with fusefs.
func New(cfg *config.Config, log logrus.FieldLogger) *Daemon {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Daemon{
		cfg: cfg,
		log: log,
		mux: autosrc.Mux(),
		mount: func(mountpoint string, idx *secretfs.Index, opts fusefs.Options) (Server, error) {
			return fusefs.Mount(mountpoint, idx, opts)
		},
	}
}

// Build collects secrets from the environment and the configured endpoints,
// and stores them in a new index with the configured cipher. The returned
// cipher must be destroyed once the index is closed.
//
// Build does not fail: sources that can't be read are logged and skipped,
// and cipher configuration errors fall back to a default cipher.
func (d *Daemon) Build(ctx context.Context) (*secretfs.Index, cipher.Cipher) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "daemon.Build")
	defer span.End()

	secrets := d.collect(ctx)

	c := cipher.New(d.cfg.Cipher, d.log)

	idx := secretfs.NewIndex(secrets, c,
		secretfs.WithOwner(uint32(os.Getuid()), uint32(os.Getgid())), //nolint:gosec
		secretfs.WithLogger(d.log),
		secretfs.WithMemoryLock(d.cfg.MemoryLock),
	)

	span.SetAttributes(
		attribute.Int("secretfs.secrets", idx.Len()),
		attribute.String("secretfs.cipher", c.String()),
	)

	return idx, c
}

// collect returns the environment secrets followed by the fetched ones, so
// that fetched secrets replace environment secrets of the same name.
func (d *Daemon) collect(ctx context.Context) []secretfs.Secret {
	secrets, err := envsrc.New(d.log, d.cfg.EnvFiles...).Fetch(ctx)
	if err != nil {
		d.log.WithError(err).Warn("couldn't read env file")
	}

	d.log.WithField("count", len(secrets)).Debug("collected secrets from environment")

	if !d.cfg.FetchEnabled() {
		d.log.Debug("no endpoints configured, not fetching")

		return secrets
	}

	var f fetcher.Fetcher = fetcher.New(d.cfg.FetcherType, d.mux, d.log)
	if d.cfg.Tracing {
		f = tracefetch.New(f)
	}

	fetched, err := f.Fetch(ctx, d.cfg.Fetch)
	if err != nil {
		d.log.WithError(err).Warn("failed to fetch some secrets")
	}

	d.log.WithField("fetcher", f.String()).WithField("count", len(fetched)).Info("fetched secrets")

	return append(secrets, fetched...)
}

// Run builds the filesystem, mounts it, and serves it until ctx is done or
// the filesystem is unmounted externally. The index and cipher are always
// torn down before Run returns. Only a failure to mount is an error.
func (d *Daemon) Run(ctx context.Context) error {
	if d.cfg.Mountpoint == "" {
		return errors.New("no mount point given")
	}

	idx, c := d.Build(ctx)
	defer d.teardown(idx, c)

	d.log.WithFields(logrus.Fields{
		"secrets": idx.Len(),
		"cipher":  c.String(),
		"storage": "memory-only",
	}).Info("secretfs ready")

	srv, err := d.mount(d.cfg.Mountpoint, idx, fusefs.Options{
		Logger:     d.log,
		AllowOther: d.cfg.AllowOther,
		Debug:      d.cfg.Debug,
	})
	if err != nil {
		return fmt.Errorf("failed to mount: %w", err)
	}

	done := make(chan struct{})

	go func() {
		srv.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		d.log.Info("shutting down")

		// a busy mount can't be unmounted. The index is closed anyway: Close
		// waits for requests in flight, and later ones fail with EIO
		if err := srv.Unmount(); err != nil {
			d.log.WithError(err).Error("failed to unmount")

			break
		}

		<-done
	case <-done:
		d.log.Info("filesystem unmounted")
	}

	return nil
}

func (d *Daemon) teardown(idx *secretfs.Index, c cipher.Cipher) {
	if err := idx.Close(); err != nil {
		d.log.WithError(err).Warn("failed to close index")
	}

	cipher.Destroy(c)

	d.log.Info("secrets wiped from memory")
}
