package fusefs

import (
	"fmt"
	"os"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long the kernel may cache entries and attributes.
const DefaultTTL = time.Second

// FsName is the filesystem name reported in the mount table.
const FsName = "secretfs"

// Options configures a mount.
type Options struct {
	// Logger receives warnings about rejected writes. Defaults to the logrus
	// standard logger.
	Logger logrus.FieldLogger

	// TTL overrides DefaultTTL, when non-zero.
	TTL time.Duration

	// AllowOther lets users other than the mounting user access the mount.
	// This usually needs user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Debug logs every FUSE request and response.
	Debug bool
}

// Mount serves idx read-only at mountpoint, which must be an existing
// directory. The returned server is already serving; call Unmount to stop it,
// and Wait to block until it has stopped. The index must not be closed until
// the server has stopped.
func Mount(mountpoint string, idx *secretfs.Index, opts Options) (*fuse.Server, error) {
	fi, err := os.Stat(mountpoint)
	if err != nil {
		return nil, fmt.Errorf("mount point: %w", err)
	}

	if !fi.IsDir() {
		return nil, fmt.Errorf("mount point %s: %w", mountpoint, secretfs.ErrNotDir)
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	root := NewRoot(idx, log, ttl)

	server, err := fs.Mount(mountpoint, root, mountOptions(ttl, opts))
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", mountpoint, err)
	}

	log.WithField("mountpoint", mountpoint).Info("mounted")

	return server, nil
}

func mountOptions(ttl time.Duration, opts Options) *fs.Options {
	return &fs.Options{
		EntryTimeout:    &ttl,
		AttrTimeout:     &ttl,
		NegativeTimeout: &ttl,
		MountOptions: fuse.MountOptions{
			FsName:     FsName,
			Name:       FsName,
			AllowOther: opts.AllowOther,
			Debug:      opts.Debug,
			Options:    []string{"ro", "default_permissions"},
		},
	}
}
