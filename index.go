package secretfs

import (
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/hairyhenderson/go-secretfs/internal/memlock"
	"github.com/sirupsen/logrus"
)

// RootID is the id of the root directory of every Index.
const RootID uint64 = 1

const (
	// FileMode is the mode of every secret file: owner read-only.
	FileMode fs.FileMode = 0o400

	// DirMode is the mode of the root directory: owner read and search.
	DirMode = fs.ModeDir | 0o500

	// BlockSize is the preferred I/O size reported for every entry.
	BlockSize = 4096

	// maximum length of a single path element on most filesystems
	maxNameLen = 255
)

// Encrypter converts a plaintext secret value into the bytes stored in the
// index. See the cipher package for implementations.
type Encrypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
}

// Attr describes an entry in the index.
type Attr struct {
	// ModTime is the time the index was built, and is also used as the access
	// and change times.
	ModTime   time.Time
	ID        uint64
	Size      int64
	Blocks    uint64
	Mode      fs.FileMode
	Nlink     uint32
	UID       uint32
	GID       uint32
	BlockSize uint32
}

// IsDir reports whether the entry is a directory.
func (a Attr) IsDir() bool { return a.Mode.IsDir() }

// DirEntry is a single named entry in a directory listing.
type DirEntry struct {
	Name string
	ID   uint64
	Mode fs.FileMode
}

// IsDir reports whether the entry is a directory.
func (d DirEntry) IsDir() bool { return d.Mode.IsDir() }

// entry is a node in the index arena. An entry's id is its arena offset + 1.
type entry struct {
	name     []byte
	content  []byte
	children []uint64
	parent   uint64
	mode     fs.FileMode
	locked   bool
	// replaced entries stay in the arena so ids are never reused, but are
	// unreachable
	removed bool
}

func (e *entry) isDir() bool { return e.mode.IsDir() }

// Index is the immutable set of secret entries served by a mount. It is safe
// for concurrent use by any number of readers. Create one with NewIndex.
type Index struct {
	modTime time.Time
	log     logrus.FieldLogger
	// mu only excludes Close from requests still in flight; nothing else
	// ever writes after NewIndex returns
	mu      sync.RWMutex
	entries []*entry
	uid     uint32
	gid     uint32
	mlock   bool
	closed  bool
}

// Option configures an Index at build time.
type Option interface {
	apply(*Index)
}

type optionFunc func(*Index)

func (o optionFunc) apply(x *Index) {
	o(x)
}

// WithOwner sets the uid and gid reported for every entry.
func WithOwner(uid, gid uint32) Option {
	return optionFunc(func(x *Index) {
		x.uid = uid
		x.gid = gid
	})
}

// WithModTime sets the fixed timestamp reported for every entry. Defaults to
// the time NewIndex is called.
func WithModTime(t time.Time) Option {
	return optionFunc(func(x *Index) {
		x.modTime = t
	})
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return optionFunc(func(x *Index) {
		if log != nil {
			x.log = log
		}
	})
}

// WithMemoryLock requests that stored buffers be pinned in memory with
// mlock(2). Failures to lock are logged, and are not fatal.
func WithMemoryLock(enabled bool) Option {
	return optionFunc(func(x *Index) {
		x.mlock = enabled
	})
}

// NewIndex builds an index holding the given secrets, in order. Each value is
// passed through enc, and the plaintext is zeroed as soon as it has been
// encrypted, whether or not encryption succeeded. Secrets that fail to encrypt,
// or whose names are not valid file names, are skipped with a logged error.
//
// When two secrets share a name, the later one replaces the earlier one.
//
// A nil enc stores plaintext copies of the values.
func NewIndex(secrets []Secret, enc Encrypter, opts ...Option) *Index {
	x := &Index{
		modTime: time.Now(),
		log:     logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt.apply(x)
	}

	x.entries = []*entry{{
		name:   []byte{},
		parent: RootID,
		mode:   DirMode,
	}}

	for i := range secrets {
		x.add(&secrets[i], enc)
	}

	return x
}

func (x *Index) add(s *Secret, enc Encrypter) {
	defer s.Wipe()

	log := x.log.WithField("secret", s.Name)
	if s.Source != "" {
		log = log.WithField("source", s.Source)
	}

	if !ValidName(s.Name) {
		log.Warn("skipping secret with invalid file name")

		return
	}

	content, err := encrypt(enc, s.Value)
	if err != nil {
		log.WithError(err).Error("failed to encrypt secret, skipping")

		return
	}

	root := x.entries[0]

	if old := x.child(root, s.Name); old != 0 {
		log.Debug("secret replaced by later source")
		x.remove(root, old)
	}

	e := &entry{
		name:    []byte(s.Name),
		content: content,
		parent:  RootID,
		mode:    FileMode,
	}

	if x.mlock {
		if err := memlock.Lock(content); err != nil {
			log.WithError(err).Debug("couldn't lock secret in memory")
		} else {
			e.locked = true
		}
	}

	x.entries = append(x.entries, e)
	root.children = append(root.children, uint64(len(x.entries)))
}

// encrypt returns a ciphertext buffer that never shares storage with
// plaintext, so the plaintext can be wiped independently.
func encrypt(enc Encrypter, plaintext []byte) ([]byte, error) {
	if enc == nil {
		return append([]byte{}, plaintext...), nil
	}

	out, err := enc.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}

	if len(out) > 0 && len(plaintext) > 0 && &out[0] == &plaintext[0] {
		out = append([]byte{}, out...)
	}

	if out == nil {
		out = []byte{}
	}

	return out, nil
}

func (x *Index) remove(dir *entry, id uint64) {
	for i, c := range dir.children {
		if c == id {
			dir.children = append(dir.children[:i], dir.children[i+1:]...)

			break
		}
	}

	e := x.entries[id-1]
	e.destroy()
	e.removed = true
}

func (e *entry) destroy() {
	memlock.WipeAll(e.content, e.name)

	// munlock may unpin neighbouring entries that share a page. The content
	// is already zeroed, and pinning is best-effort anyway.
	if e.locked {
		_ = memlock.Unlock(e.content)
		e.locked = false
	}

	e.content = nil
	e.name = nil
	e.children = nil
}

// ValidName reports whether name can be used as the name of a secret file: it
// must be a single, non-empty path element.
func ValidName(name string) bool {
	switch {
	case name == "", name == ".", name == "..":
		return false
	case len(name) > maxNameLen:
		return false
	case strings.ContainsAny(name, "/\x00"):
		return false
	}

	return true
}

// get returns the live entry for id, or nil.
func (x *Index) get(id uint64) *entry {
	if id == 0 || id > uint64(len(x.entries)) {
		return nil
	}

	e := x.entries[id-1]
	if e.removed {
		return nil
	}

	return e
}

func (x *Index) child(dir *entry, name string) uint64 {
	for _, id := range dir.children {
		if string(x.entries[id-1].name) == name {
			return id
		}
	}

	return 0
}

func (x *Index) entryName(id uint64) string {
	if e := x.get(id); e != nil {
		if id == RootID {
			return "."
		}

		return string(e.name)
	}

	return fmt.Sprintf("#%d", id)
}

// lookupDir returns the directory entry for id
func (x *Index) lookupDir(op string, id uint64) (*entry, error) {
	if x.closed {
		return nil, &fs.PathError{Op: op, Path: x.entryName(id), Err: fs.ErrClosed}
	}

	e := x.get(id)
	if e == nil {
		return nil, &fs.PathError{Op: op, Path: x.entryName(id), Err: fs.ErrNotExist}
	}

	if !e.isDir() {
		return nil, &fs.PathError{Op: op, Path: x.entryName(id), Err: ErrNotDir}
	}

	return e, nil
}

// Lookup returns the id of the entry named name in the directory parent. The
// match is exact and case-sensitive.
func (x *Index) Lookup(parent uint64, name string) (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	dir, err := x.lookupDir("lookup", parent)
	if err != nil {
		return 0, err
	}

	switch name {
	case ".":
		return parent, nil
	case "..":
		return dir.parent, nil
	}

	if id := x.child(dir, name); id != 0 {
		return id, nil
	}

	return 0, &fs.PathError{Op: "lookup", Path: name, Err: fs.ErrNotExist}
}

// Attributes returns the attributes of the entry with the given id.
func (x *Index) Attributes(id uint64) (Attr, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return Attr{}, &fs.PathError{Op: "getattr", Path: x.entryName(id), Err: fs.ErrClosed}
	}

	e := x.get(id)
	if e == nil {
		return Attr{}, &fs.PathError{Op: "getattr", Path: x.entryName(id), Err: fs.ErrNotExist}
	}

	size := int64(len(e.content))
	nlink := uint32(1)

	if e.isDir() {
		// "." and ".." - there are no subdirectories
		nlink = 2
	}

	return Attr{
		ID:        id,
		Mode:      e.mode,
		Size:      size,
		Blocks:    uint64(size+511) / 512,
		Nlink:     nlink,
		UID:       x.uid,
		GID:       x.gid,
		BlockSize: BlockSize,
		ModTime:   x.modTime,
	}, nil
}

// Read returns up to n bytes of the content of the file id, starting at off.
// The result is clamped to the content, and reading at or past the end returns
// an empty slice and no error.
//
// The returned slice shares storage with the index and must not be modified,
// nor used after Close. Use ReadAt to get a copy instead.
func (x *Index) Read(id uint64, off int64, n int) ([]byte, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return x.read(id, off, n)
}

// ReadAt copies the content of the file id, starting at off, into dst. It
// returns the number of bytes copied, which is less than len(dst) only at the
// end of the content.
func (x *Index) ReadAt(id uint64, dst []byte, off int64) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	b, err := x.read(id, off, len(dst))
	if err != nil {
		return 0, err
	}

	return copy(dst, b), nil
}

func (x *Index) read(id uint64, off int64, n int) ([]byte, error) {
	if x.closed {
		return nil, &fs.PathError{Op: "read", Path: x.entryName(id), Err: fs.ErrClosed}
	}

	e := x.get(id)
	if e == nil {
		return nil, &fs.PathError{Op: "read", Path: x.entryName(id), Err: fs.ErrNotExist}
	}

	if e.isDir() {
		return nil, &fs.PathError{Op: "read", Path: x.entryName(id), Err: ErrIsDir}
	}

	if off < 0 || n < 0 {
		return nil, &fs.PathError{Op: "read", Path: x.entryName(id), Err: fs.ErrInvalid}
	}

	size := int64(len(e.content))
	if off >= size {
		return []byte{}, nil
	}

	end := off + int64(n)
	if end > size || end < off {
		end = size
	}

	return e.content[off:end:end], nil
}

// ListDirectory returns the entries of the directory id. The first two entries
// are always "." and "..", followed by the directory's children in the order
// they were added.
func (x *Index) ListDirectory(id uint64) ([]DirEntry, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	dir, err := x.lookupDir("readdir", id)
	if err != nil {
		return nil, err
	}

	parent := x.get(dir.parent)

	out := make([]DirEntry, 0, len(dir.children)+2)
	out = append(out,
		DirEntry{Name: ".", ID: id, Mode: dir.mode},
		DirEntry{Name: "..", ID: dir.parent, Mode: parent.mode},
	)

	for _, c := range dir.children {
		e := x.entries[c-1]
		out = append(out, DirEntry{Name: string(e.name), ID: c, Mode: e.mode})
	}

	return out, nil
}

// Len returns the number of secret files in the index.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return 0
	}

	return len(x.entries[0].children)
}

// Names returns the names of the secret files in the index, in the order they
// were added.
func (x *Index) Names() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil
	}

	root := x.entries[0]
	names := make([]string, len(root.children))

	for i, c := range root.children {
		names[i] = string(x.entries[c-1].name)
	}

	return names
}

// Close zeroes every buffer held by the index and releases it. All later
// requests fail with fs.ErrClosed. Close waits for requests already in
// progress, so it is safe to call while a mount is still serving. It is safe to
// call Close more than once.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}

	for _, e := range x.entries {
		e.destroy()
	}

	x.entries = nil
	x.closed = true

	return nil
}
