package secretfs

import "io/fs"

// The methods below exist so that every mutating request has a single,
// uniform answer. None of them touch the index.

func (x *Index) readOnly(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: ErrReadOnly}
}

func (x *Index) nameOf(id uint64) string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return x.entryName(id)
}

// Write always fails with ErrReadOnly.
func (x *Index) Write(id uint64, _ int64, _ []byte) (int, error) {
	return 0, x.readOnly("write", x.nameOf(id))
}

// Create always fails with ErrReadOnly.
func (x *Index) Create(_ uint64, name string) (uint64, error) {
	return 0, x.readOnly("create", name)
}

// Mkdir always fails with ErrReadOnly.
func (x *Index) Mkdir(_ uint64, name string) (uint64, error) {
	return 0, x.readOnly("mkdir", name)
}

// Mknod always fails with ErrReadOnly.
func (x *Index) Mknod(_ uint64, name string) (uint64, error) {
	return 0, x.readOnly("mknod", name)
}

// Unlink always fails with ErrReadOnly.
func (x *Index) Unlink(_ uint64, name string) error {
	return x.readOnly("unlink", name)
}

// Rmdir always fails with ErrReadOnly.
func (x *Index) Rmdir(_ uint64, name string) error {
	return x.readOnly("rmdir", name)
}

// Rename always fails with ErrReadOnly.
func (x *Index) Rename(_ uint64, name string, _ uint64, _ string) error {
	return x.readOnly("rename", name)
}

// Link always fails with ErrReadOnly.
func (x *Index) Link(_ uint64, _ uint64, name string) error {
	return x.readOnly("link", name)
}

// Symlink always fails with ErrReadOnly.
func (x *Index) Symlink(_ uint64, name, _ string) error {
	return x.readOnly("symlink", name)
}

// Truncate always fails with ErrReadOnly.
func (x *Index) Truncate(id uint64, _ int64) error {
	return x.readOnly("truncate", x.nameOf(id))
}

// SetAttr always fails with ErrReadOnly. It stands in for chmod, chown and
// utimes requests.
func (x *Index) SetAttr(id uint64) error {
	return x.readOnly("setattr", x.nameOf(id))
}

// SetXattr always fails with ErrReadOnly.
func (x *Index) SetXattr(id uint64, _ string, _ []byte) error {
	return x.readOnly("setxattr", x.nameOf(id))
}

// RemoveXattr always fails with ErrReadOnly.
func (x *Index) RemoveXattr(id uint64, _ string) error {
	return x.readOnly("removexattr", x.nameOf(id))
}
