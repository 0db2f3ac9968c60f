package secretfs

import "errors"

var (
	// ErrReadOnly is returned for every request that would modify an Index.
	ErrReadOnly = errors.New("read-only file system")

	// ErrNotDir is returned when a directory operation is made against a file.
	ErrNotDir = errors.New("not a directory")

	// ErrIsDir is returned when a file operation is made against a directory.
	ErrIsDir = errors.New("is a directory")
)
