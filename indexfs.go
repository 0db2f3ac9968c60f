package secretfs

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"slices"
	"strings"

	"github.com/hairyhenderson/go-secretfs/internal"
)

var (
	_ fs.FS         = (*Index)(nil)
	_ fs.ReadDirFS  = (*Index)(nil)
	_ fs.ReadFileFS = (*Index)(nil)
	_ fs.StatFS     = (*Index)(nil)
)

func (x *Index) fileInfo(name string, id uint64) (fs.FileInfo, error) {
	attr, err := x.Attributes(id)
	if err != nil {
		return nil, err
	}

	if attr.IsDir() {
		return internal.DirInfo(name, attr.Mode, attr.ModTime, attr), nil
	}

	return internal.FileInfo(name, attr.Size, attr.Mode, attr.ModTime, attr), nil
}

// resolve maps an fs.FS path to an entry id
func (x *Index) resolve(op, name string) (uint64, error) {
	if !internal.ValidPath(name) {
		return 0, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}

	if name == "." {
		return RootID, nil
	}

	if strings.Contains(name, "/") {
		// the namespace is flat, so the parent must be a file
		return 0, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}

	id, err := x.Lookup(RootID, name)
	if err != nil {
		var perr *fs.PathError
		if errors.As(err, &perr) {
			err = perr.Err
		}

		return 0, &fs.PathError{Op: op, Path: name, Err: err}
	}

	return id, nil
}

// Open implements fs.FS.
func (x *Index) Open(name string) (fs.File, error) {
	id, err := x.resolve("open", name)
	if err != nil {
		return nil, err
	}

	fi, err := x.fileInfo(name, id)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	if fi.IsDir() {
		des, err := x.ReadDir(name)
		if err != nil {
			return nil, err
		}

		return &indexDir{fi: fi, entries: des}, nil
	}

	content, err := x.Read(id, 0, int(fi.Size()))
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	return &indexFile{fi: fi, Reader: bytes.NewReader(content)}, nil
}

// ReadFile implements fs.ReadFileFS. The returned slice is a copy.
func (x *Index) ReadFile(name string) ([]byte, error) {
	id, err := x.resolve("readFile", name)
	if err != nil {
		return nil, err
	}

	attr, err := x.Attributes(id)
	if err != nil {
		return nil, err
	}

	if attr.IsDir() {
		return nil, &fs.PathError{Op: "readFile", Path: name, Err: ErrIsDir}
	}

	content, err := x.Read(id, 0, int(attr.Size))
	if err != nil {
		return nil, err
	}

	return bytes.Clone(content), nil
}

// ReadDir implements fs.ReadDirFS. Entries are sorted by name.
func (x *Index) ReadDir(name string) ([]fs.DirEntry, error) {
	id, err := x.resolve("readDir", name)
	if err != nil {
		return nil, err
	}

	list, err := x.ListDirectory(id)
	if err != nil {
		var perr *fs.PathError
		if errors.As(err, &perr) {
			err = perr.Err
		}

		return nil, &fs.PathError{Op: "readDir", Path: name, Err: err}
	}

	des := make([]fs.DirEntry, 0, len(list))

	for _, de := range list {
		if de.Name == "." || de.Name == ".." {
			continue
		}

		fi, err := x.fileInfo(de.Name, de.ID)
		if err != nil {
			return nil, err
		}

		des = append(des, internal.FileInfoDirEntry(fi))
	}

	slices.SortFunc(des, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	return des, nil
}

// Stat implements fs.StatFS.
func (x *Index) Stat(name string) (fs.FileInfo, error) {
	id, err := x.resolve("stat", name)
	if err != nil {
		return nil, err
	}

	fi, err := x.fileInfo(name, id)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	return fi, nil
}

type indexFile struct {
	fi fs.FileInfo
	*bytes.Reader
}

var (
	_ fs.File     = (*indexFile)(nil)
	_ io.ReaderAt = (*indexFile)(nil)
	_ io.Seeker   = (*indexFile)(nil)
)

func (f *indexFile) Stat() (fs.FileInfo, error) { return f.fi, nil }
func (f *indexFile) Close() error               { return nil }

type indexDir struct {
	fi      fs.FileInfo
	entries []fs.DirEntry
	off     int
}

var _ fs.ReadDirFile = (*indexDir)(nil)

func (d *indexDir) Stat() (fs.FileInfo, error) { return d.fi, nil }
func (d *indexDir) Close() error               { return nil }

func (d *indexDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.fi.Name(), Err: ErrIsDir}
}

func (d *indexDir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.off:]

	if n <= 0 {
		d.off = len(d.entries)

		return rest, nil
	}

	if len(rest) == 0 {
		return nil, io.EOF
	}

	if n > len(rest) {
		n = len(rest)
	}

	d.off += n

	return rest[:n], nil
}
