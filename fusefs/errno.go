package fusefs

import (
	"errors"
	"io/fs"
	"syscall"

	secretfs "github.com/hairyhenderson/go-secretfs"
)

// toErrno maps an index error to the errno returned to the kernel
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, fs.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, secretfs.ErrNotDir):
		return syscall.ENOTDIR
	case errors.Is(err, secretfs.ErrIsDir):
		return syscall.EISDIR
	case errors.Is(err, secretfs.ErrReadOnly):
		return syscall.EROFS
	case errors.Is(err, fs.ErrInvalid):
		return syscall.EINVAL
	case errors.Is(err, fs.ErrPermission):
		return syscall.EACCES
	default:
		return syscall.EIO
	}
}
