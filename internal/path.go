package internal

import (
	"io/fs"
	"strings"
)

// ValidPath reports whether name can address a secret through the fs.FS
// view. On top of fs.ValidPath, backslashes and NUL bytes are refused, since
// neither can appear in a served file name.
func ValidPath(name string) bool {
	if strings.ContainsAny(name, "\\\x00") {
		return false
	}

	return fs.ValidPath(name)
}
