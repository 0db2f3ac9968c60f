//go:build !unix

package memlock

import "errors"

func Lock(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	return errors.ErrUnsupported
}

func Unlock(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	return errors.ErrUnsupported
}
