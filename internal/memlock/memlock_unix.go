//go:build unix

package memlock

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Lock pins the pages backing b in memory, so they can't be swapped out.
// This is best-effort: it commonly fails when RLIMIT_MEMLOCK is low.
func Lock(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	if err := unix.Mlock(b); err != nil {
		return fmt.Errorf("mlock: %w", err)
	}

	return nil
}

// Unlock releases a pin made by Lock. Pins aren't counted per page, so
// this also unpins any other locked buffer sharing a page with b.
func Unlock(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	if err := unix.Munlock(b); err != nil {
		return fmt.Errorf("munlock: %w", err)
	}

	return nil
}
