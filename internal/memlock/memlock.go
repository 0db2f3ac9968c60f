// Package memlock zeroes and pins buffers that hold secret material.
package memlock

import "runtime"

// Wipe overwrites b with zeroes.
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// WipeAll overwrites every given buffer with zeroes.
func WipeAll(bufs ...[]byte) {
	for _, b := range bufs {
		Wipe(b)
	}
}
