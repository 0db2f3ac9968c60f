package memlock

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWipe(t *testing.T) {
	b := []byte("hunter2")
	Wipe(b)
	assert.Equal(t, make([]byte, 7), b)

	// must not panic
	Wipe(nil)

	a, c := []byte("abc"), []byte("defg")
	WipeAll(a, c)
	assert.True(t, bytes.Equal(a, []byte{0, 0, 0}))
	assert.True(t, bytes.Equal(c, []byte{0, 0, 0, 0}))
}

func TestLockEmpty(t *testing.T) {
	assert.NoError(t, Lock(nil))
	assert.NoError(t, Unlock([]byte{}))
}

func TestUnlockSharedPage(t *testing.T) {
	page := make([]byte, 64)
	a, b := page[:32], page[32:]

	if err := Lock(a); err != nil {
		t.Skipf("mlock unavailable: %v", err)
	}

	assert.NoError(t, Lock(b))

	// unlocking one half drops the pin for the whole page; the second
	// unlock still succeeds
	assert.NoError(t, Unlock(a))
	assert.NoError(t, Unlock(b))
}
