package cipher

import (
	"errors"
	"fmt"
)

// Cipher transforms secret values to and from their stored form.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)

	// String returns a human-readable description, for diagnostics only.
	String() string
}

var (
	// ErrEmptyKey is returned when a symmetric cipher has no key.
	ErrEmptyKey = errors.New("encryption key must not be empty")

	// ErrDecryptUnsupported is returned by ciphers that only hold the key
	// material needed for encryption.
	ErrDecryptUnsupported = errors.New("decryption requires the private key")

	// ErrInvalidCiphertext is returned when ciphertext is not correctly framed.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")

	// ErrNoKeyMaterial is returned when no key was configured.
	ErrNoKeyMaterial = errors.New("no key material provided")
)

// Error records a failed cipher operation.
type Error struct {
	Err error
	Op  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cipher %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Plaintext is the no-op cipher.
type Plaintext struct{}

var _ Cipher = Plaintext{}

// Encrypt returns a copy of plaintext.
func (Plaintext) Encrypt(plaintext []byte) ([]byte, error) {
	return append([]byte{}, plaintext...), nil
}

// Decrypt returns a copy of ciphertext.
func (Plaintext) Decrypt(ciphertext []byte) ([]byte, error) {
	return append([]byte{}, ciphertext...), nil
}

func (Plaintext) String() string {
	return "plaintext (no encryption - secrets are readable by anyone with access to the mount)"
}

type destroyer interface {
	Destroy()
}

// Destroy zeroes any key material held by c, if it holds any. c must not be
// used afterwards.
func Destroy(c Cipher) {
	if d, ok := c.(destroyer); ok {
		d.Destroy()
	}
}
