package cipher

import "github.com/hairyhenderson/go-secretfs/internal/memlock"

// DefaultKey is the XOR key used when none is configured.
const DefaultKey = "default-secretfs-key-2024"

// XOR combines each byte of the input with a repeating key. Encrypt and
// Decrypt are the same operation.
//
// This is not encryption in any meaningful sense. It only keeps values from
// being stored verbatim, and must not be relied on to protect secrets.
type XOR struct {
	key []byte
}

var _ Cipher = (*XOR)(nil)

// NewXOR returns an XOR cipher using a copy of key.
func NewXOR(key []byte) (*XOR, error) {
	if len(key) == 0 {
		return nil, &Error{Op: "init", Err: ErrEmptyKey}
	}

	return &XOR{key: append([]byte{}, key...)}, nil
}

func (c *XOR) apply(op string, in []byte) ([]byte, error) {
	if len(c.key) == 0 {
		return nil, &Error{Op: op, Err: ErrEmptyKey}
	}

	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b ^ c.key[i%len(c.key)]
	}

	return out, nil
}

func (c *XOR) Encrypt(plaintext []byte) ([]byte, error) {
	return c.apply("encrypt", plaintext)
}

func (c *XOR) Decrypt(ciphertext []byte) ([]byte, error) {
	return c.apply("decrypt", ciphertext)
}

func (c *XOR) String() string {
	return "XOR (demo only - NOT secure)"
}

// Destroy zeroes the key.
func (c *XOR) Destroy() {
	memlock.Wipe(c.key)
	c.key = nil
}
