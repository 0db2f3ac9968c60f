package cipher

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
)

// PKCS #1 v1.5 encryption padding takes at least 11 bytes of every block.
const pkcs1v15Overhead = 11

// RSA encrypts with an RSA public key. See the package documentation for the
// output framing.
type RSA struct {
	pub  *rsa.PublicKey
	rand io.Reader
}

var _ Cipher = (*RSA)(nil)

// NewRSA returns an encrypting cipher for pub.
func NewRSA(pub *rsa.PublicKey) (*RSA, error) {
	if pub == nil {
		return nil, &Error{Op: "init", Err: ErrNoKeyMaterial}
	}

	if pub.Size() <= pkcs1v15Overhead {
		return nil, &Error{Op: "init", Err: fmt.Errorf("RSA key too small (%d bits)", pub.N.BitLen())}
	}

	return &RSA{pub: pub, rand: rand.Reader}, nil
}

// BlockSize returns the size in bytes of a single ciphertext block.
func (c *RSA) BlockSize() int {
	return c.pub.Size()
}

// MaxChunk returns the largest plaintext that fits in a single block.
func (c *RSA) MaxChunk() int {
	return c.pub.Size() - pkcs1v15Overhead
}

// Encrypt encrypts plaintext. Plaintext no longer than MaxChunk produces one
// bare block, and anything longer produces a sequence of length-prefixed
// blocks.
func (c *RSA) Encrypt(plaintext []byte) ([]byte, error) {
	limit := c.MaxChunk()

	if len(plaintext) <= limit {
		out, err := rsa.EncryptPKCS1v15(c.rand, c.pub, plaintext)
		if err != nil {
			return nil, &Error{Op: "encrypt", Err: err}
		}

		return out, nil
	}

	k := c.BlockSize()
	nchunks := (len(plaintext) + limit - 1) / limit
	out := make([]byte, 0, nchunks*(k+2))

	for off := 0; off < len(plaintext); off += limit {
		end := min(off+limit, len(plaintext))

		block, err := rsa.EncryptPKCS1v15(c.rand, c.pub, plaintext[off:end])
		if err != nil {
			return nil, &Error{Op: "encrypt", Err: fmt.Errorf("chunk %d: %w", off/limit, err)}
		}

		out = binary.BigEndian.AppendUint16(out, uint16(len(block)))
		out = append(out, block...)
	}

	return out, nil
}

// Decrypt always fails, since only the public key is held.
func (c *RSA) Decrypt(_ []byte) ([]byte, error) {
	return nil, &Error{Op: "decrypt", Err: ErrDecryptUnsupported}
}

func (c *RSA) String() string {
	return fmt.Sprintf("RSA-%d PKCS#1 v1.5 (public key only)", c.pub.N.BitLen())
}

// RSADecrypter decrypts values produced by RSA, given the private key. It can
// also encrypt, with the private key's public half.
type RSADecrypter struct {
	priv *rsa.PrivateKey
	enc  *RSA
}

var _ Cipher = (*RSADecrypter)(nil)

// NewRSADecrypter returns a cipher that can decrypt with priv.
func NewRSADecrypter(priv *rsa.PrivateKey) (*RSADecrypter, error) {
	if priv == nil {
		return nil, &Error{Op: "init", Err: ErrNoKeyMaterial}
	}

	enc, err := NewRSA(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	return &RSADecrypter{priv: priv, enc: enc}, nil
}

func (c *RSADecrypter) Encrypt(plaintext []byte) ([]byte, error) {
	return c.enc.Encrypt(plaintext)
}

// Decrypt reverses RSA.Encrypt. Ciphertext of exactly one block size is a
// bare block; anything else must be a sequence of length-prefixed blocks.
func (c *RSADecrypter) Decrypt(ciphertext []byte) ([]byte, error) {
	k := c.priv.Size()

	if len(ciphertext) == k {
		out, err := rsa.DecryptPKCS1v15(rand.Reader, c.priv, ciphertext)
		if err != nil {
			return nil, &Error{Op: "decrypt", Err: err}
		}

		return out, nil
	}

	if len(ciphertext) == 0 {
		return nil, &Error{Op: "decrypt", Err: ErrInvalidCiphertext}
	}

	out := make([]byte, 0, len(ciphertext)/(k+2)*c.enc.MaxChunk())

	for rest, i := ciphertext, 0; len(rest) > 0; i++ {
		if len(rest) < 2 {
			return nil, &Error{Op: "decrypt", Err: fmt.Errorf("%w: truncated length prefix in chunk %d", ErrInvalidCiphertext, i)}
		}

		n := int(binary.BigEndian.Uint16(rest))
		rest = rest[2:]

		if n == 0 || n > len(rest) {
			return nil, &Error{Op: "decrypt", Err: fmt.Errorf("%w: chunk %d length %d exceeds remaining %d bytes", ErrInvalidCiphertext, i, n, len(rest))}
		}

		chunk, err := rsa.DecryptPKCS1v15(rand.Reader, c.priv, rest[:n])
		if err != nil {
			return nil, &Error{Op: "decrypt", Err: fmt.Errorf("chunk %d: %w", i, err)}
		}

		out = append(out, chunk...)
		rest = rest[n:]
	}

	return out, nil
}

func (c *RSADecrypter) String() string {
	return fmt.Sprintf("RSA-%d PKCS#1 v1.5 (private key)", c.priv.N.BitLen())
}

// Destroy zeroes the private key's secret values. The key must not be used
// afterwards.
func (c *RSADecrypter) Destroy() {
	wipeInt(c.priv.D)

	for _, p := range c.priv.Primes {
		wipeInt(p)
	}

	wipeInt(c.priv.Precomputed.Dp)
	wipeInt(c.priv.Precomputed.Dq)
	wipeInt(c.priv.Precomputed.Qinv)
}

func wipeInt(x *big.Int) {
	if x == nil {
		return
	}

	clear(x.Bits())
	x.SetInt64(0)
}
