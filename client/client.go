// Package client reads secrets from a mounted secretfs filesystem, decrypting
// them when they were stored with a cipher.
//
// Applications don't need this package to read secrets, as the mount is a
// regular directory. It is only needed to decrypt values stored with the RSA
// cipher, which requires the private key.
package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hairyhenderson/go-secretfs/cipher"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
)

// ErrNotText is returned by Get when a secret isn't valid UTF-8.
var ErrNotText = errors.New("secret is not valid UTF-8 text")

// Decrypter reverses the cipher used when the secrets were stored.
type Decrypter interface {
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Client reads secrets from a filesystem, usually the mount point.
type Client struct {
	fsys fs.FS
	dec  Decrypter
}

// New returns a client reading from fsys. Values are decrypted with dec, or
// returned as stored when dec is nil.
func New(fsys fs.FS, dec Decrypter) *Client {
	return &Client{fsys: fsys, dec: dec}
}

// NewWithPrivateKey returns a client reading from the mount point dir, and
// decrypting with the RSA private key in the PEM file at keyPath.
func NewWithPrivateKey(dir, keyPath string) (*Client, error) {
	data, err := os.ReadFile(keyPath)
	defer memlock.Wipe(data)

	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	return NewWithPrivateKeyPEM(dir, data)
}

// NewWithPrivateKeyPEM is like NewWithPrivateKey, with the key given as PEM
// data. The caller owns keyPEM and may wipe it once this returns.
func NewWithPrivateKeyPEM(dir string, keyPEM []byte) (*Client, error) {
	priv, err := cipher.ParsePrivateKey(keyPEM)
	if err != nil {
		return nil, err
	}

	dec, err := cipher.NewRSADecrypter(priv)
	if err != nil {
		return nil, err
	}

	return New(os.DirFS(dir), dec), nil
}

// Close wipes any key material held by the client's decrypter.
func (c *Client) Close() error {
	if d, ok := c.dec.(cipher.Cipher); ok {
		cipher.Destroy(d)
	}

	return nil
}

// GetBytes returns the decrypted value of the named secret. The caller should
// wipe it when done.
func (c *Client) GetBytes(name string) ([]byte, error) {
	if !validName(name) {
		return nil, &fs.PathError{Op: "get", Path: name, Err: fs.ErrInvalid}
	}

	stored, err := fs.ReadFile(c.fsys, name)
	if err != nil {
		return nil, err
	}

	if c.dec == nil {
		return stored, nil
	}

	defer memlock.Wipe(stored)

	value, err := c.dec.Decrypt(stored)
	if err != nil {
		return nil, &fs.PathError{Op: "decrypt", Path: name, Err: err}
	}

	return value, nil
}

// Get returns the decrypted value of the named secret as a string. It fails
// with ErrNotText if the value isn't valid UTF-8.
func (c *Client) Get(name string) (string, error) {
	b, err := c.GetBytes(name)
	if err != nil {
		return "", err
	}

	defer memlock.Wipe(b)

	if !utf8.Valid(b) {
		return "", &fs.PathError{Op: "get", Path: name, Err: ErrNotText}
	}

	return string(b), nil
}

// List returns the sorted names of all secrets.
func (c *Client) List() ([]string, error) {
	des, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(des))

	for _, de := range des {
		if de.Type().IsRegular() {
			names = append(names, de.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

// secrets are always directly in the root
func validName(name string) bool {
	return fs.ValidPath(name) && name != "." && !strings.Contains(name, "/")
}
