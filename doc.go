// Package secretfs holds the in-memory secret index served by a secretfs
// mount, along with the types shared by the secret sources that feed it.
//
// Secrets are collected once at startup (from the environment and from
// remote sources registered with a [SourceMux]), passed through a cipher, and
// stored in an immutable [Index]. The index answers lookup, attribute, read
// and directory-listing requests, and rejects every mutating request with
// [ErrReadOnly]. The [github.com/hairyhenderson/go-secretfs/fusefs] package
// serves an Index over FUSE.
//
// The Index also implements [io/fs.FS], so the same data can be inspected
// without mounting anything:
//
//	idx := secretfs.NewIndex(secrets, cipher.Plaintext{})
//	defer idx.Close()
//
//	b, err := fs.ReadFile(idx, "api_key")
//
// # Memory handling
//
// NewIndex takes ownership of the plaintext secret values it is given and
// zeroes them once they have been encrypted. [Index.Close] zeroes every stored
// buffer, and must only be called once nothing else is reading from the index
// (for a mount, after it has been unmounted).
package secretfs
