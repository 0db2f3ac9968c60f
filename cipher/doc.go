// Package cipher provides the transforms applied to secret values before they
// are stored in a secretfs index.
//
// Three implementations are provided:
//
//   - [Plaintext] stores values unchanged. Anyone able to read the mount can
//     read the secrets.
//   - [XOR] combines values with a repeating key. It is a demonstration
//     cipher only, and offers no real protection. [New] falls back to it
//     when the configured cipher is unknown or can't be built.
//   - [RSA] encrypts values with an RSA public key (PKCS #1 v1.5). Only
//     holders of the matching private key (see [RSADecrypter]) can recover
//     the values. The server never needs the private key.
//
// # RSA framing
//
// A single RSA block can hold at most k-11 bytes of plaintext, where k is the
// key size in bytes. Values that fit are stored as one bare k-byte block.
// Longer values are split into (k-11)-byte chunks, and each encrypted chunk
// is prefixed with its length as a big-endian uint16:
//
//	┌────────┬──────────────┬────────┬──────────────┬─────
//	│ len(2) │ block (k)    │ len(2) │ block (k)    │ ...
//	└────────┴──────────────┴────────┴──────────────┴─────
//
// A decrypter distinguishes the two forms by length alone: exactly k bytes is
// a bare block, anything else is a sequence of prefixed chunks. Decrypters
// must therefore know the key size up front.
package cipher
