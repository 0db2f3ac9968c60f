// Package sopssrc provides a secret source for local secrets documents
// encrypted with [SOPS].
//
// The URL's path names the encrypted file, like
// "sops:///etc/app/secrets.enc.yaml". The document format is taken from the
// "format" query parameter, or from the file's extension. JSON, YAML and
// dotenv documents are supported, and are decoded with
// [secretfs.DecodeSecrets] once decrypted.
//
// Decryption keys are found the same way the sops command finds them (age
// keys, PGP keyrings, cloud KMS credentials, etc...).
//
// [SOPS]: https://getsops.io
package sopssrc
