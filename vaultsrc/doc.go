// Package vaultsrc provides a secret source for HashiCorp Vault.
//
// # Usage
//
// The schemes "vault", "vault+https" and "vault+http" are supported, though
// "vault+http" should only be used in development/test environments. If no
// authority part (host:port) is present in the URL, the $VAULT_ADDR
// environment variable will be used as the Vault server's address.
//
// The URL's path is the path of the secret to read, as it would be given to
// the Vault CLI's "vault read" command, without the "/v1" prefix. Each field
// of the secret becomes a separate secretfs secret:
//
//	vault:///secret/myapp
//
// For the K/V Version 2 secrets engine, the "data" path segment must be given,
// and the secret's data is unwrapped from the response:
//
//	vault://vault.example.com:8200/secret/data/myapp
//
// When the path ends in "/", or nothing can be read at the path, the path is
// listed instead, and the fields of every secret found directly under it are
// collected. Sub-paths are not descended into.
//
// Field values that aren't strings are stored as their JSON encoding.
//
// # Authentication
//
// By default, the auth method is chosen based on environment variables (see
// [vaultauth.EnvAuthMethod]). A specific auth method may be chosen by wrapping
// the source with [vaultauth.WithAuthMethod], and a token can be given with
// [secretfs.WithTokenSource].
//
// Tokens acquired by an auth method are revoked after the secrets have been
// fetched. Tokens given directly (including $VAULT_TOKEN) are left alone.
//
// # Permissions
//
// The authenticated credentials need the "read" capability on the secret path,
// and "list" when listing.
package vaultsrc
