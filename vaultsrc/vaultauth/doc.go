// Package vaultauth provides Vault auth methods for use with
// [github.com/hairyhenderson/go-secretfs/vaultsrc], but which can also be used
// directly with a [*github.com/hashicorp/vault/api.Client].
//
// See also these auth methods provided with the Vault API:
//   - [github.com/hashicorp/vault/api/auth/approle]
//   - [github.com/hashicorp/vault/api/auth/kubernetes]
//   - [github.com/hashicorp/vault/api/auth/userpass]
package vaultauth
