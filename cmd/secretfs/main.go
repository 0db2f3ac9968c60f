/*
secretfs mounts a read-only, memory-only filesystem exposing secrets as
files.

Secrets are collected from well-known environment variables, from variables
named SECRET_*, and from any URLs given with --urls (or SECRETFS_URLS). Each
secret is stored in memory, optionally encrypted, and served as a file in a
single flat directory. Nothing is ever written to disk.

# Usage

	secretfs [flags] MOUNTPOINT
	secretfs list [flags]
	secretfs read [--private-key-file FILE] MOUNTPOINT NAME...

Every flag may also be set with an environment variable named after it,
prefixed with SECRETFS_. For example, --cipher-type=rsa is the same as
SECRETFS_CIPHER_TYPE=rsa. FUSE_MOUNTPOINT overrides the mount point.

# Examples

	$ SECRET_STRIPE_KEY=sk_test_1 secretfs list
	 -r--------    9B 2024-06-01 10:12 stripe-key

	$ SECRETFS_URLS=vault:///secret/myapp/ VAULT_ADDR=https://vault:8200 secretfs /run/secrets

	$ secretfs read --private-key-file private.pem /run/secrets db_password
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
