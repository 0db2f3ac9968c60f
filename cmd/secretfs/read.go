package main

import (
	"fmt"
	"io"
	"os"

	"github.com/hairyhenderson/go-secretfs/client"
	"github.com/hairyhenderson/go-secretfs/internal/config"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
	"github.com/spf13/cobra"
)

func newReadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read MOUNTPOINT NAME...",
		Short: "Print secrets from a mounted filesystem, decrypting them with a private key",
		Long: `Print the named secrets from the secretfs filesystem mounted at MOUNTPOINT.

When the filesystem was mounted with the RSA cipher, give the matching private
key with --private-key-file or SECRETFS_PRIVATE_KEY_PEM. Without a key, values
are printed as stored.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(a.cfg, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			return readSecrets(c, args[1:], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringP(config.KeyPrivateKeyFile, "k", "", "path to the RSA private key used to decrypt secrets")

	return cmd
}

func newClient(cfg *config.Config, dir string) (*client.Client, error) {
	switch {
	case cfg.PrivateKeyPEM != "":
		pemData := []byte(cfg.PrivateKeyPEM)
		defer memlock.Wipe(pemData)

		return client.NewWithPrivateKeyPEM(dir, pemData)
	case cfg.PrivateKeyFile != "":
		return client.NewWithPrivateKey(dir, cfg.PrivateKeyFile)
	}

	return client.New(os.DirFS(dir), nil), nil
}

func readSecrets(c *client.Client, names []string, w io.Writer) error {
	for _, name := range names {
		b, err := c.GetBytes(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		_, err = w.Write(b)
		memlock.Wipe(b)

		if err != nil {
			return err
		}
	}

	return nil
}
