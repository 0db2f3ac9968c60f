/*
secretfs-keygen generates and inspects the RSA keys used by secretfs's RSA
cipher.

# Usage

	secretfs-keygen generate PRIVATE_KEY PUBLIC_KEY [BITS]
	secretfs-keygen info KEY

generate writes a new key pair as PEM files: the private key (PKCS #8, mode
0600) and the public key (PKIX, mode 0644). BITS defaults to 2048.

Give the public key to secretfs with SECRETFS_PUBLIC_KEY_FILE, and keep the
private key with the applications that read the secrets.

# Examples

	$ secretfs-keygen generate private.pem public.pem 4096
	wrote private key to private.pem
	wrote public key to public.pem

	$ secretfs-keygen info public.pem
	public.pem:
	    Type:        RSA public key
	    Size:        4096 bits
	    Fingerprint: SHA256:mVPwvezndPv/ARoIadVY98vAC0g+P/5633yTC4d/wXE
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hairyhenderson/go-secretfs/cipher"
	"github.com/hairyhenderson/go-secretfs/internal/memlock"
	"github.com/spf13/cobra"
)

const defaultBits = 2048

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "secretfs-keygen",
		Short:         "Generate and inspect RSA keys for secretfs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newGenerateCmd(), newInfoCmd())

	return cmd
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate PRIVATE_KEY PUBLIC_KEY [BITS]",
		Short: "Generate an RSA key pair",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bits := defaultBits

			if len(args) == 3 {
				n, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid key size %q: %w", args[2], err)
				}

				bits = n
			}

			return generate(args[0], args[1], bits, cmd.OutOrStdout())
		},
	}
}

func generate(privPath, pubPath string, bits int, w io.Writer) error {
	priv, err := cipher.GenerateKey(bits)
	if err != nil {
		return err
	}

	if err := cipher.WriteKeyPair(priv, privPath, pubPath); err != nil {
		return err
	}

	fmt.Fprintf(w, "wrote private key to %s\n", privPath)
	fmt.Fprintf(w, "wrote public key to %s\n", pubPath)

	return nil
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info KEY",
		Short: "Describe a public or private key file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return info(args[0], cmd.OutOrStdout())
		},
	}
}

func info(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	defer memlock.Wipe(data)

	if err != nil {
		return err
	}

	ki, err := cipher.InspectKey(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	kind := "RSA public key"
	if ki.Private {
		kind = "RSA private key"
	}

	fmt.Fprintf(w, `%s:
    Type:        %s
    Size:        %d bits
    Fingerprint: %s
`, path, kind, ki.Bits, ki.Fingerprint)

	return nil
}
