package cipher

import (
	"fmt"
	"os"
	"strings"

	"github.com/hairyhenderson/go-secretfs/internal/memlock"
	"github.com/sirupsen/logrus"
)

// Mode selects a cipher implementation.
type Mode string

const (
	ModeXOR       Mode = "default"
	ModePlaintext Mode = "plaintext"
	ModeRSA       Mode = "rsa"
)

// ParseMode maps a configured cipher name to a Mode. The empty string means
// no cipher was configured and maps to ModePlaintext. Unknown names map to
// ModeXOR, with ok reporting whether s was recognized.
func ParseMode(s string) (m Mode, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plaintext", "none", "noop":
		return ModePlaintext, true
	case "rsa", "asymmetric":
		return ModeRSA, true
	case "default", "xor", "symmetric", "demo":
		return ModeXOR, true
	}

	return ModeXOR, false
}

// Config describes the cipher to use.
type Config struct {
	// Mode is the cipher name, see ParseMode.
	Mode string

	// Key is the XOR key. DefaultKey is used when empty.
	Key string

	// PublicKeyPEM is the RSA public key. Takes precedence over PublicKeyFile.
	PublicKeyPEM string

	// PublicKeyFile is the path to a file holding the RSA public key.
	PublicKeyFile string
}

// New returns the cipher described by cfg. It never fails: when the
// configured cipher can't be built, a diagnostic is logged and the XOR cipher
// with the default key is returned instead.
func New(cfg Config, log logrus.FieldLogger) Cipher {
	if log == nil {
		log = logrus.StandardLogger()
	}

	mode, ok := ParseMode(cfg.Mode)
	if !ok {
		log.WithField("cipher", cfg.Mode).Warn("unknown cipher type, using the default XOR cipher")
	}

	switch mode {
	case ModePlaintext:
		log.Warn("encryption disabled: secrets are stored and served in plaintext")

		return Plaintext{}
	case ModeRSA:
		c, err := NewRSAFromConfig(cfg)
		if err == nil {
			return c
		}

		log.WithError(err).Warn("RSA cipher unavailable, falling back to the default XOR cipher. " +
			"Set a public key with SECRETFS_PUBLIC_KEY_PEM or SECRETFS_PUBLIC_KEY_FILE")

		return defaultXOR()
	}

	key := []byte(cfg.Key)
	defer memlock.Wipe(key)

	if len(key) == 0 {
		log.Warn("no encryption key set, using the built-in default key (demo only)")

		return defaultXOR()
	}

	c, err := NewXOR(key)
	if err != nil {
		log.WithError(err).Warn("XOR cipher unavailable, using the built-in default key")

		return defaultXOR()
	}

	return c
}

func defaultXOR() *XOR {
	c, _ := NewXOR([]byte(DefaultKey))

	return c
}

// NewRSAFromConfig builds an RSA cipher from the public key in cfg.
func NewRSAFromConfig(cfg Config) (*RSA, error) {
	var data []byte

	switch {
	case cfg.PublicKeyPEM != "":
		data = []byte(cfg.PublicKeyPEM)
	case cfg.PublicKeyFile != "":
		b, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, &Error{Op: "init", Err: fmt.Errorf("read public key: %w", err)}
		}

		data = b
	default:
		return nil, &Error{Op: "init", Err: fmt.Errorf("%w: no RSA public key PEM or public key file configured", ErrNoKeyMaterial)}
	}

	defer memlock.Wipe(data)

	pub, err := ParsePublicKey(data)
	if err != nil {
		return nil, &Error{Op: "init", Err: err}
	}

	return NewRSA(pub)
}
