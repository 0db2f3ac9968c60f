package cipher

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

const (
	// DefaultKeyBits is the default size of generated keys.
	DefaultKeyBits = 2048

	// MinKeyBits is the smallest key size GenerateKey accepts.
	MinKeyBits = 1024
)

var errNotRSA = errors.New("not an RSA key")

// GenerateKey generates a new RSA private key of the given size.
func GenerateKey(bits int) (*rsa.PrivateKey, error) {
	if bits < MinKeyBits {
		return nil, fmt.Errorf("key size %d too small, must be at least %d bits", bits, MinKeyBits)
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	return priv, nil
}

// MarshalPrivateKeyPEM encodes priv as a PKCS #8 "PRIVATE KEY" PEM block.
func MarshalPrivateKeyPEM(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// MarshalPublicKeyPEM encodes pub as a PKIX "PUBLIC KEY" PEM block.
func MarshalPublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// WriteKeyPair writes priv and its public key to the given paths, as PEM. The
// private key file is only readable by its owner.
func WriteKeyPair(priv *rsa.PrivateKey, privPath, pubPath string) error {
	privPEM, err := MarshalPrivateKeyPEM(priv)
	if err != nil {
		return err
	}

	pubPEM, err := MarshalPublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return err
	}

	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}

	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}

	return nil
}

// ParsePublicKey parses an RSA public key. Accepted forms are PEM-encoded
// PKIX ("PUBLIC KEY"), PKCS #1 ("RSA PUBLIC KEY") and X.509 certificates,
// and OpenSSH authorized_keys lines ("ssh-rsa AAAA...").
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	data = bytes.TrimSpace(data)

	block, _ := pem.Decode(data)
	if block == nil {
		pub, err := parseAuthorizedKey(data)
		if err == nil || errors.Is(err, errNotRSA) {
			return pub, err
		}

		return nil, errors.New("parse public key: no PEM data found")
	}

	switch block.Type {
	case "PUBLIC KEY":
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}

		return asRSAPublicKey(key)
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}

		return key, nil
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}

		return asRSAPublicKey(cert.PublicKey)
	case "PRIVATE KEY", "RSA PRIVATE KEY", "OPENSSH PRIVATE KEY":
		return nil, fmt.Errorf("parse public key: got a private key (%s), expected a public key", block.Type)
	default:
		return nil, fmt.Errorf("parse public key: unsupported PEM block type %q", block.Type)
	}
}

func parseAuthorizedKey(data []byte) (*rsa.PublicKey, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, fmt.Errorf("parse ssh public key: %w", err)
	}

	ck, ok := key.(ssh.CryptoPublicKey)
	if !ok {
		return nil, fmt.Errorf("parse ssh public key: %s: %w", key.Type(), errNotRSA)
	}

	return asRSAPublicKey(ck.CryptoPublicKey())
}

func asRSAPublicKey(key any) (*rsa.PublicKey, error) {
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%T: %w", key, errNotRSA)
	}

	return pub, nil
}

// ParsePrivateKey parses a PEM-encoded RSA private key, in PKCS #8
// ("PRIVATE KEY"), PKCS #1 ("RSA PRIVATE KEY") or OpenSSH form. Encrypted
// keys are not supported.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(bytes.TrimSpace(data))
	if block == nil {
		return nil, errors.New("parse private key: no PEM data found")
	}

	var (
		key any
		err error
	)

	switch block.Type {
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "OPENSSH PRIVATE KEY":
		key, err = ssh.ParseRawPrivateKey(data)
	default:
		return nil, fmt.Errorf("parse private key: unsupported PEM block type %q", block.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("parse private key: %T: %w", key, errNotRSA)
	}

	return priv, nil
}

// KeyInfo describes a key file.
type KeyInfo struct {
	// Fingerprint is the OpenSSH SHA256 fingerprint of the public key.
	Fingerprint string
	Bits        int
	Private     bool
}

// InspectKey parses a public or private key and describes it.
func InspectKey(data []byte) (*KeyInfo, error) {
	info := &KeyInfo{}

	pub, err := ParsePublicKey(data)
	if err != nil {
		priv, perr := ParsePrivateKey(data)
		if perr != nil {
			return nil, fmt.Errorf("not a supported public or private key: %w", errors.Join(err, perr))
		}

		pub = &priv.PublicKey
		info.Private = true
	}

	sshKey, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	info.Bits = pub.N.BitLen()
	info.Fingerprint = ssh.FingerprintSHA256(sshKey)

	return info, nil
}
