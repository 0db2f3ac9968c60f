package secretfs

import "github.com/hairyhenderson/go-secretfs/internal/memlock"

// Secret is a single named secret value, as collected from the environment or
// fetched from a remote source.
type Secret struct {
	// Name is the file name the secret is exposed as.
	Name string

	// Source describes where the secret came from. Only used for diagnostics.
	Source string

	Value []byte
}

// Wipe zeroes the secret's value and releases it.
func (s *Secret) Wipe() {
	memlock.Wipe(s.Value)
	s.Value = nil
}

// WipeAll zeroes the values of all given secrets.
func WipeAll(secrets []Secret) {
	for i := range secrets {
		secrets[i].Wipe()
	}
}
