package gitsrc

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	"github.com/hairyhenderson/go-git/v5/plumbing/transport"
	githttp "github.com/hairyhenderson/go-git/v5/plumbing/transport/http"
	"github.com/hairyhenderson/go-git/v5/plumbing/transport/ssh"
	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/internal/env"
)

// Authenticator provides a transport.AuthMethod for a repository URL. An error
// is returned when the method doesn't apply to the URL's scheme.
type Authenticator interface {
	Authenticate(u *url.URL) (transport.AuthMethod, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(u *url.URL) (transport.AuthMethod, error)

func (f AuthenticatorFunc) Authenticate(u *url.URL) (transport.AuthMethod, error) {
	return f(u)
}

type withAuthenticatorer interface {
	WithAuthenticator(auth Authenticator) secretfs.Source
}

// WithAuthenticatorSource configures src to authenticate with auth, if the
// source supports it (i.e. has a WithAuthenticator method).
func WithAuthenticatorSource(auth Authenticator, src secretfs.Source) secretfs.Source {
	if s, ok := src.(withAuthenticatorer); ok {
		return s.WithAuthenticator(auth)
	}

	return src
}

// AutoAuthenticator picks the first method that applies to the URL, in this
// order: HTTP basic, HTTP token, SSH public key, SSH agent, and finally no
// authentication.
func AutoAuthenticator() Authenticator {
	return firstOf{
		BasicAuthenticator("", ""),
		TokenAuthenticator(""),
		PublicKeyAuthenticator("", nil, ""),
		SSHAgentAuthenticator(""),
		NoopAuthenticator(),
	}
}

type firstOf []Authenticator

func (a firstOf) Authenticate(u *url.URL) (transport.AuthMethod, error) {
	for _, auth := range a {
		if m, err := auth.Authenticate(u); err == nil {
			return m, nil
		}
	}

	return nil, fmt.Errorf("no authentication method available for scheme %q", u.Scheme)
}

// NoopAuthenticator doesn't authenticate at all, and only applies to the git,
// file, http and https schemes.
func NoopAuthenticator() Authenticator {
	return AuthenticatorFunc(func(u *url.URL) (transport.AuthMethod, error) {
		switch u.Scheme {
		case "git", "file", "http", "https":
			return nil, nil
		default:
			return nil, fmt.Errorf("unauthenticated access not supported for scheme %q", u.Scheme)
		}
	})
}

func requireHTTP(method string, u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s authentication not supported for scheme %q", method, u.Scheme)
	}

	return nil
}

func requireSSH(method string, u *url.URL) error {
	if u.Scheme != "ssh" {
		return fmt.Errorf("%s authentication not supported for scheme %q", method, u.Scheme)
	}

	return nil
}

// BasicAuthenticator uses HTTP Basic authentication. Credentials in the URL
// take precedence, and the password falls back to $GIT_HTTP_PASSWORD.
//
// Hosted git services accept a personal access token as the password.
func BasicAuthenticator(username, password string) Authenticator {
	return &basicAuth{envfs: os.DirFS("/"), username: username, password: password}
}

type basicAuth struct {
	envfs              fs.FS
	username, password string
}

func (a *basicAuth) Authenticate(u *url.URL) (transport.AuthMethod, error) {
	if err := requireHTTP("basic", u); err != nil {
		return nil, err
	}

	username := u.User.Username()
	if username == "" {
		username = a.username
	}

	password, _ := u.User.Password()
	if password == "" {
		password = a.password
	}

	if password == "" {
		password = env.GetenvFS(a.envfs, "GIT_HTTP_PASSWORD")
	}

	if username == "" && password == "" {
		return nil, errors.New("no credentials for basic authentication")
	}

	return &githttp.BasicAuth{Username: username, Password: password}, nil
}

// TokenAuthenticator uses HTTP bearer token authentication. The token falls
// back to $GIT_HTTP_TOKEN.
func TokenAuthenticator(token string) Authenticator {
	return &tokenAuth{envfs: os.DirFS("/"), token: token}
}

type tokenAuth struct {
	envfs fs.FS
	token string
}

func (a *tokenAuth) Authenticate(u *url.URL) (transport.AuthMethod, error) {
	if err := requireHTTP("token", u); err != nil {
		return nil, err
	}

	token := a.token
	if token == "" {
		token = env.GetenvFS(a.envfs, "GIT_HTTP_TOKEN")
	}

	if token == "" {
		return nil, errors.New("no token for token authentication")
	}

	return &githttp.TokenAuth{Token: token}, nil
}

// PublicKeyAuthenticator uses SSH public key authentication with a
// PEM-encoded private key, which falls back to $GIT_SSH_KEY (optionally
// base64-encoded). keyPass decrypts an encrypted key.
func PublicKeyAuthenticator(username string, privKey []byte, keyPass string) Authenticator {
	return &publicKeyAuth{envfs: os.DirFS("/"), username: username, privKey: privKey, keyPass: keyPass}
}

type publicKeyAuth struct {
	envfs    fs.FS
	username string
	keyPass  string
	privKey  []byte
}

func (a *publicKeyAuth) Authenticate(u *url.URL) (transport.AuthMethod, error) {
	if err := requireSSH("public key", u); err != nil {
		return nil, err
	}

	username := u.User.Username()
	if username == "" {
		username = a.username
	}

	key := a.privKey
	if len(key) == 0 {
		raw := env.GetenvFS(a.envfs, "GIT_SSH_KEY")

		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			decoded = []byte(raw)
		}

		key = decoded
	}

	if len(key) == 0 {
		return nil, errors.New("no private key for public key authentication")
	}

	return ssh.NewPublicKeys(username, key, a.keyPass)
}

// SSHAgentAuthenticator authenticates through the SSH agent listening at
// $SSH_AUTH_SOCK. The username defaults to the current user.
func SSHAgentAuthenticator(username string) Authenticator {
	return AuthenticatorFunc(func(u *url.URL) (transport.AuthMethod, error) {
		if err := requireSSH("ssh-agent", u); err != nil {
			return nil, err
		}

		user := u.User.Username()
		if user == "" {
			user = username
		}

		return ssh.NewSSHAgentAuth(user)
	})
}
