// Package envsrc collects secrets from environment variables.
//
// A fixed set of well-known variables is collected first (see [WellKnown]),
// followed by every variable named with the [Prefix] convention. For these,
// the rest of the variable name is converted to kebab case to form the file
// name, so SECRET_STRIPE_KEY is exposed as stripe-key.
package envsrc

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Prefix marks environment variables to be exposed as secrets.
const Prefix = "SECRET_"

// SourceName is recorded as the Source of collected secrets.
const SourceName = "env"

// Mapping maps an environment variable to the file name it's exposed as.
type Mapping struct {
	Var  string
	Name string
}

// WellKnown lists the environment variables that are always collected when
// set, in collection order.
//
//nolint:gochecknoglobals
var WellKnown = []Mapping{
	{"DATABASE_PASSWORD", "database_password"},
	{"API_KEY", "api_key"},
	{"JWT_SECRET", "jwt_secret"},
	{"REDIS_PASSWORD", "redis_password"},
	{"VAULT_TOKEN", "vault_token"},
	{"CONFIG_JSON", "config.json"},
}

// FileName returns the file name for an environment variable following the
// Prefix convention, or false if the variable doesn't follow it.
func FileName(key string) (string, bool) {
	suffix, ok := strings.CutPrefix(key, Prefix)
	if !ok || suffix == "" {
		return "", false
	}

	return strings.ReplaceAll(strings.ToLower(suffix), "_", "-"), true
}

// Collect returns the secrets found in environ, a list of "key=value"
// strings as returned by os.Environ. When a variable is listed more than
// once, the first value is used.
//
// Variables that are set but empty are collected as empty secrets.
func Collect(environ []string, log logrus.FieldLogger) []secretfs.Secret {
	if log == nil {
		log = logrus.StandardLogger()
	}

	vals := make(map[string]string, len(environ))
	keys := make([]string, 0, len(environ))

	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}

		if _, seen := vals[k]; seen {
			continue
		}

		vals[k] = v
		keys = append(keys, k)
	}

	secrets := []secretfs.Secret{}

	for _, m := range WellKnown {
		if v, ok := vals[m.Var]; ok {
			secrets = append(secrets, secretfs.Secret{Name: m.Name, Source: SourceName, Value: []byte(v)})
		}
	}

	for _, k := range keys {
		if !strings.HasPrefix(k, Prefix) {
			continue
		}

		name, ok := FileName(k)
		if !ok || !secretfs.ValidName(name) {
			log.WithField("var", k).Warn("ignoring environment variable: not usable as a file name")

			continue
		}

		log.WithField("name", name).Debug("collected secret from environment")

		secrets = append(secrets, secretfs.Secret{Name: name, Source: SourceName, Value: []byte(vals[k])})
	}

	return secrets
}

// ReadDotenv parses the dotenv file at path, returning its entries as
// "key=value" strings, sorted by key. The process environment is not
// modified.
func ReadDotenv(path string) ([]string, error) {
	m, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + m[k]
	}

	return out, nil
}

type envSource struct {
	log      logrus.FieldLogger
	envFiles []string
}

// New returns a source that collects secrets from the process environment,
// followed by the entries of the given dotenv files. Variables already set in
// the process environment take precedence over dotenv entries.
//
// A dotenv file that can't be read is skipped: its error is returned along
// with the secrets collected from everything else.
func New(log logrus.FieldLogger, envFiles ...string) secretfs.Source {
	return &envSource{log: log, envFiles: envFiles}
}

func (s *envSource) Fetch(_ context.Context) ([]secretfs.Secret, error) {
	environ := os.Environ()

	var errs *multierror.Error

	for _, f := range s.envFiles {
		entries, err := ReadDotenv(f)
		if err != nil {
			errs = multierror.Append(errs, err)

			continue
		}

		environ = append(environ, entries...)
	}

	return Collect(environ, s.log), errs.ErrorOrNil()
}
