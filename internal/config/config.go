// Package config loads secretfs configuration from command-line flags and
// SECRETFS_-prefixed environment variables.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hairyhenderson/go-secretfs/cipher"
	"github.com/hairyhenderson/go-secretfs/fetcher"
	"github.com/hairyhenderson/go-secretfs/internal/env"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key to form its environment
// variable name, so --cipher-type may be set with SECRETFS_CIPHER_TYPE.
const EnvPrefix = "SECRETFS"

// MountpointEnv overrides the mount point given on the command line.
const MountpointEnv = "FUSE_MOUNTPOINT"

// Configuration keys. Each is also the name of the flag that sets it.
const (
	KeyCipherType     = "cipher-type"
	KeyEncryptionKey  = "encryption-key"
	KeyPublicKeyFile  = "public-key-file"
	KeyPublicKeyPEM   = "public-key-pem"
	KeyURLs           = "urls"
	KeyAuthToken      = "auth-token"
	KeyHeaders        = "headers"
	KeyTimeout        = "timeout-seconds"
	KeyRetryAttempts  = "retry-attempts"
	KeyFetcherType    = "fetcher-type"
	KeyUserAgent      = "user-agent"
	KeyEnvFile        = "env-file"
	KeyAllowOther     = "allow-other"
	KeyDebug          = "debug"
	KeyTracing        = "tracing"
	KeyMemoryLock     = "mlock"
	KeyLogLevel       = "log-level"
	KeyLogFormat      = "log-format"
	KeyPrivateKeyFile = "private-key-file"
	KeyPrivateKeyPEM  = "private-key-pem"
	keyMountpoint     = "mountpoint"
)

// Config is the complete secretfs configuration.
type Config struct {
	Fetch          *fetcher.Config
	Cipher         cipher.Config
	Mountpoint     string
	FetcherType    string
	LogLevel       string
	LogFormat      string
	PrivateKeyFile string
	PrivateKeyPEM  string
	EnvFiles       []string
	AllowOther     bool
	Debug          bool
	Tracing        bool
	MemoryLock     bool
}

// FetchEnabled reports whether secrets should be fetched at all: either
// endpoints are configured, or the mock fetcher (which needs none) is
// selected.
func (c *Config) FetchEnabled() bool {
	if c.Fetch != nil && len(c.Fetch.Endpoints) > 0 {
		return true
	}

	switch strings.ToLower(c.FetcherType) {
	case "mock", "test":
		return true
	}

	return false
}

// AddFlags registers the flags shared by every command that builds a
// filesystem.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(KeyCipherType, "", "cipher used to store secrets: plaintext, default (XOR, demo only), or rsa")
	fs.String(KeyEncryptionKey, "", "key for the XOR cipher")
	fs.String(KeyPublicKeyFile, "", "path to the RSA public key")
	fs.String(KeyPublicKeyPEM, "", "RSA public key, PEM-encoded")
	fs.String(KeyURLs, "", "comma-separated list of URLs to fetch secrets from")
	fs.String(KeyAuthToken, "", "bearer token sent to every endpoint")
	fs.String(KeyHeaders, "", "extra request headers, as Key1:Value1,Key2:Value2")
	fs.Int(KeyTimeout, int(fetcher.DefaultTimeout/time.Second), "timeout for each fetch attempt, in seconds")
	fs.Int(KeyRetryAttempts, fetcher.DefaultRetryAttempts, "number of retries for each endpoint")
	fs.String(KeyFetcherType, "http", "fetcher implementation: http or mock")
	fs.String(KeyUserAgent, fetcher.DefaultUserAgent, "User-Agent sent with HTTP requests")
	fs.StringSlice(KeyEnvFile, nil, "dotenv file(s) to collect secrets from, in addition to the environment")
	fs.Bool(KeyAllowOther, false, "allow other users to access the mount")
	fs.Bool(KeyDebug, false, "log FUSE requests")
	fs.Bool(KeyTracing, false, "export traces with OTLP")
	fs.Bool(KeyMemoryLock, true, "lock secret buffers into memory so they're never swapped")
	fs.String(KeyLogLevel, "info", "log level: trace, debug, info, warn, or error")
	fs.String(KeyLogFormat, "text", "log format: text or json")
}

// BindFlags binds every flag of cmd to v, and sets v up to read
// SECRETFS_-prefixed environment variables.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var result error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			result = multierror.Append(result, err)
		}
	})

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := v.BindEnv(keyMountpoint, MountpointEnv); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

// Load reads the configuration from v. The mount point is taken from
// FUSE_MOUNTPOINT when set, and from args[0] otherwise.
//
// The encryption key, auth token and private key PEM may also be read from
// the file named by the same variable with a _FILE suffix.
func Load(v *viper.Viper, args []string) *Config {
	c := &Config{
		Cipher: cipher.Config{
			Mode:          v.GetString(KeyCipherType),
			Key:           withFileFallback(v, KeyEncryptionKey),
			PublicKeyFile: v.GetString(KeyPublicKeyFile),
			PublicKeyPEM:  v.GetString(KeyPublicKeyPEM),
		},
		FetcherType:    v.GetString(KeyFetcherType),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		PrivateKeyFile: v.GetString(KeyPrivateKeyFile),
		PrivateKeyPEM:  withFileFallback(v, KeyPrivateKeyPEM),
		EnvFiles:       v.GetStringSlice(KeyEnvFile),
		AllowOther:     v.GetBool(KeyAllowOther),
		Debug:          v.GetBool(KeyDebug),
		Tracing:        v.GetBool(KeyTracing),
		MemoryLock:     v.GetBool(KeyMemoryLock),
	}

	c.Mountpoint = v.GetString(keyMountpoint)
	if c.Mountpoint == "" && len(args) > 0 {
		c.Mountpoint = args[0]
	}

	fc := fetcher.NewConfig(fetcher.ParseEndpoints(v.GetString(KeyURLs))...)
	fc.Token = withFileFallback(v, KeyAuthToken)
	fc.Headers = fetcher.ParseHeaders(v.GetString(KeyHeaders))
	fc.Timeout = time.Duration(v.GetInt(KeyTimeout)) * time.Second
	fc.RetryAttempts = v.GetInt(KeyRetryAttempts)

	if ua := v.GetString(KeyUserAgent); ua != "" {
		fc.UserAgent = ua
	}

	c.Fetch = fc

	return c
}

// withFileFallback returns the value of key, or when it's unset, the contents
// of the file named by the key's environment variable with a _FILE suffix.
func withFileFallback(v *viper.Viper, key string) string {
	if s := v.GetString(key); s != "" {
		return s
	}

	return env.Getenv(EnvVar(key))
}

// EnvVar returns the environment variable that sets key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// NewLogger returns a logger writing to w at the given level, formatted as
// text or JSON.
func NewLogger(w io.Writer, level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}

	return log, nil
}
