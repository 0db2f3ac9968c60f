package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/hairyhenderson/go-secretfs/fetcher"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tfs "gotest.tools/v3/fs"
)

func setup(t *testing.T, args ...string) (*viper.Viper, []string) {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}
	AddFlags(cmd.Flags())

	require.NoError(t, cmd.Flags().Parse(args))

	v := viper.New()
	require.NoError(t, BindFlags(cmd, v))

	return v, cmd.Flags().Args()
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(MountpointEnv, "")

	v, args := setup(t, "/mnt/secrets")
	c := Load(v, args)

	assert.Equal(t, "/mnt/secrets", c.Mountpoint)
	assert.Equal(t, "", c.Cipher.Mode)
	assert.Equal(t, "http", c.FetcherType)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.True(t, c.MemoryLock)
	assert.False(t, c.AllowOther)

	require.NotNil(t, c.Fetch)
	assert.Empty(t, c.Fetch.Endpoints)
	assert.Equal(t, 30*time.Second, c.Fetch.Timeout)
	assert.Equal(t, 3, c.Fetch.RetryAttempts)
	assert.Equal(t, "secretfs/1.0", c.Fetch.UserAgent)
	assert.False(t, c.FetchEnabled())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SECRETFS_CIPHER_TYPE", "rsa")
	t.Setenv("SECRETFS_PUBLIC_KEY_FILE", "/etc/secretfs/public.pem")
	t.Setenv("SECRETFS_URLS", "https://a.example.com/secrets, vault:///secret/app/")
	t.Setenv("SECRETFS_AUTH_TOKEN", "tok")
	t.Setenv("SECRETFS_HEADERS", "X-Env:prod,Authorization:Basic abc")
	t.Setenv("SECRETFS_TIMEOUT_SECONDS", "5")
	t.Setenv("SECRETFS_RETRY_ATTEMPTS", "0")
	t.Setenv("SECRETFS_ALLOW_OTHER", "true")
	t.Setenv("SECRETFS_LOG_LEVEL", "debug")
	t.Setenv(MountpointEnv, "/run/secrets")

	v, args := setup(t, "/mnt/ignored")
	c := Load(v, args)

	assert.Equal(t, "/run/secrets", c.Mountpoint)
	assert.Equal(t, "rsa", c.Cipher.Mode)
	assert.Equal(t, "/etc/secretfs/public.pem", c.Cipher.PublicKeyFile)
	assert.Equal(t, []string{"https://a.example.com/secrets", "vault:///secret/app/"}, c.Fetch.Endpoints)
	assert.Equal(t, "tok", c.Fetch.Token)
	assert.Equal(t, 5*time.Second, c.Fetch.Timeout)
	assert.Equal(t, 0, c.Fetch.RetryAttempts)
	assert.True(t, c.AllowOther)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.FetchEnabled())

	h := c.Fetch.RequestHeaders()
	assert.Equal(t, "prod", h.Get("X-Env"))
	assert.Equal(t, "Basic abc", h.Get("Authorization"))
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv(MountpointEnv, "")
	t.Setenv("SECRETFS_CIPHER_TYPE", "rsa")
	t.Setenv("SECRETFS_FETCHER_TYPE", "http")

	v, args := setup(t, "--cipher-type=xor", "--encryption-key=k", "--fetcher-type=mock", "/mnt")
	c := Load(v, args)

	assert.Equal(t, "xor", c.Cipher.Mode)
	assert.Equal(t, "k", c.Cipher.Key)
	assert.Equal(t, "mock", c.FetcherType)
	assert.True(t, c.FetchEnabled())
	assert.Equal(t, "/mnt", c.Mountpoint)
}

func TestLoad_FileFallback(t *testing.T) {
	tmpDir := tfs.NewDir(t, "secretfs-config",
		tfs.WithFile("key", "from-file\n"),
		tfs.WithFile("token", "token-from-file"),
	)

	t.Setenv("SECRETFS_ENCRYPTION_KEY_FILE", tmpDir.Join("key"))
	t.Setenv("SECRETFS_AUTH_TOKEN_FILE", tmpDir.Join("token"))

	v, args := setup(t)
	c := Load(v, args)

	assert.Equal(t, "from-file", c.Cipher.Key)
	assert.Equal(t, "token-from-file", c.Fetch.Token)
	assert.Equal(t, "Bearer token-from-file", c.Fetch.RequestHeaders().Get("Authorization"))

	// an explicit value wins over the file
	t.Setenv("SECRETFS_ENCRYPTION_KEY", "direct")

	c = Load(v, args)
	assert.Equal(t, "direct", c.Cipher.Key)
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "SECRETFS_CIPHER_TYPE", EnvVar(KeyCipherType))
	assert.Equal(t, "SECRETFS_PRIVATE_KEY_PEM", EnvVar(KeyPrivateKeyPEM))
	assert.Equal(t, "SECRETFS_URLS", EnvVar(KeyURLs))
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}

	log, err := NewLogger(buf, "warn", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	log.WithField("name", "api_key").Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"name":"api_key"`)

	_, err = NewLogger(buf, "loud", "text")
	require.Error(t, err)

	_, err = NewLogger(buf, "info", "xml")
	require.Error(t, err)
}

func TestFetchEnabled(t *testing.T) {
	c := &Config{}
	assert.False(t, c.FetchEnabled())

	c.FetcherType = "TEST"
	assert.True(t, c.FetchEnabled())

	c = &Config{Fetch: fetcher.NewConfig("https://example.com")}
	assert.True(t, c.FetchEnabled())
}
