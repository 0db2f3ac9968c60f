package envsrc

import (
	"context"
	"testing"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

func pairs(secrets []secretfs.Secret) [][2]string {
	out := make([][2]string, len(secrets))
	for i, s := range secrets {
		out[i] = [2]string{s.Name, string(s.Value)}
	}

	return out
}

func TestFileName(t *testing.T) {
	testdata := []struct {
		in, out string
		ok      bool
	}{
		{"SECRET_STRIPE_KEY", "stripe-key", true},
		{"SECRET_A", "a", true},
		{"SECRET_Mixed_Case__X", "mixed-case--x", true},
		{"SECRET_", "", false},
		{"NOT_SECRET_X", "", false},
		{"secret_lower", "", false},
	}

	for _, d := range testdata {
		name, ok := FileName(d.in)
		assert.Equal(t, d.ok, ok, d.in)
		assert.Equal(t, d.out, name, d.in)
	}
}

func TestCollect(t *testing.T) {
	log, hook := test.NewNullLogger()

	environ := []string{
		"PATH=/usr/bin",
		"SECRET_STRIPE_KEY=sk_test_1",
		"CONFIG_JSON={\"a\":1}",
		"DATABASE_PASSWORD=p@ss1",
		"SECRET_EMPTY=",
		"SECRET_=nope",
		"SECRET_WITH_EQUALS=a=b=c",
		"API_KEY=",
		"SECRET_STRIPE_KEY=duplicate",
		"malformed",
		"=novar",
	}

	secrets := Collect(environ, log)

	assert.Equal(t, [][2]string{
		{"database_password", "p@ss1"},
		{"api_key", ""},
		{"config.json", `{"a":1}`},
		{"stripe-key", "sk_test_1"},
		{"empty", ""},
		{"with-equals", "a=b=c"},
	}, pairs(secrets))

	for _, s := range secrets {
		assert.Equal(t, SourceName, s.Source)
	}

	// SECRET_ has no usable name
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "SECRET_", hook.LastEntry().Data["var"])
}

func TestCollect_Empty(t *testing.T) {
	log, _ := test.NewNullLogger()

	assert.Empty(t, Collect(nil, log))
	assert.Empty(t, Collect([]string{"HOME=/root"}, log))
}

func TestReadDotenv(t *testing.T) {
	tmpDir := fs.NewDir(t, "secretfs-env",
		fs.WithFile("secrets.env", "# comment\nSECRET_B=two\nexport SECRET_A='one'\nJWT_SECRET=\"jwt\"\n"),
	)

	entries, err := ReadDotenv(tmpDir.Join("secrets.env"))
	require.NoError(t, err)
	assert.Equal(t, []string{"JWT_SECRET=jwt", "SECRET_A=one", "SECRET_B=two"}, entries)

	_, err = ReadDotenv(tmpDir.Join("missing.env"))
	require.Error(t, err)
}

func TestEnvSource(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()

	tmpDir := fs.NewDir(t, "secretfs-env",
		fs.WithFile("secrets.env", "SECRETFS_TEST_ONLY_IN_FILE=x\nSECRET_ENVSRC_TEST_FILE=from-file\nSECRET_ENVSRC_TEST_BOTH=from-file\n"),
	)

	t.Setenv("SECRET_ENVSRC_TEST_BOTH", "from-env")
	t.Setenv("REDIS_PASSWORD", "r3d1s")

	secrets, err := New(log, tmpDir.Join("secrets.env")).Fetch(ctx)
	require.NoError(t, err)

	got := map[string]string{}
	for _, s := range secrets {
		got[s.Name] = string(s.Value)
	}

	assert.Equal(t, "from-env", got["envsrc-test-both"])
	assert.Equal(t, "from-file", got["envsrc-test-file"])
	assert.Equal(t, "r3d1s", got["redis_password"])
	assert.NotContains(t, got, "secretfs-test-only-in-file")

	secrets, err = New(log, tmpDir.Join("missing.env"), tmpDir.Join("secrets.env")).Fetch(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.env")

	got = map[string]string{}
	for _, s := range secrets {
		got[s.Name] = string(s.Value)
	}

	assert.Equal(t, "r3d1s", got["redis_password"])
	assert.Equal(t, "from-file", got["envsrc-test-file"])
}
