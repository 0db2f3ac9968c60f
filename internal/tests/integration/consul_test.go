//go:build !windows

package integration

import (
	"context"
	"io/fs"
	"strconv"
	"testing"

	secretfs "github.com/hairyhenderson/go-secretfs"
	"github.com/hairyhenderson/go-secretfs/consulsrc"
	"github.com/hairyhenderson/go-secretfs/internal/tests"
	"github.com/hashicorp/consul/api"
	vaultapi "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tfs "gotest.tools/v3/fs"
	"gotest.tools/v3/icmd"
)

const consulRootToken = "00000000-1111-2222-3333-444455556667"

type consulTestConfig struct {
	adminClient *api.Client
	testConfig  *api.Config
	consulAddr  string
	testToken   string
}

//nolint:funlen
func setupConsulTest(ctx context.Context, t *testing.T) consulTestConfig {
	t.Helper()
	requireBinary(t, "consul")

	pidDir := tfs.NewDir(t, "secretfs-inttests-pid")

	httpPort, consulAddr := freeport(t)
	serverPort, _ := freeport(t)
	serfLanPort, _ := freeport(t)

	if httpPort == serverPort || httpPort == serfLanPort || serverPort == serfLanPort {
		t.Fatal("failed to find unique free ports")
	}

	consulConfig := `{
	"log_level": "err",
	"primary_datacenter": "dc1",
	"acl": {
		"enabled": true,
		"tokens": {
			"initial_management": "` + consulRootToken + `"
		},
		"default_policy": "deny",
		"enable_token_persistence": false
	},
	"ports": {
		"http": ` + strconv.Itoa(httpPort) + `,
		"server": ` + strconv.Itoa(serverPort) + `,
		"serf_lan": ` + strconv.Itoa(serfLanPort) + `,
		"serf_wan": -1,
		"dns": -1,
		"grpc": -1
	},
	"connect": { "enabled": false }
}`

	tmpDir := tfs.NewDir(t, "secretfs-inttests", tfs.WithFile("consul.json", consulConfig))

	consul := icmd.Command("consul", "agent",
		"-dev",
		"-config-file="+tmpDir.Join("consul.json"),
		"-pid-file="+pidDir.Join("consul.pid"),
	)
	consulResult := icmd.StartCmd(consul)

	t.Cleanup(func() {
		err := consulResult.Cmd.Process.Kill()
		assert.NoError(t, err)

		_ = consulResult.Cmd.Wait()

		t.Logf("consul logs:\n%s\n", consulResult.Combined())
	})

	t.Logf("Fired up Consul: %v", consul)

	err := waitForURL(ctx, t, "http://"+consulAddr+"/v1/status/leader")
	require.NoError(t, err)

	cfg := api.DefaultConfig()
	cfg.Address = "http://" + consulAddr
	cfg.Token = consulRootToken
	adminClient, err := api.NewClient(cfg)
	require.NoError(t, err)

	_, _, err = adminClient.ACL().PolicyCreate(&api.ACLPolicy{
		Name: "appsecrets",
		Rules: `key_prefix "app/" {
	policy = "read"
}
key_prefix "app/private" {
	policy = "deny"
}
`,
	}, nil)
	require.NoError(t, err)

	tok, _, err := adminClient.ACL().TokenCreate(&api.ACLToken{
		Policies: []*api.ACLLink{{Name: "appsecrets"}},
	}, nil)
	require.NoError(t, err)

	testConfig := api.DefaultConfig()
	testConfig.Address = "http://" + consulAddr

	return consulTestConfig{
		consulAddr:  consulAddr,
		testToken:   tok.SecretID,
		adminClient: adminClient,
		testConfig:  testConfig,
	}
}

func TestConsulSource(t *testing.T) {
	ctx := t.Context()
	tcfg := setupConsulTest(ctx, t)

	kv := tcfg.adminClient.KV()

	for k, v := range map[string]string{
		"app/database_password": "p@ss1",
		"app/api_key":           "abc123",
		"app/nested/skipped":    "nope",
		"app/private":           "denied",
		"other/key":             "elsewhere",
	} {
		_, err := kv.Put(&api.KVPair{Key: k, Value: []byte(v)}, nil)
		require.NoError(t, err)
	}

	src, err := consulsrc.New(tests.MustURL("consul+http://" + tcfg.consulAddr + "/app/"))
	require.NoError(t, err)

	src = consulsrc.WithConfigSource(tcfg.testConfig, src)

	// anonymous requests are denied, so nothing is listed
	secrets, err := src.Fetch(ctx)
	if err == nil {
		assert.Empty(t, secrets)
	}

	secrets, err = secretfs.WithTokenSource(tcfg.testToken, src).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"database_password": "p@ss1", "api_key": "abc123"}, names(secrets))

	src, err = consulsrc.New(tests.MustURL("consul+http://" + tcfg.consulAddr + "/app/api_key"))
	require.NoError(t, err)

	secrets, err = secretfs.WithTokenSource(tcfg.testToken, src).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"api_key": "abc123"}, names(secrets))

	src, err = consulsrc.New(tests.MustURL("consul+http://" + tcfg.consulAddr + "/other/key"))
	require.NoError(t, err)

	// outside the token's policy
	_, err = secretfs.WithTokenSource(tcfg.testToken, src).Fetch(ctx)
	require.Error(t, err)

	src, err = consulsrc.New(tests.MustURL("consul+http://" + tcfg.consulAddr + "/app/missing"))
	require.NoError(t, err)

	_, err = secretfs.WithTokenSource(tcfg.testToken, src).Fetch(ctx)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestConsulSource_WithVaultToken(t *testing.T) {
	ctx := t.Context()
	tcfg := setupConsulTest(ctx, t)
	vaultAddr := startVault(ctx, t)

	vaultClient := adminClient(t, vaultAddr)

	err := vaultClient.Sys().MountWithContext(ctx, "consul/", &vaultapi.MountInput{Type: "consul"})
	require.NoError(t, err)

	_, err = vaultClient.Logical().WriteWithContext(ctx, "consul/config/access", map[string]any{
		"address": tcfg.consulAddr, "token": consulRootToken,
	})
	require.NoError(t, err)

	_, err = vaultClient.Logical().WriteWithContext(ctx, "consul/roles/app", map[string]any{
		"consul_policies": "appsecrets",
	})
	require.NoError(t, err)

	_, err = tcfg.adminClient.KV().Put(&api.KVPair{Key: "app/from_vault", Value: []byte("issued")}, nil)
	require.NoError(t, err)

	creds, err := vaultClient.Logical().ReadWithContext(ctx, "consul/creds/app")
	require.NoError(t, err)

	token, ok := creds.Data["token"].(string)
	require.True(t, ok)

	src, err := consulsrc.New(tests.MustURL("consul+http://" + tcfg.consulAddr + "/app/from_vault"))
	require.NoError(t, err)

	secrets, err := secretfs.WithTokenSource(token, src).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"from_vault": "issued"}, names(secrets))
}
