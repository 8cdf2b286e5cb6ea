package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ValidManifest(t *testing.T) {
	path := writeManifest(t, `
[proxy]
listen = ":8080"
upstream = "http://origin:9000"

[admin]
listen = ":9090"

[[plugin]]
factory = "authguard"
scope = "transaction"
hooks = ["read-request-headers-post-remap"]
[plugin.options]
secret = "s3cr3t"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Proxy.Listen)
	assert.Equal(t, "http://origin:9000", cfg.Proxy.Upstream)
	assert.Equal(t, ":9090", cfg.Admin.Listen)
	require.Len(t, cfg.Plugins, 1)
	assert.Equal(t, "authguard", cfg.Plugins[0].Factory)
	assert.Equal(t, "s3cr3t", cfg.Plugins[0].Options["secret"])
	assert.Equal(t,
		[]plugin.HookType{plugin.HookReadRequestHeadersPostRemap},
		cfg.Plugins[0].HookTypes())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing listen", Config{Proxy: Proxy{Upstream: "http://o"}}, "proxy.listen"},
		{"missing upstream", Config{Proxy: Proxy{Listen: ":1"}}, "proxy.upstream"},
		{"relative upstream", Config{Proxy: Proxy{Listen: ":1", Upstream: "/path"}}, "absolute URL"},
		{
			"missing factory",
			Config{Proxy: Proxy{Listen: ":1", Upstream: "http://o"},
				Plugins: []PluginConfig{{Hooks: []string{"os-dns"}}}},
			"factory required",
		},
		{
			"bad scope",
			Config{Proxy: Proxy{Listen: ":1", Upstream: "http://o"},
				Plugins: []PluginConfig{{Factory: "x", Scope: "session", Hooks: []string{"os-dns"}}}},
			"scope",
		},
		{
			"no hooks",
			Config{Proxy: Proxy{Listen: ":1", Upstream: "http://o"},
				Plugins: []PluginConfig{{Factory: "x"}}},
			"at least one hook",
		},
		{
			"unknown hook",
			Config{Proxy: Proxy{Listen: ":1", Upstream: "http://o"},
				Plugins: []PluginConfig{{Factory: "x", Hooks: []string{"nope"}}}},
			"unknown hook",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_DefaultsScopeToTransaction(t *testing.T) {
	cfg := Config{
		Proxy:   Proxy{Listen: ":1", Upstream: "http://o"},
		Plugins: []PluginConfig{{Factory: "x", Hooks: []string{"os-dns"}}},
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ScopeTransaction, cfg.Plugins[0].Scope)
}

func TestEnvOr(t *testing.T) {
	t.Setenv("EDGE_TEST_KEY", "set")
	assert.Equal(t, "set", EnvOr("EDGE_TEST_KEY", "def"))
	assert.Equal(t, "def", EnvOr("EDGE_TEST_KEY_ABSENT", "def"))
}
