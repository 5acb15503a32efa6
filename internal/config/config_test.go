package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIBase, cfg.APIBase)
	assert.Empty(t, cfg.ExtraRelays)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AGENTDEX_API_URL", "https://staging.agentdex.id/")
	t.Setenv("AGENTDEX_API_KEY", "tok-123")
	t.Setenv("AGENTDEX_NSEC", "nsec1example")
	t.Setenv("AGENTDEX_NWC", "nostr+walletconnect://abc?relay=wss%3A%2F%2Fr&secret=s")
	t.Setenv("AGENTDEX_RELAYS", "wss://one.example, wss://two.example,")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.agentdex.id", cfg.APIBase, "trailing slash stripped")
	assert.Equal(t, "tok-123", cfg.APIKey)
	assert.Equal(t, "nsec1example", cfg.Nsec)
	assert.Contains(t, cfg.NWCURI, "walletconnect")
	assert.Equal(t, []string{"wss://one.example", "wss://two.example"}, cfg.ExtraRelays)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "api_url: https://dir.example\nrelays:\n  - wss://file.example\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://dir.example", cfg.APIBase)
	assert.Equal(t, []string{"wss://file.example"}, cfg.ExtraRelays)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://file.example\n"), 0o600))
	t.Setenv("AGENTDEX_API_URL", "https://env.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.APIBase)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestRelaysDedupesPreservingOrder(t *testing.T) {
	cfg := Config{ExtraRelays: []string{"wss://relay.damus.io", "wss://extra.example"}}
	got := cfg.Relays("wss://extra.example", "wss://flag.example", "")
	want := []string{
		"wss://relay.damus.io",
		"wss://nos.lol",
		"wss://extra.example",
		"wss://flag.example",
	}
	assert.Equal(t, want, got)
}

func TestRelaysDefaultsOnly(t *testing.T) {
	assert.Equal(t, DefaultRelays, Config{}.Relays())
}
