// Package config builds the process-wide configuration for a single command
// invocation.
//
// Configuration is resolved once at command entry and passed explicitly to
// every component — there is no hidden global state. Precedence, lowest to
// highest: built-in defaults, ~/.agentdex/config.yaml (or --config), then
// AGENTDEX_* environment variables. Per-command flags override on top of the
// returned struct.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Koda-Builds/agentdex-cli/pkg/client"
)

// DefaultAPIBase is the production directory backend.
const DefaultAPIBase = client.DefaultAPIBase

// DefaultRelays are always published to. User-supplied relays are appended,
// never substituted.
var DefaultRelays = []string{
	"wss://relay.damus.io",
	"wss://nos.lol",
}

// Config holds everything a command needs beyond its own flags.
type Config struct {
	// APIBase is the directory backend base URL (AGENTDEX_API_URL).
	APIBase string

	// APIKey is the optional bearer token for backend calls (AGENTDEX_API_KEY).
	APIKey string

	// Nsec is the secret key from the environment or config file
	// (AGENTDEX_NSEC). The --nsec flag takes precedence in keys.Resolve.
	Nsec string

	// NWCURI is the nostr+walletconnect:// credential used for auto-pay
	// (AGENTDEX_NWC). Empty disables auto-pay.
	NWCURI string

	// ExtraRelays are appended to DefaultRelays (AGENTDEX_RELAYS,
	// comma-separated, or a list in the config file).
	ExtraRelays []string
}

// Load reads the configuration. cfgFile overrides the default config file
// location when non-empty; a missing config file is not an error.
func Load(cfgFile string) (Config, error) {
	// Optional .env for development. Missing file is fine.
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".agentdex"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("agentdex")
	v.AutomaticEnv()

	v.SetDefault("api_url", DefaultAPIBase)

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return Config{}, fmt.Errorf("read config %q: %w", cfgFile, err)
		}
		// The default config file is optional; anything else is real.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		APIBase:     strings.TrimRight(v.GetString("api_url"), "/"),
		APIKey:      v.GetString("api_key"),
		Nsec:        v.GetString("nsec"),
		NWCURI:      v.GetString("nwc"),
		ExtraRelays: relayList(v.Get("relays")),
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	return cfg, nil
}

// Relays returns the relay set for a publish: the defaults, then the
// configured extras, then any flag-supplied extras, duplicates removed
// preserving first occurrence.
func (c Config) Relays(extra ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{DefaultRelays, c.ExtraRelays, extra} {
		for _, r := range group {
			r = strings.TrimSpace(r)
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// relayList accepts either a comma-separated string (env var) or a list
// (config file) and normalises it to a string slice.
func relayList(raw any) []string {
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		var out []string
		for _, part := range strings.Split(val, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return val
	default:
		return nil
	}
}
