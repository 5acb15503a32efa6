package client

import "os"

// NewFromEnv creates a Client from the AGENTDEX_API_URL and AGENTDEX_API_KEY
// environment variables, falling back to DefaultAPIBase. It is the
// one-liner for scripted SDK use; the CLI layers its own config on top.
//
// Additional options can be appended:
//
//	c, err := client.NewFromEnv(client.WithCacheTTL(60 * time.Second))
func NewFromEnv(opts ...Option) (*Client, error) {
	base := os.Getenv("AGENTDEX_API_URL")
	if base == "" {
		base = DefaultAPIBase
	}
	if key := os.Getenv("AGENTDEX_API_KEY"); key != "" {
		opts = append([]Option{WithAPIKey(key)}, opts...)
	}
	return New(base, opts...)
}
