// Package nip05 resolves NIP-05 identifiers (name@domain) into Nostr public
// keys by fetching the domain's /.well-known/nostr.json document.
//
// Results are cached in-memory with a configurable TTL so repeated lookups
// within one invocation do not refetch the document.
package nip05

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNameNotListed means the domain's nostr.json does not carry the name.
var ErrNameNotListed = errors.New("name not listed in nostr.json")

// Config holds resolver configuration.
type Config struct {
	CacheTTL    time.Duration // 0 disables caching
	HTTPTimeout time.Duration // default 5s
}

// Resolver resolves NIP-05 identifiers against their domains.
type Resolver struct {
	cfg        Config
	httpClient *http.Client
	cache      *identCache
	logger     *zap.Logger
}

// New creates a Resolver.
func New(cfg Config, logger *zap.Logger) *Resolver {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Resolver{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
	if cfg.CacheTTL > 0 {
		r.cache = newIdentCache(cfg.CacheTTL)
	}
	return r
}

// Result is a successful resolution.
type Result struct {
	Pubkey string   // 64-char hex
	Relays []string // relay hints the document lists for the key, if any
}

// localPartRe matches the local parts NIP-05 permits.
var localPartRe = regexp.MustCompile(`^[a-z0-9._-]+$`)

// Resolve translates a NIP-05 identifier into its public key by:
//  1. Checking the in-memory cache
//  2. Fetching https://<domain>/.well-known/nostr.json?name=<local> on a miss
//  3. Caching the result and returning it
//
// A bare domain is treated as _@<domain>. Identifiers are case-insensitive.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (Result, error) {
	local, domain, err := splitIdentifier(identifier)
	if err != nil {
		return Result{}, err
	}

	cacheKey := local + "@" + domain
	if r.cache != nil {
		if result, ok := r.cache.get(cacheKey); ok {
			r.logger.Debug("nip05: cache hit", zap.String("identifier", cacheKey))
			return result, nil
		}
	}

	result, err := r.fetch(ctx, local, domain)
	if err != nil {
		return Result{}, err
	}

	if r.cache != nil {
		r.cache.set(cacheKey, result)
	}
	r.logger.Debug("nip05: resolved",
		zap.String("identifier", cacheKey),
		zap.String("pubkey", result.Pubkey),
	)
	return result, nil
}

// wellKnownDoc mirrors the JSON served at /.well-known/nostr.json.
type wellKnownDoc struct {
	Names  map[string]string   `json:"names"`
	Relays map[string][]string `json:"relays"`
}

func (r *Resolver) fetch(ctx context.Context, local, domain string) (Result, error) {
	endpoint := fmt.Sprintf("%s://%s/.well-known/nostr.json?name=%s",
		schemeFor(domain), domain, url.QueryEscape(local))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build nostr.json request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch nostr.json for %s: %w", domain, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return Result{}, fmt.Errorf("read nostr.json response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("nostr.json request for %s failed: status %d", domain, resp.StatusCode)
	}

	var doc wellKnownDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return Result{}, fmt.Errorf("decode nostr.json for %s: %w", domain, err)
	}

	pubkey, ok := doc.Names[local]
	if !ok {
		return Result{}, fmt.Errorf("%s@%s: %w", local, domain, ErrNameNotListed)
	}
	pubkey = strings.ToLower(pubkey)
	if !isHex64(pubkey) {
		return Result{}, fmt.Errorf("nostr.json for %s lists a malformed key for %q", domain, local)
	}

	return Result{Pubkey: pubkey, Relays: doc.Relays[pubkey]}, nil
}

// splitIdentifier normalizes and validates a NIP-05 identifier.
func splitIdentifier(identifier string) (local, domain string, err error) {
	s := strings.ToLower(strings.TrimSpace(identifier))
	local, domain = "_", s
	if at := strings.LastIndex(s, "@"); at >= 0 {
		local, domain = s[:at], s[at+1:]
	}
	if local == "" || !localPartRe.MatchString(local) {
		return "", "", fmt.Errorf("invalid name %q in identifier %q", local, identifier)
	}
	if domain == "" || strings.ContainsAny(domain, "/ ") {
		return "", "", fmt.Errorf("invalid domain %q in identifier %q", domain, identifier)
	}
	return local, domain, nil
}

// schemeFor returns http for loopback domains so local development servers
// work without TLS.
func schemeFor(domain string) string {
	host := domain
	if h, _, err := net.SplitHostPort(domain); err == nil {
		host = h
	}
	if host == "localhost" {
		return "http"
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return "http"
	}
	return "https"
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
