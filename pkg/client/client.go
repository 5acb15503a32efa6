package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/time/rate"
)

// DefaultAPIBase is the production directory backend.
const DefaultAPIBase = "https://api.agentdex.id"

// ErrServiceUnavailable is returned when the backend reports that
// registration or claiming is disabled.
var ErrServiceUnavailable = errors.New("directory service unavailable")

// ErrNotFound is returned by Verify when the identifier matches no
// registered agent.
var ErrNotFound = errors.New("agent not found")

// PendingPayment is the Lightning invoice the backend wants settled before
// it completes a registration or claim.
type PendingPayment struct {
	Invoice     string    `json:"invoice"`
	PaymentHash string    `json:"payment_hash"`
	AmountSats  int64     `json:"amount_sats"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SubmitResult is the outcome of a register or claim submission. Exactly one
// branch applies: Accepted true with the acknowledgement fields, or Payment
// non-nil when the backend requires a Lightning payment first. A submission
// the backend rejects outright surfaces as an error instead.
type SubmitResult struct {
	Accepted bool
	Name     string
	Pubkey   string
	Message  string
	Payment  *PendingPayment
}

// PaymentStatus is a normalized payment status check. Paid is true for the
// equivalent backend states "paid" and "completed".
type PaymentStatus struct {
	State string
	Paid  bool
}

// VerifyResult holds the directory's view of one agent.
type VerifyResult struct {
	Verified     bool      `json:"verified"`
	Name         string    `json:"name,omitempty"`
	Pubkey       string    `json:"pubkey,omitempty"`
	Npub         string    `json:"npub,omitempty"`
	TrustScore   int       `json:"trust_score,omitempty"`
	RegisteredAt time.Time `json:"registered_at,omitempty"`
}

// AgentSummary is one search hit.
type AgentSummary struct {
	Pubkey       string   `json:"pubkey"`
	Npub         string   `json:"npub,omitempty"`
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Framework    string   `json:"framework,omitempty"`
	Status       string   `json:"status,omitempty"`
	TrustScore   int      `json:"trust_score,omitempty"`
}

// SearchFilter narrows a directory search. Zero-valued fields are omitted
// from the query.
type SearchFilter struct {
	Query      string
	Capability string
	Framework  string
	Status     string
	MinTrust   int
	Limit      int
}

// Client is the agentdex directory SDK entry point.
type Client struct {
	apiBase    string
	httpClient *http.Client
	apiKey     string
	userAgent  string
	limiter    *rate.Limiter
	cache      *verifyCache
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithAPIKey attaches a bearer token to every request.
func WithAPIKey(key string) Option {
	return func(c *Client) error {
		c.apiKey = key
		return nil
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.httpClient.Timeout = d
		return nil
	}
}

// WithRateLimit caps outgoing requests at rps per second with the given
// burst. Useful for agents that hammer the search endpoint.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rate limit needs positive rps and burst")
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// WithCacheTTL enables in-memory caching of Verify results with the given TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newVerifyCache(ttl)
		return nil
	}
}

// New creates a Client for the directory backend at apiBase.
//
//	c, err := client.New("https://api.agentdex.id",
//	    client.WithAPIKey(key),
//	    client.WithTimeout(20*time.Second),
//	)
func New(apiBase string, opts ...Option) (*Client, error) {
	if apiBase == "" {
		return nil, errors.New("api base URL is required")
	}
	c := &Client{
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  "agentdex-go",
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(apiBase string, opts ...Option) *Client {
	c, err := New(apiBase, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Register submits a signed profile record to POST /register.
func (c *Client) Register(ctx context.Context, record nostr.Event) (*SubmitResult, error) {
	return c.submit(ctx, "/register", submitPayload{Event: record})
}

// Claim submits a name claim with its signed profile record to POST /claim.
func (c *Client) Claim(ctx context.Context, name string, record nostr.Event) (*SubmitResult, error) {
	if name == "" {
		return nil, errors.New("claim name is required")
	}
	return c.submit(ctx, "/claim", submitPayload{Name: name, Event: record})
}

// RegisterStatus checks whether a registration payment has settled.
func (c *Client) RegisterStatus(ctx context.Context, paymentHash string) (*PaymentStatus, error) {
	return c.paymentStatus(ctx, "/register/status", paymentHash)
}

// ClaimStatus checks whether a claim payment has settled.
func (c *Client) ClaimStatus(ctx context.Context, paymentHash string) (*PaymentStatus, error) {
	return c.paymentStatus(ctx, "/claim/status", paymentHash)
}

// Verify looks up one agent by npub, hex pubkey, or claimed name. A missing
// agent is reported as ErrNotFound.
func (c *Client) Verify(ctx context.Context, id string) (*VerifyResult, error) {
	if id == "" {
		return nil, errors.New("verify id is required")
	}

	if c.cache != nil {
		if result, ok := c.cache.get(id); ok {
			return result, nil
		}
	}

	endpoint := c.apiBase + "/verify?id=" + url.QueryEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	status, body, err := c.doStatusBody(req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if status >= 300 {
		return nil, fmt.Errorf("server error %d: %s", status, errorMessage(body))
	}

	var result VerifyResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}

	if c.cache != nil {
		c.cache.set(id, &result)
	}
	return &result, nil
}

// Search queries the directory and returns matching agents.
func (c *Client) Search(ctx context.Context, filter SearchFilter) ([]AgentSummary, error) {
	q := url.Values{}
	if filter.Query != "" {
		q.Set("q", filter.Query)
	}
	if filter.Capability != "" {
		q.Set("capability", filter.Capability)
	}
	if filter.Framework != "" {
		q.Set("framework", filter.Framework)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.MinTrust > 0 {
		q.Set("min_trust", strconv.Itoa(filter.MinTrust))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	endpoint := c.apiBase + "/search"
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Agents []AgentSummary `json:"agents"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return wrapper.Agents, nil
}

type submitPayload struct {
	Name  string      `json:"name,omitempty"`
	Event nostr.Event `json:"event"`
}

// submit posts a record and folds the response into a SubmitResult. A 402
// is a normal outcome here, not an error: it carries the invoice the caller
// must settle.
func (c *Client) submit(ctx context.Context, path string, payload submitPayload) (*SubmitResult, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, body, err := c.doStatusBody(req)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusPaymentRequired:
		var pp PendingPayment
		if err := json.Unmarshal(body, &pp); err != nil {
			return nil, fmt.Errorf("decode payment response: %w", err)
		}
		if pp.Invoice == "" {
			return nil, errors.New("payment required but no invoice supplied")
		}
		return &SubmitResult{Payment: &pp}, nil

	case status == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, errorMessage(body))

	case status == http.StatusUnauthorized:
		return nil, fmt.Errorf("unauthorized: %s", errorMessage(body))

	case status >= 300:
		return nil, fmt.Errorf("server error %d: %s", status, errorMessage(body))
	}

	result := SubmitResult{Accepted: true}
	if len(body) > 0 {
		var ack struct {
			Name    string `json:"name"`
			Pubkey  string `json:"pubkey"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &ack); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		result.Name = ack.Name
		result.Pubkey = ack.Pubkey
		result.Message = ack.Message
	}
	return &result, nil
}

// paymentStatus fetches a status endpoint and normalizes the backend's
// enumerated state into the Paid flag.
func (c *Client) paymentStatus(ctx context.Context, path, paymentHash string) (*PaymentStatus, error) {
	if paymentHash == "" {
		return nil, errors.New("payment hash is required")
	}
	endpoint := c.apiBase + path + "?hash=" + url.QueryEscape(paymentHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &PaymentStatus{State: resp.Status, Paid: paidState(resp.Status)}, nil
}

// paidState folds the backend's enumerated payment states into a boolean.
// "paid" and "completed" are equivalent success states.
func paidState(state string) bool {
	switch strings.ToLower(state) {
	case "paid", "completed":
		return true
	default:
		return false
	}
}

// errorMessage extracts the server-supplied message from an error body,
// falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// do executes a request expected to succeed, attaching auth and bookkeeping
// headers and returning the response body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	status, body, err := c.doStatusBody(req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("not found: %s", req.URL.Path)
	}
	if status == http.StatusUnauthorized {
		return nil, fmt.Errorf("unauthorized: %s", errorMessage(body))
	}
	if status >= 300 {
		return nil, fmt.Errorf("server error %d: %s", status, errorMessage(body))
	}
	return body, nil
}

// doStatusBody is the lower-level HTTP call returning (statusCode, body,
// error) without interpreting 4xx responses. The caller branches on status.
func (c *Client) doStatusBody(req *http.Request) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return 0, nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// --- simple in-memory verify cache ---

type cacheEntry struct {
	result    *VerifyResult
	expiresAt time.Time
}

type verifyCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newVerifyCache(ttl time.Duration) *verifyCache {
	return &verifyCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (vc *verifyCache) get(key string) (*VerifyResult, bool) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	e, ok := vc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.result, true
}

func (vc *verifyCache) set(key string, result *VerifyResult) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.entries[key] = &cacheEntry{result: result, expiresAt: time.Now().Add(vc.ttl)}
}
