// Package nwc pays Lightning invoices through a Nostr Wallet Connect
// (NIP-47) wallet.
//
// The wallet is addressed by a nostr+walletconnect:// URI carrying the
// wallet's public key, at least one relay, and a client secret. A payment is
// a round trip over the relay: an encrypted pay_invoice request event,
// answered by an encrypted response event referencing the request id.
package nwc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
	"go.uber.org/zap"
)

// DefaultTimeout bounds one payment round trip per relay.
const DefaultTimeout = 60 * time.Second

// Config is a parsed wallet-connect URI.
type Config struct {
	WalletPubkey string
	Relays       []string
	Secret       string
	ClientPubkey string
	Lud16        string
}

// Parse validates a nostr+walletconnect:// URI. The legacy
// nostrwalletconnect:// scheme is accepted too.
func Parse(raw string) (Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse wallet URI: %w", err)
	}
	if u.Scheme != "nostr+walletconnect" && u.Scheme != "nostrwalletconnect" {
		return Config{}, fmt.Errorf("wallet URI scheme %q is not nostr+walletconnect", u.Scheme)
	}

	pubkey := u.Host
	if pubkey == "" {
		pubkey = u.Opaque
	}
	pubkey = strings.ToLower(pubkey)
	if !isHex64(pubkey) {
		return Config{}, errors.New("wallet URI missing a hex wallet pubkey")
	}

	q := u.Query()
	relays := q["relay"]
	if len(relays) == 0 {
		return Config{}, errors.New("wallet URI missing relay parameter")
	}
	secret := strings.ToLower(q.Get("secret"))
	if !isHex64(secret) {
		return Config{}, errors.New("wallet URI missing a hex secret parameter")
	}
	clientPub, err := nostr.GetPublicKey(secret)
	if err != nil {
		return Config{}, fmt.Errorf("derive client pubkey: %w", err)
	}

	return Config{
		WalletPubkey: pubkey,
		Relays:       relays,
		Secret:       secret,
		ClientPubkey: clientPub,
		Lud16:        q.Get("lud16"),
	}, nil
}

// Client issues NIP-47 requests against one wallet.
type Client struct {
	cfg     Config
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient parses the URI and returns a ready client. A nil logger disables
// logging.
func NewClient(uri string, logger *zap.Logger) (*Client, error) {
	cfg, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, timeout: DefaultTimeout, logger: logger}, nil
}

type payRequest struct {
	Method string    `json:"method"`
	Params payParams `json:"params"`
}

type payParams struct {
	Invoice string `json:"invoice"`
}

type payResponse struct {
	ResultType string `json:"result_type"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Result *struct {
		Preimage string `json:"preimage"`
	} `json:"result"`
}

// PayInvoice asks the wallet to settle the invoice and returns the payment
// preimage. Relays from the URI are tried in order until one round trip
// completes.
func (c *Client) PayInvoice(ctx context.Context, invoice string) (string, error) {
	shared, err := nip04.ComputeSharedSecret(c.cfg.WalletPubkey, c.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("wallet shared secret: %w", err)
	}

	body, err := json.Marshal(payRequest{Method: "pay_invoice", Params: payParams{Invoice: invoice}})
	if err != nil {
		return "", err
	}
	content, err := nip04.Encrypt(string(body), shared)
	if err != nil {
		return "", fmt.Errorf("encrypt wallet request: %w", err)
	}

	ev := nostr.Event{
		Kind:      nostr.KindNWCWalletRequest,
		CreatedAt: nostr.Now(),
		Tags:      nostr.Tags{{"p", c.cfg.WalletPubkey}},
		Content:   content,
	}
	if err := ev.Sign(c.cfg.Secret); err != nil {
		return "", fmt.Errorf("sign wallet request: %w", err)
	}

	var lastErr error
	for _, relayURL := range c.cfg.Relays {
		preimage, err := c.payVia(ctx, relayURL, ev, shared)
		if err == nil {
			return preimage, nil
		}
		lastErr = err
		c.logger.Debug("nwc: relay attempt failed",
			zap.String("relay", relayURL),
			zap.Error(err),
		)
	}
	return "", lastErr
}

// payVia runs one request/response round trip over a single relay.
func (c *Client) payVia(ctx context.Context, relayURL string, ev nostr.Event, shared []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := nostr.RelayConnect(ctx, relayURL)
	if err != nil {
		return "", fmt.Errorf("connect %s: %w", relayURL, err)
	}
	defer conn.Close()

	// Small lookback absorbs clock skew; the e-tag filter pins the
	// subscription to this exact request.
	since := nostr.Timestamp(time.Now().Add(-time.Minute).Unix())
	sub, err := conn.Subscribe(ctx, nostr.Filters{{
		Kinds:   []int{nostr.KindNWCWalletResponse},
		Authors: []string{c.cfg.WalletPubkey},
		Tags:    nostr.TagMap{"e": []string{ev.ID}},
		Since:   &since,
	}})
	if err != nil {
		return "", fmt.Errorf("subscribe %s: %w", relayURL, err)
	}
	defer sub.Unsub()

	if err := conn.Publish(ctx, ev); err != nil {
		return "", fmt.Errorf("publish wallet request: %w", err)
	}

	select {
	case resp, ok := <-sub.Events:
		if !ok || resp == nil {
			return "", errors.New("wallet subscription closed")
		}
		return decodeResponse(resp.Content, shared)
	case <-ctx.Done():
		return "", fmt.Errorf("wallet response: %w", ctx.Err())
	}
}

// decodeResponse decrypts and validates a wallet response, returning the
// preimage.
func decodeResponse(content string, shared []byte) (string, error) {
	plaintext, err := nip04.Decrypt(content, shared)
	if err != nil {
		return "", fmt.Errorf("decrypt wallet response: %w", err)
	}
	var resp payResponse
	if err := json.Unmarshal([]byte(plaintext), &resp); err != nil {
		return "", fmt.Errorf("decode wallet response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("wallet refused: %s (%s)", resp.Error.Message, resp.Error.Code)
	}
	if resp.Result == nil || resp.Result.Preimage == "" {
		return "", errors.New("wallet response missing preimage")
	}
	return resp.Result.Preimage, nil
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
