package nwc

import (
	"encoding/json"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPair(t *testing.T) (secret, pubkey string) {
	t.Helper()
	secret = nostr.GeneratePrivateKey()
	pubkey, err := nostr.GetPublicKey(secret)
	require.NoError(t, err)
	return secret, pubkey
}

func TestParse(t *testing.T) {
	clientSecret, clientPub := testPair(t)
	_, walletPub := testPair(t)

	uri := "nostr+walletconnect://" + walletPub +
		"?relay=wss%3A%2F%2Frelay.getalby.com%2Fv1&secret=" + clientSecret +
		"&lud16=user%40getalby.com"

	cfg, err := Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, walletPub, cfg.WalletPubkey)
	assert.Equal(t, []string{"wss://relay.getalby.com/v1"}, cfg.Relays)
	assert.Equal(t, clientSecret, cfg.Secret)
	assert.Equal(t, clientPub, cfg.ClientPubkey)
	assert.Equal(t, "user@getalby.com", cfg.Lud16)
}

func TestParseLegacySchemeAndOpaqueForm(t *testing.T) {
	clientSecret, _ := testPair(t)
	_, walletPub := testPair(t)

	for _, uri := range []string{
		"nostrwalletconnect://" + walletPub + "?relay=wss://r.example&secret=" + clientSecret,
		"nostr+walletconnect:" + walletPub + "?relay=wss://r.example&secret=" + clientSecret,
	} {
		cfg, err := Parse(uri)
		require.NoError(t, err, "uri %q", uri)
		assert.Equal(t, walletPub, cfg.WalletPubkey)
	}
}

func TestParseMultipleRelays(t *testing.T) {
	clientSecret, _ := testPair(t)
	_, walletPub := testPair(t)

	cfg, err := Parse("nostr+walletconnect://" + walletPub +
		"?relay=wss://a.example&relay=wss://b.example&secret=" + clientSecret)
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://a.example", "wss://b.example"}, cfg.Relays)
}

func TestParseRejectsBadURIs(t *testing.T) {
	clientSecret, _ := testPair(t)
	_, walletPub := testPair(t)

	cases := map[string]string{
		"wrong scheme":   "https://" + walletPub + "?relay=wss://r&secret=" + clientSecret,
		"no pubkey":      "nostr+walletconnect://?relay=wss://r&secret=" + clientSecret,
		"short pubkey":   "nostr+walletconnect://abcd?relay=wss://r&secret=" + clientSecret,
		"no relay":       "nostr+walletconnect://" + walletPub + "?secret=" + clientSecret,
		"no secret":      "nostr+walletconnect://" + walletPub + "?relay=wss://r",
		"bad secret hex": "nostr+walletconnect://" + walletPub + "?relay=wss://r&secret=zzz",
	}
	for name, uri := range cases {
		_, err := Parse(uri)
		assert.Error(t, err, name)
	}
}

func TestDecodeResponsePreimage(t *testing.T) {
	clientSecret, clientPub := testPair(t)
	walletSecret, walletPub := testPair(t)

	// Wallet side encrypts with its secret and the client's pubkey; the
	// client decrypts with the mirrored pair.
	walletShared, err := nip04.ComputeSharedSecret(clientPub, walletSecret)
	require.NoError(t, err)
	clientShared, err := nip04.ComputeSharedSecret(walletPub, clientSecret)
	require.NoError(t, err)

	encrypt := func(v any) string {
		body, err := json.Marshal(v)
		require.NoError(t, err)
		out, err := nip04.Encrypt(string(body), walletShared)
		require.NoError(t, err)
		return out
	}

	content := encrypt(map[string]any{
		"result_type": "pay_invoice",
		"result":      map[string]string{"preimage": "deadbeef"},
	})
	preimage, err := decodeResponse(content, clientShared)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", preimage)

	content = encrypt(map[string]any{
		"result_type": "pay_invoice",
		"error":       map[string]string{"code": "INSUFFICIENT_BALANCE", "message": "not enough sats"},
	})
	_, err = decodeResponse(content, clientShared)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough sats")
	assert.Contains(t, err.Error(), "INSUFFICIENT_BALANCE")

	content = encrypt(map[string]any{"result_type": "pay_invoice"})
	_, err = decodeResponse(content, clientShared)
	assert.ErrorContains(t, err, "missing preimage")

	_, err = decodeResponse("garbage?iv=nope", clientShared)
	assert.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	clientSecret, _ := testPair(t)
	_, walletPub := testPair(t)

	c, err := NewClient("nostr+walletconnect://"+walletPub+"?relay=wss://r.example&secret="+clientSecret, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.timeout)
	require.NotNil(t, c.logger)

	_, err = NewClient("nonsense", nil)
	assert.Error(t, err)
}
