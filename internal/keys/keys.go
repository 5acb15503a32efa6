// Package keys resolves and validates the agent's Nostr identity.
//
// A secret key may arrive from three places; the first match wins:
//
//  1. the --nsec flag
//  2. the AGENTDEX_NSEC environment variable or config file
//  3. the key file (~/.agentdex/key.json by default)
//
// Both nsec bech32 and 64-character hex encodings are accepted everywhere.
package keys

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

var (
	// ErrMissingKey means no secret key was found in any source.
	ErrMissingKey = errors.New("no secret key: pass --nsec, set AGENTDEX_NSEC, or run agentdex keygen --save")

	// ErrInvalidKeyFormat means a candidate key was neither nsec bech32 nor
	// 64-character hex.
	ErrInvalidKeyFormat = errors.New("secret key must be nsec1... or 64 hex characters")

	// ErrMalformedKeyFile means the key file existed but could not be parsed.
	ErrMalformedKeyFile = errors.New("malformed key file")
)

// Key is a fully resolved identity: the secret in both encodings and the
// derived public key in both encodings.
type Key struct {
	SecretHex string
	PublicHex string
	Nsec      string
	Npub      string
}

// keyFile is the accepted on-disk shape. Either field may carry the secret;
// "nsec" wins when both are present.
type keyFile struct {
	Nsec       string `json:"nsec"`
	PrivateKey string `json:"privateKey"`
}

// DefaultKeyFile returns ~/.agentdex/key.json, or "" when the home directory
// cannot be determined.
func DefaultKeyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agentdex", "key.json")
}

// Resolve walks the precedence chain and returns the first usable key.
// flagNsec is the --nsec flag value, cfgNsec the environment/config value,
// path the key file location ("" means DefaultKeyFile).
func Resolve(flagNsec, cfgNsec, path string) (Key, error) {
	if flagNsec != "" {
		return FromSecret(flagNsec)
	}
	if cfgNsec != "" {
		return FromSecret(cfgNsec)
	}
	if path == "" {
		path = DefaultKeyFile()
	}
	if path != "" {
		if key, err := fromFile(path); err == nil {
			return key, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return Key{}, err
		}
	}
	return Key{}, ErrMissingKey
}

// FromSecret normalises a secret key in either encoding and derives the rest
// of the identity.
func FromSecret(raw string) (Key, error) {
	skHex, err := normalizeSecret(raw)
	if err != nil {
		return Key{}, err
	}
	pkHex, err := nostr.GetPublicKey(skHex)
	if err != nil {
		return Key{}, fmt.Errorf("derive public key: %w", err)
	}
	nsec, err := nip19.EncodePrivateKey(skHex)
	if err != nil {
		return Key{}, fmt.Errorf("encode nsec: %w", err)
	}
	npub, err := nip19.EncodePublicKey(pkHex)
	if err != nil {
		return Key{}, fmt.Errorf("encode npub: %w", err)
	}
	return Key{SecretHex: skHex, PublicHex: pkHex, Nsec: nsec, Npub: npub}, nil
}

// Generate creates a fresh keypair.
func Generate() (Key, error) {
	return FromSecret(nostr.GeneratePrivateKey())
}

// Save writes the key file with owner-only permissions, creating the parent
// directory as needed.
func (k Key) Save(path string) error {
	if path == "" {
		path = DefaultKeyFile()
	}
	if path == "" {
		return errors.New("no key file path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	body, err := json.MarshalIndent(keyFile{Nsec: k.Nsec}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(body, '\n'), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

func fromFile(path string) (Key, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Key{}, err
	}
	var kf keyFile
	if err := json.Unmarshal(body, &kf); err != nil {
		return Key{}, fmt.Errorf("%w: %s: %v", ErrMalformedKeyFile, path, err)
	}
	secret := kf.Nsec
	if secret == "" {
		secret = kf.PrivateKey
	}
	if secret == "" {
		return Key{}, fmt.Errorf("%w: %s: no nsec or privateKey field", ErrMalformedKeyFile, path)
	}
	key, err := FromSecret(secret)
	if err != nil {
		return Key{}, fmt.Errorf("key file %s: %w", path, err)
	}
	return key, nil
}

// normalizeSecret accepts nsec bech32 or 64-character hex and returns
// lowercase hex.
func normalizeSecret(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "nsec1") {
		prefix, value, err := nip19.Decode(raw)
		if err != nil || prefix != "nsec" {
			return "", fmt.Errorf("%w: bad bech32", ErrInvalidKeyFormat)
		}
		return value.(string), nil
	}
	if isHex64(raw) {
		return strings.ToLower(raw), nil
	}
	return "", ErrInvalidKeyFormat
}

// ParsePublicKey accepts npub bech32 or 64-character hex and returns
// lowercase hex. Anything else is an error; callers treat such input as a
// claimed name instead.
func ParsePublicKey(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "npub1") {
		prefix, value, err := nip19.Decode(raw)
		if err != nil || prefix != "npub" {
			return "", fmt.Errorf("invalid npub %q", raw)
		}
		return value.(string), nil
	}
	if isHex64(raw) {
		return strings.ToLower(raw), nil
	}
	return "", fmt.Errorf("%q is neither npub nor hex public key", raw)
}

func isHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
