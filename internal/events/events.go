// Package events constructs and signs the records agentdex publishes.
//
// Three record kinds are used: the addressable profile record carrying the
// agent's capability tags, the basic metadata record holding the canonical
// name/avatar/NIP-05/lightning fields, and the plain text note. Construction
// is pure: no network or disk I/O happens here.
package events

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Koda-Builds/agentdex-cli/internal/keys"
)

const (
	// ProfileKind is the addressable application-data kind for agent profiles.
	ProfileKind = nostr.KindApplicationSpecificData

	// MetadataKind is the basic metadata kind read by general-purpose clients.
	MetadataKind = nostr.KindProfileMetadata

	// NoteKind is the plain note kind.
	NoteKind = nostr.KindTextNote

	// Discriminator is the fixed d-tag value that marks a profile record as
	// an agentdex profile. It doubles as the topic tag on notes.
	Discriminator = "agentdex"
)

// PortfolioItem is one portfolio entry. URL is required; Name and Description
// are optional positional values on the emitted tag, trailing only: a
// Description without a Name is dropped.
type PortfolioItem struct {
	URL         string
	Name        string
	Description string
}

// Profile is the transient field set a profile record is built from. Zero
// values mean "absent": absent fields produce no tag at all. The messaging
// numbers are pointers so an explicit zero still counts as present.
type Profile struct {
	Name              string
	Description       string
	Capabilities      []string
	Framework         string
	Model             string
	Website           string
	Avatar            string
	Human             bool
	Owner             string
	Status            string
	MessagingPolicy   string
	MessagingMinTrust *int
	MessagingFee      *int
	Portfolio         []PortfolioItem
	Skills            []string
	Experience        []string
}

// Metadata is the field set for the basic metadata record. Content carries
// only the fields that are present. When OwnerPubkey is set the record also
// attests that this key belongs to an automated agent operated by that owner.
type Metadata struct {
	Name        string `json:"name,omitempty"`
	About       string `json:"about,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Website     string `json:"website,omitempty"`
	NIP05       string `json:"nip05,omitempty"`
	Lud16       string `json:"lud16,omitempty"`
	OwnerPubkey string `json:"-"`
}

// tagRule maps one profile field to its tag. values returns one entry per
// tag to emit, each holding the positional values after the tag name; an
// empty result skips the field. Rule order is the emission order.
type tagRule struct {
	name   string
	values func(Profile) [][]string
}

func single(get func(Profile) string) func(Profile) [][]string {
	return func(p Profile) [][]string {
		if v := get(p); v != "" {
			return [][]string{{v}}
		}
		return nil
	}
}

func each(get func(Profile) []string) func(Profile) [][]string {
	return func(p Profile) [][]string {
		var out [][]string
		for _, v := range get(p) {
			if v != "" {
				out = append(out, []string{v})
			}
		}
		return out
	}
}

func number(get func(Profile) *int) func(Profile) [][]string {
	return func(p Profile) [][]string {
		if v := get(p); v != nil {
			return [][]string{{strconv.Itoa(*v)}}
		}
		return nil
	}
}

// profileTagRules is the documented field order. Changing the order here
// changes the wire order of every published profile.
var profileTagRules = []tagRule{
	{"name", single(func(p Profile) string { return p.Name })},
	{"description", single(func(p Profile) string { return p.Description })},
	{"capability", each(func(p Profile) []string { return p.Capabilities })},
	{"framework", single(func(p Profile) string { return p.Framework })},
	{"model", single(func(p Profile) string { return p.Model })},
	{"website", single(func(p Profile) string { return p.Website })},
	{"avatar", single(func(p Profile) string { return p.Avatar })},
	{"human", single(func(p Profile) string {
		if p.Human {
			return "true"
		}
		return ""
	})},
	{"owner", single(func(p Profile) string { return p.Owner })},
	{"status", single(func(p Profile) string { return p.Status })},
	{"messaging-policy", single(func(p Profile) string { return p.MessagingPolicy })},
	{"messaging-min-trust", number(func(p Profile) *int { return p.MessagingMinTrust })},
	{"messaging-fee", number(func(p Profile) *int { return p.MessagingFee })},
	{"portfolio", func(p Profile) [][]string {
		var out [][]string
		for _, item := range p.Portfolio {
			if item.URL == "" {
				continue
			}
			// Positional values are trailing-only: a description with no
			// name is dropped rather than padding an empty slot.
			vals := []string{item.URL}
			if item.Name != "" {
				vals = append(vals, item.Name)
				if item.Description != "" {
					vals = append(vals, item.Description)
				}
			}
			out = append(out, vals)
		}
		return out
	}},
	{"skill", each(func(p Profile) []string { return p.Skills })},
	{"experience", each(func(p Profile) []string { return p.Experience })},
}

// BuildProfileRecord signs an addressable profile record. The discriminator
// d-tag always comes first; field tags follow in the documented order, one
// tag per present field and nothing for absent ones.
func BuildProfileRecord(key keys.Key, p Profile) (nostr.Event, error) {
	tags := nostr.Tags{{"d", Discriminator}}
	for _, rule := range profileTagRules {
		for _, vals := range rule.values(p) {
			tags = append(tags, append(nostr.Tag{rule.name}, vals...))
		}
	}
	return sign(key, nostr.Event{
		Kind:      ProfileKind,
		CreatedAt: nostr.Now(),
		Tags:      tags,
	})
}

// BuildNoteRecord signs a plain note carrying free-text content under the
// agentdex topic tag.
func BuildNoteRecord(key keys.Key, content string) (nostr.Event, error) {
	return sign(key, nostr.Event{
		Kind:      NoteKind,
		CreatedAt: nostr.Now(),
		Tags:      nostr.Tags{{"t", Discriminator}},
		Content:   content,
	})
}

// BuildMetadataRecord signs the basic metadata record. Content is a JSON
// object of the present fields only. With OwnerPubkey set, the record gains
// the agent attestation tag and a reference to the owner's key.
func BuildMetadataRecord(key keys.Key, m Metadata) (nostr.Event, error) {
	content, err := json.Marshal(m)
	if err != nil {
		return nostr.Event{}, fmt.Errorf("encode metadata: %w", err)
	}
	tags := nostr.Tags{}
	if m.OwnerPubkey != "" {
		tags = append(tags, nostr.Tag{"agent", "true"}, nostr.Tag{"p", m.OwnerPubkey})
	}
	return sign(key, nostr.Event{
		Kind:      MetadataKind,
		CreatedAt: nostr.Now(),
		Tags:      tags,
		Content:   string(content),
	})
}

func sign(key keys.Key, ev nostr.Event) (nostr.Event, error) {
	if err := ev.Sign(key.SecretHex); err != nil {
		return nostr.Event{}, fmt.Errorf("sign record: %w", err)
	}
	return ev, nil
}
