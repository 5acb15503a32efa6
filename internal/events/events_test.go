package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Koda-Builds/agentdex-cli/internal/keys"
)

func testKey(t *testing.T) keys.Key {
	t.Helper()
	key, err := keys.Generate()
	require.NoError(t, err)
	return key
}

func intp(v int) *int { return &v }

func names(tags [][]string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag[0])
	}
	return out
}

func TestBuildProfileRecordFullOrder(t *testing.T) {
	key := testKey(t)
	ev, err := BuildProfileRecord(key, Profile{
		Name:              "echo",
		Description:       "repeats things",
		Capabilities:      []string{"chat", "search"},
		Framework:         "langchain",
		Model:             "gpt-4o",
		Website:           "https://echo.example",
		Avatar:            "https://echo.example/a.png",
		Human:             true,
		Owner:             "npub1owner",
		Status:            "active",
		MessagingPolicy:   "open",
		MessagingMinTrust: intp(30),
		MessagingFee:      intp(5),
		Portfolio: []PortfolioItem{
			{URL: "https://p.example", Name: "demo", Description: "a demo"},
			{URL: "https://q.example"},
		},
		Skills:     []string{"golang"},
		Experience: []string{"2 years relay ops"},
	})
	require.NoError(t, err)

	assert.Equal(t, ProfileKind, ev.Kind)
	assert.Equal(t, key.PublicHex, ev.PubKey)

	var got [][]string
	for _, tag := range ev.Tags {
		got = append(got, tag)
	}
	want := []string{
		"d",
		"name", "description",
		"capability", "capability",
		"framework", "model", "website", "avatar",
		"human", "owner", "status",
		"messaging-policy", "messaging-min-trust", "messaging-fee",
		"portfolio", "portfolio",
		"skill", "experience",
	}
	assert.Equal(t, want, names(got))

	assert.Equal(t, []string{"d", Discriminator}, got[0])
	assert.Equal(t, []string{"human", "true"}, got[9])
	assert.Equal(t, []string{"messaging-min-trust", "30"}, got[13])
	assert.Equal(t, []string{"portfolio", "https://p.example", "demo", "a demo"}, got[15])
	assert.Equal(t, []string{"portfolio", "https://q.example"}, got[16])

	ok, err := ev.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildProfileRecordSubsetOmitsAbsent(t *testing.T) {
	ev, err := BuildProfileRecord(testKey(t), Profile{Name: "echo", Status: "active"})
	require.NoError(t, err)

	var got [][]string
	for _, tag := range ev.Tags {
		got = append(got, tag)
	}
	assert.Equal(t, []string{"d", "name", "status"}, names(got))
	assert.Equal(t, []string{"name", "echo"}, got[1])
	assert.Equal(t, []string{"status", "active"}, got[2])
}

func TestBuildProfileRecordEmptyProfile(t *testing.T) {
	ev, err := BuildProfileRecord(testKey(t), Profile{})
	require.NoError(t, err)
	require.Len(t, ev.Tags, 1, "only the discriminator survives an empty profile")
	assert.Equal(t, "d", ev.Tags[0][0])
}

func TestBuildProfileRecordPortfolioTrailingPositions(t *testing.T) {
	ev, err := BuildProfileRecord(testKey(t), Profile{
		Portfolio: []PortfolioItem{
			{URL: "https://p.example", Description: "a demo"},
			{URL: "https://q.example", Name: "demo"},
		},
	})
	require.NoError(t, err)

	var got [][]string
	for _, tag := range ev.Tags {
		if tag[0] == "portfolio" {
			got = append(got, tag)
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, []string{"portfolio", "https://p.example"}, got[0],
		"a description with no name is dropped, never emitted behind an empty position")
	assert.Equal(t, []string{"portfolio", "https://q.example", "demo"}, got[1])
}

func TestBuildProfileRecordExplicitZeroMessagingNumbers(t *testing.T) {
	ev, err := BuildProfileRecord(testKey(t), Profile{
		MessagingMinTrust: intp(0),
		MessagingFee:      intp(0),
	})
	require.NoError(t, err)

	var got [][]string
	for _, tag := range ev.Tags {
		got = append(got, tag)
	}
	assert.Equal(t, []string{"d", "messaging-min-trust", "messaging-fee"}, names(got))
	assert.Equal(t, []string{"messaging-min-trust", "0"}, got[1])
	assert.Equal(t, []string{"messaging-fee", "0"}, got[2])
}

func TestBuildProfileRecordSkipsBlankListEntries(t *testing.T) {
	ev, err := BuildProfileRecord(testKey(t), Profile{
		Capabilities: []string{"chat", "", "search"},
		Portfolio:    []PortfolioItem{{URL: ""}, {URL: "https://x.example"}},
	})
	require.NoError(t, err)

	var caps, portfolios int
	for _, tag := range ev.Tags {
		switch tag[0] {
		case "capability":
			caps++
		case "portfolio":
			portfolios++
		}
	}
	assert.Equal(t, 2, caps)
	assert.Equal(t, 1, portfolios)
}

func TestBuildNoteRecord(t *testing.T) {
	key := testKey(t)
	ev, err := BuildNoteRecord(key, "hello from an agent")
	require.NoError(t, err)

	assert.Equal(t, NoteKind, ev.Kind)
	assert.Equal(t, "hello from an agent", ev.Content)
	require.Len(t, ev.Tags, 1)
	assert.Equal(t, []string{"t", Discriminator}, []string(ev.Tags[0]))

	ok, err := ev.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBuildMetadataRecordPresentFieldsOnly(t *testing.T) {
	ev, err := BuildMetadataRecord(testKey(t), Metadata{
		Name:  "echo",
		NIP05: "echo@agentdex.id",
		Lud16: "echo@wallet.example",
	})
	require.NoError(t, err)
	assert.Equal(t, MetadataKind, ev.Kind)
	assert.Empty(t, ev.Tags)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(ev.Content), &decoded))
	assert.Equal(t, map[string]string{
		"name":  "echo",
		"nip05": "echo@agentdex.id",
		"lud16": "echo@wallet.example",
	}, decoded)
}

func TestBuildMetadataRecordOwnerAttestation(t *testing.T) {
	owner := testKey(t)
	ev, err := BuildMetadataRecord(testKey(t), Metadata{
		Name:        "echo",
		OwnerPubkey: owner.PublicHex,
	})
	require.NoError(t, err)

	require.Len(t, ev.Tags, 2)
	assert.Equal(t, []string{"agent", "true"}, []string(ev.Tags[0]))
	assert.Equal(t, []string{"p", owner.PublicHex}, []string(ev.Tags[1]))
	assert.NotContains(t, ev.Content, "OwnerPubkey", "owner key never leaks into content")
}
