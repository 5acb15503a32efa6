package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testPublisher(t *testing.T, send sendFunc) *Publisher {
	t.Helper()
	p := New(0, zaptest.NewLogger(t))
	p.send = send
	return p
}

func TestPublishAllAccept(t *testing.T) {
	p := testPublisher(t, func(ctx context.Context, url string, ev nostr.Event) error {
		return nil
	})
	got := p.Publish(context.Background(), nostr.Event{}, []string{"wss://a", "wss://b", "wss://c"})
	assert.ElementsMatch(t, []string{"wss://a", "wss://b", "wss://c"}, got)
}

func TestPublishPartialFailure(t *testing.T) {
	p := testPublisher(t, func(ctx context.Context, url string, ev nostr.Event) error {
		if url == "wss://bad" {
			return errors.New("connection refused")
		}
		return nil
	})
	got := p.Publish(context.Background(), nostr.Event{}, []string{"wss://good", "wss://bad", "wss://also-good"})
	assert.ElementsMatch(t, []string{"wss://good", "wss://also-good"}, got)
}

func TestPublishAllFail(t *testing.T) {
	p := testPublisher(t, func(ctx context.Context, url string, ev nostr.Event) error {
		return errors.New("nope")
	})
	got := p.Publish(context.Background(), nostr.Event{}, []string{"wss://a", "wss://b"})
	assert.Empty(t, got, "total failure is still not an error")
}

func TestPublishNoEndpoints(t *testing.T) {
	p := testPublisher(t, func(ctx context.Context, url string, ev nostr.Event) error {
		t.Error("send must not be called")
		return nil
	})
	assert.Nil(t, p.Publish(context.Background(), nostr.Event{}, nil))
}

func TestPublishSlowRelayTimesOutAlone(t *testing.T) {
	p := New(25*time.Millisecond, zaptest.NewLogger(t))
	p.send = func(ctx context.Context, url string, ev nostr.Event) error {
		if url == "wss://slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	start := time.Now()
	got := p.Publish(context.Background(), nostr.Event{}, []string{"wss://slow", "wss://fast"})
	assert.ElementsMatch(t, []string{"wss://fast"}, got)
	require.Less(t, time.Since(start), time.Second, "slow relay is bounded by the per-attempt timeout")
}

func TestNewDefaults(t *testing.T) {
	p := New(0, nil)
	assert.Equal(t, DefaultTimeout, p.timeout)
	require.NotNil(t, p.logger)
	require.NotNil(t, p.send)
}
