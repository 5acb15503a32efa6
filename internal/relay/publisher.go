// Package relay fans a signed record out to a set of relay endpoints.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
)

// DefaultTimeout bounds each individual relay attempt.
const DefaultTimeout = 10 * time.Second

// sendFunc submits one record to one relay.
type sendFunc func(ctx context.Context, url string, ev nostr.Event) error

// Publisher publishes records to many relays at once. Each attempt runs
// under its own timeout, and a failing relay never affects the others.
type Publisher struct {
	timeout time.Duration
	logger  *zap.Logger
	send    sendFunc
}

// New creates a Publisher. A zero timeout means DefaultTimeout; a nil logger
// disables logging.
func New(timeout time.Duration, logger *zap.Logger) *Publisher {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{timeout: timeout, logger: logger, send: sendToRelay}
}

// Publish submits ev to every url concurrently and returns the subset that
// accepted it. It never fails: rejections, timeouts, and connection errors
// only shrink the returned set, possibly to empty.
func (p *Publisher) Publish(ctx context.Context, ev nostr.Event, urls []string) []string {
	if len(urls) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		accepted []string
		wg       sync.WaitGroup
	)

	for _, url := range urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()

			attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			if err := p.send(attemptCtx, url, ev); err != nil {
				p.logger.Debug("relay: publish failed",
					zap.String("relay", url),
					zap.Error(err),
				)
				return
			}

			p.logger.Debug("relay: accepted", zap.String("relay", url))
			mu.Lock()
			accepted = append(accepted, url)
			mu.Unlock()
		}(url)
	}

	wg.Wait()
	return accepted
}

// sendToRelay dials the relay, submits the record, and always closes the
// connection before returning.
func sendToRelay(ctx context.Context, url string, ev nostr.Event) error {
	conn, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()

	if err := conn.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish to %s: %w", url, err)
	}
	return nil
}
