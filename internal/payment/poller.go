// Package payment waits on Lightning payment confirmations and renders
// invoices for manual payment.
package payment

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultInterval is the pause between status checks.
	DefaultInterval = 3 * time.Second

	// DefaultTimeout is the full poll window. Once it elapses the invoice is
	// treated as expired regardless of what the backend would still accept.
	DefaultTimeout = 15 * time.Minute
)

// Outcome is the terminal result of a poll.
type Outcome int

const (
	// Paid means a status check confirmed the payment.
	Paid Outcome = iota + 1

	// TimedOut means the poll window elapsed without confirmation.
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Paid:
		return "paid"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// CheckFunc reports whether the payment has been confirmed. Errors are
// transient: the poller logs them and keeps going.
type CheckFunc func(ctx context.Context) (bool, error)

// Poller repeatedly checks a payment's status until it is confirmed or the
// window closes.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   *zap.Logger
}

// New returns a Poller with the default cadence. A nil logger disables
// logging.
func New(logger *zap.Logger) Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Poller{Interval: DefaultInterval, Timeout: DefaultTimeout, Logger: logger}
}

// Await sleeps one interval, runs check, and repeats until check reports
// paid, the timeout elapses, or ctx is cancelled. The deadline is evaluated
// after each check, so a check already in flight when the window closes
// still counts.
func (p Poller) Await(ctx context.Context, check CheckFunc) (Outcome, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}

		paid, err := check(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			logger.Warn("payment: status check failed", zap.Error(err))
		} else if paid {
			return Paid, nil
		}

		if time.Now().After(deadline) {
			return TimedOut, nil
		}
	}
}
