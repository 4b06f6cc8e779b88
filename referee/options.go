package referee

import (
	"log/slog"
	"time"

	"github.com/coder/quartz"
)

// Option configures a Referee.
type Option func(*Referee)

// WithClock sets the clock used for timeouts and ledger timestamps.
func WithClock(c quartz.Clock) Option {
	return func(r *Referee) { r.clock = c }
}

// WithTimeout sets how long a player may stall before the counterparty can
// claim a timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Referee) { r.timeout = d }
}

// WithArbiter sets the arbiter that resolves challenges.
func WithArbiter(a Arbiter) Option {
	return func(r *Referee) { r.arbiter = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Referee) { r.logger = l }
}
