package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/luca-patrignani/mental-poker-channel/domain/deck"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// DefaultEventBuffer is the size of the Events queue when unset.
const DefaultEventBuffer = 128

// Config parametrises one engine. Both players must agree on Dealer, Funds,
// BigBlind and Scheme.
type Config struct {
	// Player is the local seat.
	Player poker.PlayerID
	// Dealer opens the handshake and leads the first betting round.
	Dealer poker.PlayerID
	Funds  [2]uint
	// BigBlind is posted by both players before the cards are dealt.
	BigBlind uint
	Scheme   deck.Scheme
	// WithholdReveals makes the engine send its shares without stripping
	// its own layer. It simulates a cheating player.
	WithholdReveals bool

	Evaluator   poker.Evaluator
	Logger      *slog.Logger
	EventBuffer int
	// Rand drives the shuffle. Nil means a crypto seeded generator.
	Rand *rand.Rand
}

func (c Config) withDefaults() Config {
	if c.Scheme == "" {
		c.Scheme = deck.SchemePlaceholder
	}
	if c.Evaluator == nil {
		c.Evaluator = poker.HoldemEvaluator{}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	if c.Rand == nil {
		c.Rand = deck.NewRand()
	}
	return c
}

// Validate checks the config after defaults are applied.
func (c Config) Validate() error {
	var errs []error
	if !c.Player.Valid() {
		errs = append(errs, fmt.Errorf("invalid player %d", c.Player))
	}
	if !c.Dealer.Valid() {
		errs = append(errs, fmt.Errorf("invalid dealer %d", c.Dealer))
	}
	for p, f := range c.Funds {
		if f < c.BigBlind {
			errs = append(errs, fmt.Errorf("%s cannot post the big blind: funds %d < %d", poker.PlayerID(p), f, c.BigBlind))
		}
	}
	if _, err := deck.New(c.Scheme, []byte("probe")); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
