package referee

import (
	"context"
	"fmt"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// Dispute is what an arbiter gets to decide a challenged hand.
type Dispute struct {
	Challenger poker.PlayerID
	Reason     string
	Funds      [2]uint
	// Stakes are the last declared bet totals of each player.
	Stakes [2]uint
	// Claim is the pending result claim, if any.
	Claim *[2]uint
	Turns []channel.Turn
}

// Arbiter decides the settlement of a challenged hand.
type Arbiter interface {
	Arbitrate(ctx context.Context, d Dispute) ([2]uint, error)
}

// ArbiterFunc adapts a function to Arbiter.
type ArbiterFunc func(ctx context.Context, d Dispute) ([2]uint, error)

func (f ArbiterFunc) Arbitrate(ctx context.Context, d Dispute) ([2]uint, error) {
	return f(ctx, d)
}

// Refund returns everyone's funds.
func Refund() Arbiter {
	return ArbiterFunc(func(_ context.Context, d Dispute) ([2]uint, error) {
		return d.Funds, nil
	})
}

// FavorChallenger awards the pool to the challenger, as if the accused
// player had folded.
func FavorChallenger() Arbiter {
	return ArbiterFunc(func(_ context.Context, d Dispute) ([2]uint, error) {
		return forfeit(d.Funds, d.Stakes, d.Challenger.Other()), nil
	})
}

// ParseArbiter maps a configuration name to an arbiter.
func ParseArbiter(name string) (Arbiter, error) {
	switch name {
	case "", "refund":
		return Refund(), nil
	case "challenger":
		return FavorChallenger(), nil
	}
	return nil, fmt.Errorf("unknown arbiter %q", name)
}

func forfeit(funds, stakes [2]uint, loser poker.PlayerID) [2]uint {
	return poker.FoldResult(funds, stakes, loser).FundsShare
}
