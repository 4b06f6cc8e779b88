package referee

import (
	"context"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// Seat is one player's end of a Referee.
type Seat struct {
	ref        *Referee
	player     poker.PlayerID
	turns      chan channel.Turn
	claims     chan [2]uint
	over       chan [2]uint
	challenged chan string
	updates    chan channel.Update
}

var _ channel.TurnChannel = (*Seat)(nil)

func newSeat(r *Referee, p poker.PlayerID) *Seat {
	return &Seat{
		ref:        r,
		player:     p,
		turns:      make(chan channel.Turn, seatBuffer),
		claims:     make(chan [2]uint, seatBuffer),
		over:       make(chan [2]uint, seatBuffer),
		challenged: make(chan string, seatBuffer),
		updates:    make(chan channel.Update, seatBuffer),
	}
}

// Player is the player owning the seat.
func (s *Seat) Player() poker.PlayerID { return s.player }

func (s *Seat) SubmitTurn(ctx context.Context, t channel.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ref.submitTurn(s.player, t)
}

func (s *Seat) ClaimResult(ctx context.Context, share [2]uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ref.claimResult(s.player, share)
}

func (s *Seat) ConfirmResult(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ref.confirmResult(s.player)
}

func (s *Seat) ChallengeGame(ctx context.Context, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ref.challengeGame(s.player, reason)
}

func (s *Seat) ClaimTimeout(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.ref.claimTimeout(s.player)
}

func (s *Seat) TurnOver() <-chan channel.Turn { return s.turns }
func (s *Seat) ResultClaimed() <-chan [2]uint { return s.claims }
func (s *Seat) GameOver() <-chan [2]uint { return s.over }
func (s *Seat) GameChallenged() <-chan string { return s.challenged }
func (s *Seat) VerificationUpdates() <-chan channel.Update { return s.updates }

// The deliver methods run with the referee lock held and never block.

func (s *Seat) deliverTurn(t channel.Turn) {
	select {
	case s.turns <- t:
	default:
		s.ref.logger.Error("turn queue full, dropping", "player", s.player, "seq", t.Seq)
	}
}

func (s *Seat) deliverClaim(share [2]uint) {
	select {
	case s.claims <- share:
	default:
		s.ref.logger.Error("claim queue full, dropping", "player", s.player)
	}
}

func (s *Seat) deliverGameOver(share [2]uint) {
	select {
	case s.over <- share:
	default:
		s.ref.logger.Error("game over queue full, dropping", "player", s.player)
	}
}

func (s *Seat) deliverChallenge(reason string) {
	select {
	case s.challenged <- reason:
	default:
		s.ref.logger.Error("challenge queue full, dropping", "player", s.player)
	}
}

func (s *Seat) deliverUpdate(u channel.Update) {
	select {
	case s.updates <- u:
	default:
	}
}
