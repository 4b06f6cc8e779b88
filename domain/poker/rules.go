package poker

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalCall       = errors.New("cannot call, bets are already equal")
	ErrIllegalCheck      = errors.New("cannot check, must call, raise or fold")
	ErrIllegalFold       = errors.New("cannot fold when bets are equal, check instead")
	ErrInvalidRaise      = errors.New("raise must be positive and at least match the opponent")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAction     = errors.New("unknown action")
)

// BetState is the betting position of a hand seen from one player.
// Leader is absolute and survives Mirror unchanged.
type BetState struct {
	PlayerBets   uint     `json:"player_bets"`
	OpponentBets uint     `json:"opponent_bets"`
	Leader       PlayerID `json:"leader"`
}

// Mirror returns the same state seen from the opponent.
func (s BetState) Mirror() BetState {
	return BetState{PlayerBets: s.OpponentBets, OpponentBets: s.PlayerBets, Leader: s.Leader}
}

// Even reports whether both players have put in the same amount.
func (s BetState) Even() bool { return s.PlayerBets == s.OpponentBets }

// Pool is the amount at stake between the two players: the most either can
// win from the other.
func (s BetState) Pool() uint { return min(s.PlayerBets, s.OpponentBets) }

// CheckPokerLogic validates action for a player owning funds and returns the
// player's bet total after it.
func (s BetState) CheckPokerLogic(a Action, funds uint) (uint, error) {
	switch a.Type {
	case ActionCall:
		if s.OpponentBets <= s.PlayerBets {
			return 0, ErrIllegalCall
		}
		if s.OpponentBets > funds {
			return 0, fmt.Errorf("call to %d: %w", s.OpponentBets, ErrInsufficientFunds)
		}
		return s.OpponentBets, nil
	case ActionCheck:
		if !s.Even() {
			return 0, ErrIllegalCheck
		}
		return s.PlayerBets, nil
	case ActionRaise:
		if a.Amount == 0 || s.OpponentBets < s.PlayerBets {
			return 0, ErrInvalidRaise
		}
		total := s.PlayerBets + (s.OpponentBets - s.PlayerBets) + a.Amount
		if total > funds {
			return 0, fmt.Errorf("raise to %d: %w", total, ErrInsufficientFunds)
		}
		return total, nil
	case ActionFold:
		if s.Even() {
			return 0, ErrIllegalFold
		}
		return s.PlayerBets, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownAction, a.Type)
	}
}

// Apply performs action for actor, the player whose view s is. It returns the
// new state and whether it closes the betting round, which happens when the
// non-leader brings the bets level. A fold leaves the state as it is; ending
// the hand is up to the caller.
func (s BetState) Apply(actor PlayerID, a Action, funds uint) (BetState, bool, error) {
	total, err := s.CheckPokerLogic(a, funds)
	if err != nil {
		return s, false, err
	}
	next := s
	next.PlayerBets = total
	if a.Type == ActionRaise {
		next.Leader = actor
	}
	if a.Type == ActionFold {
		return next, false, nil
	}
	return next, actor != next.Leader && next.Even(), nil
}
