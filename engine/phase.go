package engine

import (
	"fmt"
	"slices"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// Phase is the stage of a hand. Phases only move forward, except
// PhaseVerification which can be entered from any of them.
type Phase int32

const (
	PhaseStart Phase = iota
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseEnd
	PhaseVerification
)

var phaseNames = [...]string{"START", "PREFLOP", "FLOP", "TURN", "RIVER", "SHOWDOWN", "END", "VERIFICATION"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
	return phaseNames[p]
}

// streets are the betting phases in order.
var streets = []Phase{PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver}

// Deck positions.
var (
	holePositions = [2][]int{{0, 1}, {2, 3}}
	boardByPhase  = map[Phase][]int{
		PhaseFlop:  {4, 5, 6},
		PhaseTurn:  {7},
		PhaseRiver: {8},
	}
	boardPositions = []int{4, 5, 6, 7, 8}
)

// HolePositions returns the deck positions of p's hole cards.
func HolePositions(p poker.PlayerID) []int { return slices.Clone(holePositions[p]) }

// BoardPositions returns the deck positions of the board in dealing order.
func BoardPositions() []int { return slices.Clone(boardPositions) }
