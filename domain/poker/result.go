package poker

import "fmt"

// Result is the outcome of a hand, indexed by PlayerID.
type Result struct {
	IsWinner   [2]bool   `json:"is_winner"`
	FundsShare [2]uint   `json:"funds_share"`
	Hands      [2][]Card `json:"hands,omitempty"`
}

// FoldResult gives the pool to the opponent of folder. bets are the absolute
// totals of both players.
func FoldResult(funds, bets [2]uint, folder PlayerID) Result {
	return transfer(funds, bets, folder.Other())
}

// ShowdownResult turns an evaluator solution for hands (indexed by PlayerID)
// into a Result. A split pot leaves both funds unchanged.
func ShowdownResult(funds, bets [2]uint, hands [2][]Card, sol Solution) (Result, error) {
	if len(sol.Winners) != 2 {
		return Result{}, fmt.Errorf("expected 2 winners flags, got %d", len(sol.Winners))
	}
	var r Result
	switch {
	case sol.Winners[Alice] && sol.Winners[Bob]:
		r = Result{IsWinner: [2]bool{true, true}, FundsShare: funds}
	case sol.Winners[Alice]:
		r = transfer(funds, bets, Alice)
	case sol.Winners[Bob]:
		r = transfer(funds, bets, Bob)
	default:
		return Result{}, fmt.Errorf("solution has no winner")
	}
	r.Hands = hands
	if len(sol.BestHands) == 2 {
		r.Hands = [2][]Card{sol.BestHands[Alice], sol.BestHands[Bob]}
	}
	return r, nil
}

// Refund returns everyone's funds.
func Refund(funds [2]uint) Result {
	return Result{FundsShare: funds}
}

func transfer(funds, bets [2]uint, winner PlayerID) Result {
	pool := min(bets[Alice], bets[Bob], funds[winner.Other()])
	var r Result
	r.IsWinner[winner] = true
	r.FundsShare[winner] = funds[winner] + pool
	r.FundsShare[winner.Other()] = funds[winner.Other()] - pool
	return r
}

// Total is the sum of both shares.
func (r Result) Total() uint { return r.FundsShare[Alice] + r.FundsShare[Bob] }
