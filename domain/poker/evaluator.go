package poker

import (
	"errors"
	"fmt"

	"github.com/paulhankin/poker"
)

// Solution is the outcome of comparing hands: the best five cards of each
// hand and which hands share the top score.
type Solution struct {
	BestHands [][]Card
	Winners   []bool
}

// Evaluator ranks hands at showdown.
type Evaluator interface {
	Solve(hands [][]Card) (Solution, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(hands [][]Card) (Solution, error)

func (f EvaluatorFunc) Solve(hands [][]Card) (Solution, error) { return f(hands) }

// HoldemEvaluator scores every five card subset of each hand with
// paulhankin/poker. Higher scores are better hands.
type HoldemEvaluator struct{}

func (HoldemEvaluator) Solve(hands [][]Card) (Solution, error) {
	if len(hands) == 0 {
		return Solution{}, errors.New("no hands to evaluate")
	}
	sol := Solution{
		BestHands: make([][]Card, len(hands)),
		Winners:   make([]bool, len(hands)),
	}
	scores := make([]int16, len(hands))
	for i, h := range hands {
		best, score, err := bestFive(h)
		if err != nil {
			return Solution{}, fmt.Errorf("hand %d: %w", i, err)
		}
		sol.BestHands[i] = best
		scores[i] = score
	}
	top := scores[0]
	for _, s := range scores[1:] {
		top = max(top, s)
	}
	for i, s := range scores {
		sol.Winners[i] = s == top
	}
	return sol, nil
}

func bestFive(hand []Card) ([]Card, int16, error) {
	if len(hand) < 5 || len(hand) > 7 {
		return nil, 0, fmt.Errorf("need 5 to 7 cards, got %d", len(hand))
	}
	lib := make([]poker.Card, len(hand))
	for i, c := range hand {
		pc, err := toLib(c)
		if err != nil {
			return nil, 0, err
		}
		lib[i] = pc
	}

	var (
		bestScore int16
		bestIdx   [5]int
		found     bool
		choose    [5]int
		five      [5]poker.Card
	)
	var rec func(start, k int)
	rec = func(start, k int) {
		if k == 5 {
			for i := range five {
				five[i] = lib[choose[i]]
			}
			score := poker.Eval5(&five)
			if !found || score > bestScore {
				bestScore, bestIdx, found = score, choose, true
			}
			return
		}
		for i := start; i <= len(lib)-(5-k); i++ {
			choose[k] = i
			rec(i+1, k+1)
		}
	}
	rec(0, 0)

	best := make([]Card, 5)
	for i, idx := range bestIdx {
		best[i] = hand[idx]
	}
	return best, bestScore, nil
}

func toLib(c Card) (poker.Card, error) {
	var none poker.Card
	if int(c) >= DeckSize {
		return none, fmt.Errorf("invalid card index %d", c)
	}
	rank := poker.Rank(c.Value() + 2)
	if c.Value() == 12 {
		rank = poker.Rank(1)
	}
	card, err := poker.MakeCard(poker.Suit(c.Suit()), rank)
	if err != nil {
		return none, fmt.Errorf("invalid card %s: %w", c, err)
	}
	return card, nil
}

// Describe names the best hand made from 5 to 7 cards, e.g. "full house,
// kings full of twos".
func Describe(cards []Card) (string, error) {
	if len(cards) > 5 {
		best, _, err := bestFive(cards)
		if err != nil {
			return "", err
		}
		cards = best
	}
	lib := make([]poker.Card, len(cards))
	for i, c := range cards {
		pc, err := toLib(c)
		if err != nil {
			return "", err
		}
		lib[i] = pc
	}
	return poker.Describe(lib)
}
