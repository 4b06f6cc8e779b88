package poker

import "testing"

func hand(t *testing.T, cards ...string) []Card {
	t.Helper()
	out := make([]Card, len(cards))
	for i, s := range cards {
		c, err := ParseCard(s)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = c
	}
	return out
}

func TestHoldemEvaluator(t *testing.T) {
	board := []string{"A♥", "A♠", "2♣", "7♦", "9♥"}
	tests := []struct {
		name    string
		alice   []string
		bob     []string
		board   []string
		winners []bool
	}{
		{"quads beat a pair", []string{"A♣", "A♦"}, []string{"3♣", "4♦"}, board, []bool{true, false}},
		{"bob flush", []string{"K♣", "Q♦"}, []string{"3♥", "4♥"}, []string{"A♥", "8♥", "2♥", "7♦", "9♣"}, []bool{false, true}},
		{"board plays", []string{"2♦", "3♣"}, []string{"2♥", "3♦"}, []string{"T♠", "J♠", "Q♠", "K♠", "A♠"}, []bool{true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := append(hand(t, tt.alice...), hand(t, tt.board...)...)
			b := append(hand(t, tt.bob...), hand(t, tt.board...)...)
			sol, err := HoldemEvaluator{}.Solve([][]Card{a, b})
			if err != nil {
				t.Fatal(err)
			}
			for i := range tt.winners {
				if sol.Winners[i] != tt.winners[i] {
					t.Fatalf("expected winners %v, got %v", tt.winners, sol.Winners)
				}
			}
			for i, best := range sol.BestHands {
				if len(best) != 5 {
					t.Fatalf("hand %d: expected 5 best cards, got %d", i, len(best))
				}
			}
		})
	}
}

func TestHoldemEvaluatorBestHand(t *testing.T) {
	h := hand(t, "A♣", "A♦", "A♥", "A♠", "2♣", "7♦", "9♥")
	sol, err := HoldemEvaluator{}.Solve([][]Card{h})
	if err != nil {
		t.Fatal(err)
	}
	aces := 0
	for _, c := range sol.BestHands[0] {
		if c.Value() == 12 {
			aces++
		}
	}
	if aces != 4 {
		t.Fatalf("expected four aces in %s", Cards(sol.BestHands[0]))
	}
}

func TestHoldemEvaluatorRejectsShortHand(t *testing.T) {
	if _, err := (HoldemEvaluator{}).Solve([][]Card{hand(t, "A♣", "A♦")}); err == nil {
		t.Fatal("expected error for a two card hand")
	}
}

func TestDescribe(t *testing.T) {
	d, err := Describe(hand(t, "A♣", "A♦", "A♥", "A♠", "2♣"))
	if err != nil {
		t.Fatal(err)
	}
	if d == "" {
		t.Fatal("expected a description")
	}
}

func TestDescribeSevenCards(t *testing.T) {
	seven, err := Describe(hand(t, "A♣", "A♦", "A♥", "A♠", "2♣", "7♦", "9♥"))
	if err != nil {
		t.Fatal(err)
	}
	five, err := Describe(hand(t, "A♣", "A♦", "A♥", "A♠", "9♥"))
	if err != nil {
		t.Fatal(err)
	}
	if seven != five {
		t.Fatalf("expected %q, got %q", five, seven)
	}
}
