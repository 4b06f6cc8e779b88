package poker

import "fmt"

// PlayerID identifies one of the two seats of a heads-up hand.
type PlayerID uint8

const (
	Alice PlayerID = 0
	Bob   PlayerID = 1
)

// Other returns the opponent of p.
func (p PlayerID) Other() PlayerID { return 1 - p }

// Valid reports whether p is one of the two seats.
func (p PlayerID) Valid() bool { return p <= Bob }

func (p PlayerID) String() string {
	switch p {
	case Alice:
		return "alice"
	case Bob:
		return "bob"
	}
	return fmt.Sprintf("player(%d)", uint8(p))
}

// ParsePlayer accepts "alice", "bob", "0" or "1".
func ParsePlayer(s string) (PlayerID, error) {
	switch s {
	case "alice", "0":
		return Alice, nil
	case "bob", "1":
		return Bob, nil
	}
	return 0, fmt.Errorf("unknown player %q", s)
}

// ActionType is the kind of a betting action.
type ActionType string

const (
	ActionCall  ActionType = "call"
	ActionCheck ActionType = "check"
	ActionFold  ActionType = "fold"
	ActionRaise ActionType = "raise"
)

// Action is a betting decision. Amount is only meaningful for raises and is
// the increment over the opponent's bet.
type Action struct {
	Type   ActionType `json:"type"`
	Amount uint       `json:"amount,omitempty"`
}

func (a Action) String() string {
	if a.Type == ActionRaise {
		return fmt.Sprintf("raise %d", a.Amount)
	}
	return string(a.Type)
}

// Call, Check, Fold and Raise build actions.
func Call() Action { return Action{Type: ActionCall} }
func Check() Action { return Action{Type: ActionCheck} }
func Fold() Action { return Action{Type: ActionFold} }
func Raise(amount uint) Action { return Action{Type: ActionRaise, Amount: amount} }
