package poker

import (
	"errors"
	"testing"
)

func TestCheckPokerLogic(t *testing.T) {
	tests := []struct {
		name    string
		state   BetState
		action  Action
		funds   uint
		want    uint
		wantErr error
	}{
		{"call when owed", BetState{10, 20, Bob}, Call(), 100, 20, nil},
		{"call when equal", BetState{10, 10, Alice}, Call(), 100, 0, ErrIllegalCall},
		{"call when ahead", BetState{30, 10, Alice}, Call(), 100, 0, ErrIllegalCall},
		{"call over funds", BetState{10, 120, Bob}, Call(), 100, 0, ErrInsufficientFunds},
		{"check when equal", BetState{10, 10, Alice}, Check(), 100, 10, nil},
		{"check when owed", BetState{10, 20, Bob}, Check(), 100, 0, ErrIllegalCheck},
		{"raise from equal", BetState{10, 10, Alice}, Raise(15), 100, 25, nil},
		{"raise over a raise", BetState{10, 20, Bob}, Raise(10), 100, 30, nil},
		{"raise zero", BetState{10, 10, Alice}, Raise(0), 100, 0, ErrInvalidRaise},
		{"raise while ahead", BetState{20, 10, Alice}, Raise(5), 100, 0, ErrInvalidRaise},
		{"raise over funds", BetState{10, 10, Alice}, Raise(95), 100, 0, ErrInsufficientFunds},
		{"raise to all funds", BetState{10, 10, Alice}, Raise(90), 100, 100, nil},
		{"fold when owed", BetState{10, 20, Bob}, Fold(), 100, 10, nil},
		{"fold when equal", BetState{10, 10, Alice}, Fold(), 100, 0, ErrIllegalFold},
		{"unknown", BetState{10, 10, Alice}, Action{Type: "bet"}, 100, 0, ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.state.CheckPokerLogic(tt.action, tt.funds)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected total %d, got %d", tt.want, got)
			}
		})
	}
}

func TestApplyRoundCompletion(t *testing.T) {
	// Alice leads and checks, Bob checks back.
	s := BetState{PlayerBets: 10, OpponentBets: 10, Leader: Alice}
	s, done, err := s.Apply(Alice, Check(), 100)
	if err != nil || done {
		t.Fatalf("leader check should not close the round: %v %v", done, err)
	}
	bob := s.Mirror()
	_, done, err = bob.Apply(Bob, Check(), 100)
	if err != nil || !done {
		t.Fatalf("non-leader check should close the round: %v %v", done, err)
	}
}

func TestApplyRaiseMovesLeader(t *testing.T) {
	bob := BetState{PlayerBets: 10, OpponentBets: 10, Leader: Alice}
	bob, done, err := bob.Apply(Bob, Raise(10), 100)
	if err != nil {
		t.Fatal(err)
	}
	if done || bob.Leader != Bob || bob.PlayerBets != 20 {
		t.Fatalf("unexpected state after raise: %+v done=%v", bob, done)
	}
	alice := bob.Mirror()
	alice, done, err = alice.Apply(Alice, Call(), 100)
	if err != nil {
		t.Fatal(err)
	}
	if !done || alice.PlayerBets != 20 || alice.OpponentBets != 20 {
		t.Fatalf("call should level and close: %+v done=%v", alice, done)
	}
}

func TestApplyRejectLeavesState(t *testing.T) {
	s := BetState{PlayerBets: 10, OpponentBets: 10, Leader: Alice}
	got, _, err := s.Apply(Alice, Raise(500), 100)
	if err == nil {
		t.Fatal("expected insufficient funds")
	}
	if got != s {
		t.Fatalf("state changed on error: %+v", got)
	}
}

func TestPool(t *testing.T) {
	if p := (BetState{PlayerBets: 10, OpponentBets: 20}).Pool(); p != 10 {
		t.Fatalf("expected pool 10, got %d", p)
	}
}
