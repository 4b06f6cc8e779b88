package ledger

import (
	"encoding/json"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestNewBlockchain(t *testing.T) {
	bc := NewBlockchain(fixedClock())
	if bc.Len() != 1 {
		t.Fatalf("expected only genesis, got %d blocks", bc.Len())
	}
	g := bc.GetLatest()
	if g.Kind != KindGenesis || g.PrevHash != "0" || g.Player != Referee {
		t.Fatalf("unexpected genesis %+v", g)
	}
	if err := bc.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestAppendLinksBlocks(t *testing.T) {
	bc := NewBlockchain(fixedClock())
	first, err := bc.Append(KindTurn, 0, map[string]int{"seq": 1})
	if err != nil {
		t.Fatal(err)
	}
	second, err := bc.Append(KindClaim, 1, [2]uint{110, 90})
	if err != nil {
		t.Fatal(err)
	}
	if second.PrevHash != first.Hash || second.Index != 2 {
		t.Fatalf("blocks not chained: %+v %+v", first, second)
	}
	var share [2]uint
	if err := json.Unmarshal(second.Data, &share); err != nil {
		t.Fatal(err)
	}
	if share != [2]uint{110, 90} {
		t.Fatalf("unexpected data %v", share)
	}
	got, err := bc.GetByIndex(1)
	if err != nil || got.Hash != first.Hash {
		t.Fatalf("GetByIndex(1) = %+v, %v", got, err)
	}
	if _, err := bc.GetByIndex(5); err == nil {
		t.Fatal("expected out of range error")
	}
	if err := bc.Verify(); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(b []Block)
	}{
		{"data", func(b []Block) { b[1].Data = json.RawMessage(`{"seq":9}`) }},
		{"prev hash", func(b []Block) { b[2].PrevHash = "deadbeef" }},
		{"index", func(b []Block) { b[2].Index = 7 }},
		{"genesis", func(b []Block) { b[0].PrevHash = "1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := NewBlockchain(fixedClock())
			if _, err := bc.Append(KindTurn, 0, map[string]int{"seq": 1}); err != nil {
				t.Fatal(err)
			}
			if _, err := bc.Append(KindTurn, 1, map[string]int{"seq": 2}); err != nil {
				t.Fatal(err)
			}
			tt.tamper(bc.blocks)
			if err := bc.Verify(); err == nil {
				t.Fatal("expected tampering to be detected")
			}
		})
	}
}

func TestAppendRejectsUnencodable(t *testing.T) {
	bc := NewBlockchain(nil)
	if _, err := bc.Append(KindTurn, 0, make(chan int)); err == nil {
		t.Fatal("expected encoding error")
	}
	if bc.Len() != 1 {
		t.Fatal("failed append changed the chain")
	}
}
