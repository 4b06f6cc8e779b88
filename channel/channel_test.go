package channel

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

func TestTurnSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	turn := Turn{Player: poker.Alice, Seq: 3, Payload: []byte("FOLD"), Next: poker.Bob, Stake: 20}
	if _, err := turn.VerifySignature(pub); err == nil {
		t.Fatal("expected error for an unsigned turn")
	}
	if err := turn.Sign(priv); err != nil {
		t.Fatal(err)
	}
	ok, err := turn.VerifySignature(pub)
	if err != nil || !ok {
		t.Fatalf("expected valid signature, got %v %v", ok, err)
	}

	tampered := turn
	tampered.Stake = 2000
	if ok, _ := tampered.VerifySignature(pub); ok {
		t.Fatal("tampered stake verified")
	}

	other, _, _ := ed25519.GenerateKey(rand.Reader)
	if ok, _ := turn.VerifySignature(other); ok {
		t.Fatal("verified with the wrong key")
	}
	if _, err := turn.VerifySignature([]byte("short")); err == nil {
		t.Fatal("expected error for a malformed key")
	}
}
