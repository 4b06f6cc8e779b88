// Package channel defines the turn channel that sequences the turns of a
// hand between two players and arbitrates disputes, together with the turn
// type exchanged over it.
//
// The engine consumes the channel only through TurnChannel. Notifications
// are delivered on receive-only Go channels; a receive suspends until the
// next value is available, and FIFO order per channel is assumed.
package channel

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// Turn is one message published by a player.
type Turn struct {
	Player    poker.PlayerID `json:"player"`
	Seq       uint64         `json:"seq"`
	Payload   []byte         `json:"payload"`
	Next      poker.PlayerID `json:"next"`
	Stake     uint           `json:"stake"`
	Signature []byte         `json:"signature,omitempty"`
}

// Update is a progress message of an ongoing arbitration.
type Update struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

// Verification states reported through VerificationUpdates.
const (
	StateChallenged  = "challenged"
	StateArbitrating = "arbitrating"
	StateResolved    = "resolved"
)

// TurnChannel is the ledger backed service connecting the two players.
type TurnChannel interface {
	// SubmitTurn publishes t. It returns once the submission is accepted,
	// not when the counterparty has read it.
	SubmitTurn(ctx context.Context, t Turn) error
	ClaimResult(ctx context.Context, share [2]uint) error
	ConfirmResult(ctx context.Context) error
	ChallengeGame(ctx context.Context, reason string) error
	// ClaimTimeout settles the hand against a counterparty that stopped
	// playing.
	ClaimTimeout(ctx context.Context) error

	TurnOver() <-chan Turn
	ResultClaimed() <-chan [2]uint
	// GameOver carries the authoritative settlement.
	GameOver() <-chan [2]uint
	GameChallenged() <-chan string
	VerificationUpdates() <-chan Update
}

// serialize returns the JSON form of the Turn with the Signature cleared.
func (t *Turn) serialize() ([]byte, error) {
	tmp := *t
	tmp.Signature = nil
	return json.Marshal(tmp)
}

// Sign signs the turn with priv.
func (t *Turn) Sign(priv ed25519.PrivateKey) error {
	b, err := t.serialize()
	if err != nil {
		return err
	}
	t.Signature = ed25519.Sign(priv, b)
	return nil
}

// VerifySignature verifies the turn against pub. It returns an error if the
// signature is missing or the key is malformed.
func (t *Turn) VerifySignature(pub ed25519.PublicKey) (bool, error) {
	if len(t.Signature) == 0 {
		return false, errors.New("missing signature")
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, errors.New("invalid public key")
	}
	b, err := t.serialize()
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, b, t.Signature), nil
}
