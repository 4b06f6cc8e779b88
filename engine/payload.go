package engine

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/luca-patrignani/mental-poker-channel/domain/deck"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// foldSentinel is the literal payload of a fold.
var foldSentinel = []byte("FOLD")

type payloadKind string

const (
	kindHandshake payloadKind = "handshake"
	kindReveal    payloadKind = "reveal"
	kindBet       payloadKind = "bet"
)

// payload is the JSON body of every turn but a fold.
type payload struct {
	Kind      payloadKind    `json:"kind"`
	Handshake *handshake     `json:"handshake,omitempty"`
	Reveal    map[int]string `json:"reveal,omitempty"`
	Bet       *betUpdate     `json:"bet,omitempty"`
}

// handshake carries the dealer's setup, a shuffled deck, or both players'
// signing keys.
type handshake struct {
	Scheme deck.Scheme       `json:"scheme,omitempty"`
	Seed   []byte            `json:"seed,omitempty"`
	Key    ed25519.PublicKey `json:"key,omitempty"`
	Deck   deck.Deck         `json:"deck,omitempty"`
}

type betUpdate struct {
	Action poker.Action `json:"action"`
	Total  uint         `json:"total"`
}

func encodeHandshake(h handshake) ([]byte, error) {
	return json.Marshal(payload{Kind: kindHandshake, Handshake: &h})
}

func encodeReveal(r map[int]string) ([]byte, error) {
	return json.Marshal(payload{Kind: kindReveal, Reveal: r})
}

func encodeBet(a poker.Action, total uint) ([]byte, error) {
	return json.Marshal(payload{Kind: kindBet, Bet: &betUpdate{Action: a, Total: total}})
}

// decodePayload parses b into exactly one of the payload kinds. fold is true
// for the fold sentinel.
func decodePayload(b []byte) (p payload, fold bool, err error) {
	if bytes.Equal(b, foldSentinel) {
		return payload{}, true, nil
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return payload{}, false, fmt.Errorf("decoding payload: %w", err)
	}
	switch {
	case p.Kind == kindHandshake && p.Handshake != nil && p.Reveal == nil && p.Bet == nil:
	case p.Kind == kindReveal && p.Reveal != nil && p.Handshake == nil && p.Bet == nil:
	case p.Kind == kindBet && p.Bet != nil && p.Handshake == nil && p.Reveal == nil:
	default:
		return payload{}, false, fmt.Errorf("ambiguous payload of kind %q", p.Kind)
	}
	return p, false, nil
}
