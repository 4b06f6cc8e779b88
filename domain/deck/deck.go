package deck

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// Deck is the local view of the 52 card tokens of a hand. Positions 0-1 are
// Alice's hole cards, 2-3 Bob's and 4-8 the board.
type Deck []string

// Clone returns a copy of d.
func (d Deck) Clone() Deck {
	return append(Deck(nil), d...)
}

// Scheme names a Cipher implementation agreed on during the handshake.
type Scheme string

const (
	// SchemePlaceholder prefixes tokens with per card string secrets.
	SchemePlaceholder Scheme = "placeholder"
	// SchemeKyber is a commutative cipher over the Ed25519 group.
	SchemeKyber Scheme = "kyber"
	// SchemeOff shuffles without encrypting.
	SchemeOff Scheme = "off"
)

// Cipher encrypts decks and validates revealed tokens. Implementations never
// panic on peer input.
type Cipher interface {
	Scheme() Scheme
	// Fresh returns the canonical deck 0..51.
	Fresh() Deck
	// Seal adds one layer of player's encryption to every position of d.
	Seal(d Deck, player poker.PlayerID, rng *rand.Rand) (Deck, Secrets, error)
	// Valid reports whether a revealed token is well formed.
	Valid(token string) bool
	// Index returns the card index of a fully decrypted token.
	Index(token string) (int, bool)
}

// Secrets is the key material of one shuffling pass. Position i of the
// secrets belongs to position i of the sealed deck.
type Secrets interface {
	Len() int
	Swap(i, j int)
	// Strip removes this pass's layer from token.
	Strip(token string) (string, bool)
}

// New returns the cipher for scheme. seed is the setup material sent by the
// dealer; only the kyber scheme uses it.
func New(scheme Scheme, seed []byte) (Cipher, error) {
	switch scheme {
	case SchemePlaceholder:
		return Placeholder{}, nil
	case SchemeOff:
		return Placeholder{Disabled: true}, nil
	case SchemeKyber:
		return NewKyber(seed)
	}
	return nil, fmt.Errorf("unknown deck scheme %q", scheme)
}

// NewRand returns a ChaCha8 generator seeded from crypto/rand.
func NewRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("deck: reading random seed: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// RevealPositions returns this player's share of the requested positions:
// its own layer is stripped where present. When cooperative is false the
// layered tokens are returned untouched, which a peer must reject.
func RevealPositions(d Deck, s Secrets, positions []int, cooperative bool) map[int]string {
	out := make(map[int]string, len(positions))
	for _, p := range positions {
		if p < 0 || p >= len(d) {
			continue
		}
		tok := d[p]
		if cooperative {
			if stripped, ok := s.Strip(tok); ok {
				tok = stripped
			}
		}
		out[p] = tok
	}
	return out
}

// ApplyRevealed writes peer revealed tokens into d. Either every update is
// well formed and applied, or nothing is written and false is returned.
func ApplyRevealed(c Cipher, d Deck, updates map[int]string) bool {
	for p, tok := range updates {
		if p < 0 || p >= len(d) || !c.Valid(tok) {
			return false
		}
	}
	for p, tok := range updates {
		d[p] = tok
	}
	return true
}
