package deck

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"

	"go.dedis.ch/kyber/v4"
	"go.dedis.ch/kyber/v4/suites"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

var suite suites.Suite = suites.MustFind("Ed25519")

// Kyber is an SRA style commutative cipher: cards are group points, a layer
// is a multiplication by the player's secret scalar and stripping multiplies
// by its inverse, so layers can be removed in any order.
type Kyber struct {
	cards []kyber.Point
	index map[string]int
}

// NewKyber derives the 52 card points from seed. The points come from the
// suite XOF so nobody knows their discrete logarithms.
func NewKyber(seed []byte) (*Kyber, error) {
	if len(seed) == 0 {
		return nil, errors.New("kyber deck needs a non empty seed")
	}
	k := &Kyber{
		cards: make([]kyber.Point, poker.DeckSize),
		index: make(map[string]int, poker.DeckSize),
	}
	for i := range k.cards {
		xof := suite.XOF(append(append([]byte(nil), seed...), byte(i)))
		p := suite.Point().Pick(xof)
		tok, err := encodePoint(p)
		if err != nil {
			return nil, err
		}
		if _, dup := k.index[tok]; dup {
			return nil, fmt.Errorf("card point collision at %d", i)
		}
		k.cards[i] = p
		k.index[tok] = i
	}
	return k, nil
}

func (*Kyber) Scheme() Scheme { return SchemeKyber }

func (k *Kyber) Fresh() Deck {
	d := make(Deck, len(k.cards))
	for i, p := range k.cards {
		d[i], _ = encodePoint(p)
	}
	return d
}

func (k *Kyber) Seal(d Deck, _ poker.PlayerID, _ *rand.Rand) (Deck, Secrets, error) {
	x := suite.Scalar().Pick(suite.RandomStream())
	out := make(Deck, len(d))
	for i, tok := range d {
		p, err := decodePoint(tok)
		if err != nil {
			return nil, nil, fmt.Errorf("position %d: %w", i, err)
		}
		if out[i], err = encodePoint(suite.Point().Mul(x, p)); err != nil {
			return nil, nil, err
		}
	}
	return out, &scalarSecret{k: k, inv: suite.Scalar().Inv(x), n: len(d)}, nil
}

func (*Kyber) Valid(token string) bool {
	_, err := decodePoint(token)
	return err == nil
}

func (k *Kyber) Index(token string) (int, bool) {
	i, ok := k.index[token]
	return i, ok
}

// scalarSecret is a single key for the whole pass, so swapping is a no-op.
type scalarSecret struct {
	k   *Kyber
	inv kyber.Scalar
	n   int
}

func (s *scalarSecret) Len() int    { return s.n }
func (*scalarSecret) Swap(_, _ int) {}

func (s *scalarSecret) Strip(token string) (string, bool) {
	if _, plain := s.k.Index(token); plain {
		return token, false
	}
	p, err := decodePoint(token)
	if err != nil {
		return token, false
	}
	out, err := encodePoint(suite.Point().Mul(s.inv, p))
	if err != nil {
		return token, false
	}
	return out, true
}

func encodePoint(p kyber.Point) (string, error) {
	b, err := p.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func decodePoint(token string) (kyber.Point, error) {
	b, err := hex.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid point encoding: %w", err)
	}
	p := suite.Point()
	if err := p.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("invalid point: %w", err)
	}
	return p, nil
}
