package deck

import (
	"fmt"
	"math/rand/v2"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// Pass is the result of one shuffling pass. Origin[i] is the position that
// Deck[i] held before the shuffle.
type Pass struct {
	Deck    Deck
	Secrets Secrets
	Origin  []int
}

// ShuffleAndEncrypt seals d for player and permutes it. A nil deck starts from
// c.Fresh(). Tokens, secrets and Origin are always permuted together.
func ShuffleAndEncrypt(c Cipher, d Deck, player poker.PlayerID, rng *rand.Rand) (Pass, error) {
	if d == nil {
		d = c.Fresh()
	}
	if len(d) != poker.DeckSize {
		return Pass{}, fmt.Errorf("deck has %d cards, expected %d", len(d), poker.DeckSize)
	}
	sealed, secrets, err := c.Seal(d, player, rng)
	if err != nil {
		return Pass{}, fmt.Errorf("sealing deck: %w", err)
	}
	origin := make([]int, len(sealed))
	for i := range origin {
		origin[i] = i
	}
	for i := len(sealed) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		sealed[i], sealed[j] = sealed[j], sealed[i]
		secrets.Swap(i, j)
		origin[i], origin[j] = origin[j], origin[i]
	}
	return Pass{Deck: sealed, Secrets: secrets, Origin: origin}, nil
}
