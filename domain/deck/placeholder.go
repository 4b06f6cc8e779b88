package deck

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// A placeholder token is the plain card index prefixed by one "s<player>_<n>_"
// secret per layer. Revealed tokens may carry at most one layer.
var revealGrammar = regexp.MustCompile(`^(s\d+_\d+_)?(\d{1,2})$`)

// Placeholder is the string-prefix cipher. It hides nothing from a reader of
// the tokens and exists to exercise the protocol. Disabled turns it into a
// plain shuffle.
type Placeholder struct {
	Disabled bool
}

func (p Placeholder) Scheme() Scheme {
	if p.Disabled {
		return SchemeOff
	}
	return SchemePlaceholder
}

func (Placeholder) Fresh() Deck {
	d := make(Deck, poker.DeckSize)
	for i := range d {
		d[i] = strconv.Itoa(i)
	}
	return d
}

func (p Placeholder) Seal(d Deck, player poker.PlayerID, rng *rand.Rand) (Deck, Secrets, error) {
	secrets := make(prefixSecrets, len(d))
	out := make(Deck, len(d))
	nonces := rng.Perm(1000)
	for i, tok := range d {
		if !p.Disabled {
			secrets[i] = fmt.Sprintf("s%d_%d_", player, nonces[i])
		}
		out[i] = secrets[i] + tok
	}
	return out, secrets, nil
}

func (Placeholder) Valid(token string) bool {
	m := revealGrammar.FindStringSubmatch(token)
	if m == nil {
		return false
	}
	i, err := strconv.Atoi(m[2])
	return err == nil && i < poker.DeckSize
}

func (Placeholder) Index(token string) (int, bool) {
	if token == "" || strings.HasPrefix(token, "s") {
		return 0, false
	}
	i, err := strconv.Atoi(token)
	if err != nil || i < 0 || i >= poker.DeckSize || strconv.Itoa(i) != token {
		return 0, false
	}
	return i, true
}

type prefixSecrets []string

func (s prefixSecrets) Len() int      { return len(s) }
func (s prefixSecrets) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// Strip removes the first layer of token that belongs to this pass, trying
// every secret in turn.
func (s prefixSecrets) Strip(token string) (string, bool) {
	layers, rest := splitLayers(token)
	for li, l := range layers {
		for _, secret := range s {
			if secret != "" && secret == l {
				return strings.Join(layers[:li], "") + strings.Join(layers[li+1:], "") + rest, true
			}
		}
	}
	return token, false
}

// splitLayers breaks a token into its "s<p>_<n>_" prefixes and the remainder.
func splitLayers(token string) ([]string, string) {
	var layers []string
	for strings.HasPrefix(token, "s") {
		first := strings.IndexByte(token, '_')
		if first < 0 {
			break
		}
		second := strings.IndexByte(token[first+1:], '_')
		if second < 0 {
			break
		}
		end := first + 1 + second + 1
		layers = append(layers, token[:end])
		token = token[end:]
	}
	return layers, token
}
