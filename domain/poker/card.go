package poker

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// Card suit constants (0-3). The suit of a card is its index divided by 13.
const (
	Club    = 0 // ♣ (black)
	Diamond = 1 // ♦ (red)
	Heart   = 2 // ♥ (red)
	Spade   = 3 // ♠ (black)
)

const (
	// DeckSize is the number of cards in a standard deck.
	DeckSize = 52
	// InvalidIndex is returned by ToIndex for anything that is not a card.
	InvalidIndex = 99
	// FaceDown is the display character for hidden cards.
	FaceDown = "▓"
)

const valueSymbols = "23456789TJQKA"

var suitSymbols = [4]string{"♣", "♦", "♥", "♠"}

// Card is a playing card encoded by its deck index in [0,51].
// Value is index%13 (0 is a deuce, 12 an ace) and suit is index/13.
type Card uint8

// FromIndex returns the card with the given index. The boolean is false when
// the index is outside [0,51].
func FromIndex(i int) (Card, bool) {
	if i < 0 || i >= DeckSize {
		return 0, false
	}
	return Card(i), true
}

// NewCard builds a card from its suit (0-3) and value (0-12).
func NewCard(suit, value uint8) (Card, error) {
	if suit > 3 || value > 12 {
		return 0, fmt.Errorf("invalid card %d, %d", suit, value)
	}
	return Card(suit*13 + value), nil
}

// Index returns the deck index of the card.
func (c Card) Index() int { return int(c) }

// Value returns 0-12, deuce through ace.
func (c Card) Value() uint8 { return uint8(c) % 13 }

// Suit returns 0-3: clubs, diamonds, hearts, spades.
func (c Card) Suit() uint8 { return uint8(c) / 13 }

// Display returns the value and suit symbols of the card, e.g. ("A", "♠").
func (c Card) Display() (string, string) {
	if int(c) >= DeckSize {
		return "?", "?"
	}
	return string(valueSymbols[c.Value()]), suitSymbols[c.Suit()]
}

// String returns the plain display form, e.g. "T♥". It is the inverse of ToIndex.
func (c Card) String() string {
	v, s := c.Display()
	return v + s
}

// Pretty renders the card for a terminal with the suit coloured.
func (c Card) Pretty() string {
	v, s := c.Display()
	switch c.Suit() {
	case Diamond, Heart:
		return v + pterm.LightRed(s)
	case Club, Spade:
		return v + pterm.Black(s)
	}
	return FaceDown
}

// ToIndex parses a display string such as "A♠", "Ts" or "10h" and returns its
// deck index, or InvalidIndex when the input is not a card.
func ToIndex(display string) int {
	r := []rune(strings.TrimSpace(display))
	if len(r) < 2 {
		return InvalidIndex
	}
	suit := suitOf(r[len(r)-1])
	if suit < 0 {
		return InvalidIndex
	}
	value := valueOf(strings.ToUpper(string(r[:len(r)-1])))
	if value < 0 {
		return InvalidIndex
	}
	return suit*13 + value
}

// ParseCard is ToIndex returning a Card.
func ParseCard(display string) (Card, error) {
	i := ToIndex(display)
	if i == InvalidIndex {
		return 0, fmt.Errorf("invalid card %q", display)
	}
	return Card(i), nil
}

func valueOf(s string) int {
	if s == "10" {
		s = "T"
	}
	if len(s) != 1 {
		return -1
	}
	return strings.IndexByte(valueSymbols, s[0])
}

func suitOf(r rune) int {
	for i, s := range suitSymbols {
		if string(r) == s {
			return i
		}
	}
	switch r {
	case 'c', 'C':
		return Club
	case 'd', 'D':
		return Diamond
	case 'h', 'H':
		return Heart
	case 's', 'S':
		return Spade
	}
	return -1
}

// Cards formats a hand as space separated display strings.
func Cards(cs []Card) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
