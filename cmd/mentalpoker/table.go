package main

import (
	"fmt"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
	"github.com/luca-patrignani/mental-poker-channel/engine"
)

// tableView is what one player knows of the hand, folded from its events.
type tableView struct {
	me     poker.PlayerID
	funds  [2]uint
	phase  engine.Phase
	bets   poker.BetState
	cards  map[int]poker.Card
	folded [2]bool

	lastPlayer poker.PlayerID
	lastAction *poker.Action
	result     *poker.Result
	settled    *poker.Result
	challenge  string
}

func newTableView(me poker.PlayerID, funds [2]uint) *tableView {
	return &tableView{me: me, funds: funds, cards: make(map[int]poker.Card)}
}

func (v *tableView) apply(ev engine.Event) {
	v.phase = ev.Phase
	v.bets = ev.Bets
	switch ev.Kind {
	case engine.EventCards:
		for pos, c := range ev.Cards {
			v.cards[pos] = c
		}
	case engine.EventBet:
		a := ev.Action
		v.lastPlayer, v.lastAction = ev.Player, &a
		if a.Type == poker.ActionFold {
			v.folded[ev.Player] = true
		}
	case engine.EventResult:
		v.result = ev.Result
	case engine.EventChallenged:
		v.challenge = fmt.Sprintf("%s challenged: %s", ev.Player, ev.Reason)
	case engine.EventSettled:
		v.settled = ev.Result
	}
}

// bet returns the total put in by p.
func (v *tableView) bet(p poker.PlayerID) uint {
	if p == v.me {
		return v.bets.PlayerBets
	}
	return v.bets.OpponentBets
}

// hole returns p's hole cards, face down when unknown.
func (v *tableView) hole(p poker.PlayerID) []string {
	return v.show(engine.HolePositions(p), true)
}

// board returns the community cards dealt so far.
func (v *tableView) board() []string {
	return v.show(engine.BoardPositions(), false)
}

func (v *tableView) show(positions []int, faceDown bool) []string {
	var out []string
	for _, pos := range positions {
		if c, ok := v.cards[pos]; ok {
			out = append(out, c.Pretty())
		} else if faceDown {
			out = append(out, poker.FaceDown)
		}
	}
	return out
}

// known returns the cards of positions when they are all known.
func (v *tableView) known(positions []int) ([]poker.Card, bool) {
	out := make([]poker.Card, 0, len(positions))
	for _, pos := range positions {
		c, ok := v.cards[pos]
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// describe names the best hand of p, when all its cards are known.
func (v *tableView) describe(p poker.PlayerID) (string, bool) {
	cards, ok := v.known(append(engine.HolePositions(p), engine.BoardPositions()...))
	if !ok {
		return "", false
	}
	d, err := poker.Describe(cards)
	if err != nil {
		return "", false
	}
	return d, true
}
