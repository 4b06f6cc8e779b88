package engine

import (
	"context"
	"maps"
	"slices"

	"github.com/luca-patrignani/mental-poker-channel/domain/deck"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// revealStreet exchanges the shares dealt on street. Preflop each player
// reveals the other's hole cards, later streets reveal the board. The bet
// leader sends first.
func (e *Engine) revealStreet(ctx context.Context, street Phase) error {
	give, take := boardByPhase[street], boardByPhase[street]
	if street == PhasePreflop {
		give, take = holePositions[e.peer], holePositions[e.me]
	}
	if e.bets.Leader == e.me {
		if err := e.sendShare(ctx, give); err != nil {
			return err
		}
		return e.receiveShare(ctx, take)
	}
	if err := e.receiveShare(ctx, take); err != nil {
		return err
	}
	return e.sendShare(ctx, give)
}

// sendShare strips the local layer from positions of the sealed deck.
func (e *Engine) sendShare(ctx context.Context, positions []int) error {
	share := deck.RevealPositions(e.sealed, e.secrets, positions, !e.cfg.WithholdReveals)
	body, err := encodeReveal(share)
	if err != nil {
		return err
	}
	return e.send(ctx, body, e.peer)
}

// receiveShare applies the counterparty's share of positions and removes
// the local layer. The deck is left untouched when the share is malformed.
func (e *Engine) receiveShare(ctx context.Context, positions []int) error {
	t, p, fold, err := e.receive(ctx)
	if err != nil {
		return err
	}
	if fold || p.Kind != kindReveal {
		return fault(ReasonMalformedTurn, "turn %d: expected a reveal", t.Seq)
	}
	return e.applyShare(p.Reveal, positions)
}

// applyShare validates and decrypts a share covering exactly positions.
func (e *Engine) applyShare(share map[int]string, positions []int) error {
	got := slices.Sorted(maps.Keys(share))
	if !slices.Equal(got, positions) {
		return fault(ReasonRevealFailure, "revealed positions %v, expected %v", got, positions)
	}
	if !deck.ApplyRevealed(e.cipher, e.view, share) {
		return fault(ReasonRevealFailure, "malformed token in %v", share)
	}

	known := make(map[int]bool, len(e.cards))
	for _, c := range e.cards {
		known[c.Index()] = true
	}
	revealed := make(map[int]poker.Card, len(positions))
	for _, pos := range positions {
		tok := e.view[pos]
		if stripped, ok := e.secrets.Strip(tok); ok {
			tok = stripped
		} else if e.cipher.Scheme() != deck.SchemeOff {
			return fault(ReasonRevealFailure, "position %d does not carry our layer", pos)
		}
		idx, ok := e.cipher.Index(tok)
		if !ok {
			return fault(ReasonRevealFailure, "position %d does not decrypt", pos)
		}
		if known[idx] {
			return fault(ReasonRevealFailure, "position %d repeats card %d", pos, idx)
		}
		known[idx] = true
		e.view[pos] = tok
		revealed[pos], _ = poker.FromIndex(idx)
	}
	maps.Copy(e.cards, revealed)
	e.emit(Event{Kind: EventCards, Cards: revealed})
	return nil
}

// hand is the known hole cards of p followed by the board.
func (e *Engine) hand(p poker.PlayerID) ([]poker.Card, bool) {
	var out []poker.Card
	for _, pos := range append(slices.Clone(holePositions[p]), boardPositions...) {
		c, ok := e.cards[pos]
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}
