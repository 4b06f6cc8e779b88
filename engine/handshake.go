package engine

import (
	"context"
	"fmt"

	"github.com/luca-patrignani/mental-poker-channel/domain/deck"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// handshake runs START: after it every player holds the sealed deck with
// both encryption layers and its own pass secrets.
func (e *Engine) handshake(ctx context.Context) error {
	if e.me == e.cfg.Dealer {
		return e.dealerHandshake(ctx)
	}
	return e.responderHandshake(ctx)
}

func (e *Engine) dealerHandshake(ctx context.Context) error {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(e.rng.Uint32())
	}
	c, err := deck.New(e.cfg.Scheme, seed)
	if err != nil {
		return err
	}
	e.cipher = c

	setup, err := encodeHandshake(handshake{Scheme: c.Scheme(), Seed: seed, Key: e.pub})
	if err != nil {
		return err
	}
	if err := e.send(ctx, setup, e.me); err != nil {
		return err
	}

	pass, err := deck.ShuffleAndEncrypt(c, nil, e.me, e.rng)
	if err != nil {
		return err
	}
	e.secrets = pass.Secrets
	body, err := encodeHandshake(handshake{Deck: pass.Deck})
	if err != nil {
		return err
	}
	if err := e.send(ctx, body, e.peer); err != nil {
		return err
	}

	t, p, fold, err := e.receive(ctx)
	if err != nil {
		return err
	}
	if fold || p.Kind != kindHandshake || p.Handshake.Key == nil {
		return fault(ReasonHandshakeMismatch, "expected the responder's deck and key")
	}
	if err := e.verify(t, p.Handshake.Key); err != nil {
		return err
	}
	e.peerKey = p.Handshake.Key
	if err := checkSealed(p.Handshake.Deck); err != nil {
		return fault(ReasonHandshakeMismatch, "responder deck: %v", err)
	}
	e.seal(p.Handshake.Deck)
	return nil
}

func (e *Engine) responderHandshake(ctx context.Context) error {
	t, p, fold, err := e.receive(ctx)
	if err != nil {
		return err
	}
	if fold || p.Kind != kindHandshake || p.Handshake.Key == nil || p.Handshake.Scheme == "" {
		return fault(ReasonHandshakeMismatch, "expected the dealer's setup")
	}
	if err := e.verify(t, p.Handshake.Key); err != nil {
		return err
	}
	e.peerKey = p.Handshake.Key
	if p.Handshake.Scheme != e.cfg.Scheme {
		return fault(ReasonHandshakeMismatch, "dealer proposed scheme %q, configured %q", p.Handshake.Scheme, e.cfg.Scheme)
	}
	c, err := deck.New(p.Handshake.Scheme, p.Handshake.Seed)
	if err != nil {
		return fault(ReasonHandshakeMismatch, "%v", err)
	}
	e.cipher = c

	_, p, fold, err = e.receive(ctx)
	if err != nil {
		return err
	}
	if fold || p.Kind != kindHandshake {
		return fault(ReasonHandshakeMismatch, "expected the dealer's deck")
	}
	if err := checkSealed(p.Handshake.Deck); err != nil {
		return fault(ReasonHandshakeMismatch, "dealer deck: %v", err)
	}
	pass, err := deck.ShuffleAndEncrypt(c, p.Handshake.Deck, e.me, e.rng)
	if err != nil {
		return fault(ReasonHandshakeMismatch, "%v", err)
	}
	e.secrets = pass.Secrets
	body, err := encodeHandshake(handshake{Deck: pass.Deck, Key: e.pub})
	if err != nil {
		return err
	}
	if err := e.send(ctx, body, e.cfg.Dealer); err != nil {
		return err
	}
	e.seal(pass.Deck)
	return nil
}

func (e *Engine) seal(d deck.Deck) {
	e.sealed = d.Clone()
	e.view = d.Clone()
	e.log.Debug("deck sealed", "scheme", e.cipher.Scheme())
}

// checkSealed rejects decks of the wrong size or with repeated tokens.
func checkSealed(d deck.Deck) error {
	if len(d) != poker.DeckSize {
		return fmt.Errorf("%d cards", len(d))
	}
	seen := make(map[string]struct{}, len(d))
	for i, tok := range d {
		if _, dup := seen[tok]; dup {
			return fmt.Errorf("position %d repeats a token", i)
		}
		seen[tok] = struct{}{}
	}
	return nil
}
