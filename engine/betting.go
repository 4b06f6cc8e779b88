package engine

import (
	"context"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

func (e *Engine) funds(p poker.PlayerID) uint { return e.cfg.Funds[p] }

// bettingRound runs one round starting with the leader. ended is true when
// a fold finished the hand.
func (e *Engine) bettingRound(ctx context.Context) (ended bool, err error) {
	actor := e.bets.Leader
	for {
		var done bool
		if actor == e.me {
			done, ended, err = e.localBet(ctx)
		} else {
			done, ended, err = e.peerBet(ctx)
		}
		if err != nil || ended || done {
			return ended, err
		}
		actor = actor.Other()
	}
}

// ask emits a bet request and blocks until the host submits a legal action.
func (e *Engine) ask(ctx context.Context) (poker.Action, error) {
	select {
	case e.events <- e.stamp(Event{Kind: EventBetRequested, Player: e.me, Funds: e.funds(e.me)}):
	case <-ctx.Done():
		return poker.Action{}, ctx.Err()
	}
	for {
		_, req, err := e.await(ctx, true)
		if err != nil {
			return poker.Action{}, err
		}
		if _, _, err := e.bets.Apply(e.me, req.action, e.funds(e.me)); err != nil {
			req.reply <- err
			continue
		}
		req.reply <- nil
		return req.action, nil
	}
}

func (e *Engine) localBet(ctx context.Context) (done, ended bool, err error) {
	a, err := e.ask(ctx)
	if err != nil {
		return false, false, err
	}
	if a.Type == poker.ActionFold {
		if err := e.send(ctx, foldSentinel, e.peer); err != nil {
			return false, false, err
		}
		e.emit(Event{Kind: EventBet, Player: e.me, Action: a})
		return false, true, e.conclude(ctx, poker.FoldResult(e.cfg.Funds, e.absBets(), e.me), true)
	}

	next, done, _ := e.bets.Apply(e.me, a, e.funds(e.me))
	e.bets = next
	following := e.peer
	if done {
		following = next.Leader
	}
	body, err := encodeBet(a, next.PlayerBets)
	if err != nil {
		return false, false, err
	}
	if err := e.send(ctx, body, following); err != nil {
		return false, false, err
	}
	e.emit(Event{Kind: EventBet, Player: e.me, Action: a})
	return done, false, nil
}

// peerBet validates the counterparty's bet against our own derivation of it.
func (e *Engine) peerBet(ctx context.Context) (done, ended bool, err error) {
	t, p, fold, err := e.receive(ctx)
	if err != nil {
		return false, false, err
	}
	theirs := e.bets.Mirror()
	if fold {
		if _, _, err := theirs.Apply(e.peer, poker.Fold(), e.funds(e.peer)); err != nil {
			return false, false, fault(ReasonInvalidBet, "fold: %v", err)
		}
		e.emit(Event{Kind: EventBet, Player: e.peer, Action: poker.Fold()})
		return false, true, e.conclude(ctx, poker.FoldResult(e.cfg.Funds, e.absBets(), e.peer), false)
	}
	if p.Kind != kindBet {
		return false, false, fault(ReasonMalformedTurn, "turn %d: expected a bet", t.Seq)
	}
	a := p.Bet.Action
	if a.Type == poker.ActionFold {
		return false, false, fault(ReasonMalformedTurn, "fold sent as a bet update")
	}
	next, done, err := theirs.Apply(e.peer, a, e.funds(e.peer))
	if err != nil {
		return false, false, fault(ReasonInvalidBet, "%s: %v", a, err)
	}
	if p.Bet.Total != next.PlayerBets || t.Stake != next.PlayerBets {
		return false, false, fault(ReasonStakeMismatch, "declared %d, turn stake %d, derived %d", p.Bet.Total, t.Stake, next.PlayerBets)
	}
	// Advisory only: the next bettor and the next player to send a message
	// are not always the same seat.
	expected := e.me
	if done {
		expected = next.Leader
	}
	if t.Next != expected {
		e.log.Warn("unexpected next player", "declared", t.Next, "expected", expected, "seq", t.Seq)
	}
	e.bets = next.Mirror()
	e.emit(Event{Kind: EventBet, Player: e.peer, Action: a})
	return done, false, nil
}
