package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// Policy decides the local player's bets for Autoplay.
type Policy interface {
	Decide(ev Event) poker.Action
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ev Event) poker.Action

func (f PolicyFunc) Decide(ev Event) poker.Action { return f(ev) }

// Passive checks whenever possible and calls otherwise.
func Passive() Policy {
	return PolicyFunc(func(ev Event) poker.Action {
		if ev.Bets.Even() {
			return poker.Check()
		}
		return poker.Call()
	})
}

// Aggressive raises by step whenever the bets are level and calls otherwise.
func Aggressive(step uint) Policy {
	return PolicyFunc(func(ev Event) poker.Action {
		if ev.Bets.Even() {
			return poker.Raise(step)
		}
		return poker.Call()
	})
}

// Random picks uniformly between calling or checking, raising one step and
// folding when folding is allowed.
func Random(rng *rand.Rand, step uint) Policy {
	var mu sync.Mutex
	return PolicyFunc(func(ev Event) poker.Action {
		mu.Lock()
		n := rng.IntN(4)
		mu.Unlock()
		switch {
		case n == 0 && !ev.Bets.Even():
			return poker.Fold()
		case n == 1:
			return poker.Raise(step)
		case ev.Bets.Even():
			return poker.Check()
		}
		return poker.Call()
	})
}

// Scripted plays actions in order, then falls back to Passive.
func Scripted(actions ...poker.Action) Policy {
	var mu sync.Mutex
	fallback := Passive()
	return PolicyFunc(func(ev Event) poker.Action {
		mu.Lock()
		defer mu.Unlock()
		if len(actions) == 0 {
			return fallback.Decide(ev)
		}
		a := actions[0]
		actions = actions[1:]
		return a
	})
}

// Autoplay drains e's events until Run returns, answering every bet request
// with policy. An illegal choice falls back to checking, calling and finally
// folding. Every event is passed to observe when it is not nil.
func Autoplay(ctx context.Context, e *Engine, policy Policy, observe func(Event)) error {
	for ev := range e.Events() {
		if observe != nil {
			observe(ev)
		}
		if ev.Kind != EventBetRequested {
			continue
		}
		if err := act(ctx, e, policy.Decide(ev)); err != nil {
			return err
		}
	}
	return nil
}

func act(ctx context.Context, e *Engine, choice poker.Action) error {
	var err error
	for _, a := range []poker.Action{choice, poker.Check(), poker.Call(), poker.Fold()} {
		err = e.Act(ctx, a)
		switch {
		case err == nil, errors.Is(err, ErrFinished), errors.Is(err, ErrNotYourTurn):
			// The request went stale when the hand was challenged or settled.
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		}
		e.log.Debug("policy action rejected", "action", a, "error", err)
	}
	return err
}
