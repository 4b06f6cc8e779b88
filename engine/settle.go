package engine

import (
	"context"
	"fmt"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// showdown settles a hand that survived the river. The leader proves its
// hole cards first; the other player then folds if it lost, or proves its
// own, and claims the result.
func (e *Engine) showdown(ctx context.Context) error {
	leader := e.bets.Leader
	if leader == e.me {
		if err := e.sendShare(ctx, holePositions[e.me]); err != nil {
			return err
		}
		t, p, fold, err := e.receive(ctx)
		if err != nil {
			return err
		}
		if fold {
			return e.conclude(ctx, poker.FoldResult(e.cfg.Funds, e.absBets(), e.peer), false)
		}
		if p.Kind != kindReveal {
			return fault(ReasonMalformedTurn, "turn %d: expected hole cards or a fold", t.Seq)
		}
		if err := e.applyShare(p.Reveal, holePositions[e.peer]); err != nil {
			return err
		}
		r, err := e.evaluate()
		if err != nil {
			return err
		}
		return e.conclude(ctx, r, false)
	}

	if err := e.receiveShare(ctx, holePositions[e.peer]); err != nil {
		return err
	}
	r, err := e.evaluate()
	if err != nil {
		return err
	}
	if r.IsWinner[e.me] {
		if err := e.sendShare(ctx, holePositions[e.me]); err != nil {
			return err
		}
	} else {
		if err := e.send(ctx, foldSentinel, e.peer); err != nil {
			return err
		}
	}
	return e.conclude(ctx, r, true)
}

func (e *Engine) evaluate() (poker.Result, error) {
	alice, okA := e.hand(poker.Alice)
	bob, okB := e.hand(poker.Bob)
	if !okA || !okB {
		return poker.Result{}, fmt.Errorf("showdown with unknown cards")
	}
	sol, err := e.cfg.Evaluator.Solve([][]poker.Card{alice, bob})
	if err != nil {
		return poker.Result{}, fmt.Errorf("evaluating hands: %w", err)
	}
	return poker.ShowdownResult(e.cfg.Funds, e.absBets(), [2][]poker.Card{alice, bob}, sol)
}

// conclude records the local result and claims it when this side ended the
// hand.
func (e *Engine) conclude(ctx context.Context, r poker.Result, claimant bool) error {
	if e.result == nil {
		e.result = &r
		e.log.Info("hand finished", "share", r.FundsShare, "winner", r.IsWinner)
		e.emit(Event{Kind: EventResult, Result: &r})
	}
	if !claimant {
		return nil
	}
	if err := e.ch.ClaimResult(ctx, r.FundsShare); err != nil {
		return fmt.Errorf("claiming result: %w", err)
	}
	e.emit(Event{Kind: EventClaimed, Player: e.me, Share: r.FundsShare})
	return nil
}

// awaitSettlement waits for the authoritative GameOver, answering the
// counterparty's claim on the way.
func (e *Engine) awaitSettlement(ctx context.Context) error {
	for {
		if e.pendingClaim != nil && e.Phase() != PhaseVerification {
			claim := *e.pendingClaim
			e.pendingClaim = nil
			if err := e.reconcile(ctx, claim); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case share := <-e.ch.GameOver():
			e.settle(share)
			return nil
		case share := <-e.ch.ResultClaimed():
			e.pendingClaim = &share
		case reason := <-e.ch.GameChallenged():
			e.log.Warn("hand challenged by counterparty", "reason", reason)
			e.enterVerification(e.peer, reason)
		case u := <-e.ch.VerificationUpdates():
			e.emit(Event{Kind: EventVerification, Update: u})
		case t := <-e.ch.TurnOver():
			e.log.Warn("ignoring turn after the end of the hand", "seq", t.Seq)
		case req := <-e.actions:
			req.reply <- ErrNotYourTurn
		}
	}
}

// reconcile confirms a claim equal to the local result and challenges any
// other.
func (e *Engine) reconcile(ctx context.Context, claim [2]uint) error {
	e.emit(Event{Kind: EventClaimed, Player: e.peer, Share: claim})
	if e.result != nil && e.result.FundsShare == claim {
		if err := e.ch.ConfirmResult(ctx); err != nil {
			return fmt.Errorf("confirming result: %w", err)
		}
		return nil
	}
	local := "none"
	if e.result != nil {
		local = fmt.Sprint(e.result.FundsShare)
	}
	return e.escalate(ctx, &violation{
		reason: ReasonResultMismatch,
		detail: fmt.Errorf("claimed %v, computed %s", claim, local),
	})
}

// settle adopts an authoritative settlement. The local result only keeps
// its winner flags when the share agrees with it; a repeated identical
// settlement changes nothing.
func (e *Engine) settle(share [2]uint) poker.Result {
	if e.settled && e.result.FundsShare == share {
		return *e.result
	}
	r := poker.Result{FundsShare: share}
	switch {
	case e.result != nil && e.result.FundsShare == share:
		r.IsWinner = e.result.IsWinner
		r.Hands = e.result.Hands
	default:
		for p := range share {
			r.IsWinner[p] = share[p] > e.cfg.Funds[p]
		}
		if e.result != nil {
			r.Hands = e.result.Hands
		}
	}
	e.result = &r
	e.settled = true
	e.log.Info("hand settled", "share", share, "dispute", e.dispute)
	e.phase.Store(int32(PhaseEnd))
	e.emit(Event{Kind: EventSettled, Result: &r, Share: share, Reason: e.dispute})
	return r
}
