// Package engine drives one hand of heads-up Texas Hold'em for the local
// player over a channel.TurnChannel.
//
// # Protocol
//
// The dealer opens with its setup (deck scheme, seed and signing key) and its
// shuffled, encrypted deck; the responder adds its own pass and returns the
// doubly encrypted deck, its key included. Each street then exchanges the
// players' shares of the cards being dealt, led by the bet leader, followed
// by a betting round. At showdown the leader proves its hole cards and the
// other player either folds or proves its own. Whoever ended the hand claims
// the result and the counterparty confirms it or challenges it.
//
// # Escalation
//
// Anything the counterparty does wrong is never returned as an error: the
// engine calls ChallengeGame with one of the Reason constants, moves to
// PhaseVerification and waits for the arbitrated settlement. Errors returned
// by Run are local or transport failures.
//
// # Hosting
//
// Run owns all hand state. The host reads Events and answers
// EventBetRequested with Act; Autoplay does both with a Policy.
package engine

import (
	"context"
	"crypto/ed25519"
	crand "crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/deck"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

// Escalation reasons passed to ChallengeGame.
const (
	ReasonRevealFailure     = "Failure to reveal card"
	ReasonInvalidBet        = "Invalid bet"
	ReasonStakeMismatch     = "Stake mismatch"
	ReasonResultMismatch    = "Result mismatch"
	ReasonInvalidSignature  = "Invalid signature"
	ReasonMalformedTurn     = "Malformed turn"
	ReasonHandshakeMismatch = "Handshake mismatch"
)

var (
	ErrNotYourTurn = errors.New("not your turn to act")
	ErrFinished    = errors.New("hand is finished")
	ErrRunning     = errors.New("engine is already running")
)

// errChallenged and errSettled unwind the protocol when the channel takes
// the hand out of the engine's hands.
var (
	errChallenged = errors.New("hand challenged")
	errSettled    = errors.New("hand settled")
)

// violation is a counterparty fault to escalate.
type violation struct {
	reason string
	detail error
}

func (v *violation) Error() string { return fmt.Sprintf("%s: %v", v.reason, v.detail) }
func (v *violation) Unwrap() error { return v.detail }

func fault(reason string, format string, args ...any) error {
	return &violation{reason: reason, detail: fmt.Errorf(format, args...)}
}

type actRequest struct {
	action poker.Action
	reply  chan error
}

// Engine is the protocol state machine of one player for one hand.
type Engine struct {
	cfg  Config
	ch   channel.TurnChannel
	me   poker.PlayerID
	peer poker.PlayerID
	log  *slog.Logger
	rng  *rand.Rand

	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	peerKey ed25519.PublicKey

	cipher  deck.Cipher
	sealed  deck.Deck
	view    deck.Deck
	secrets deck.Secrets
	cards   map[int]poker.Card
	bets    poker.BetState
	seq     uint64
	peerSeq uint64

	result       *poker.Result
	settled      bool
	pendingClaim *[2]uint
	dispute      string

	phase   atomic.Int32
	started atomic.Bool
	events  chan Event
	actions chan actRequest
	done    chan struct{}
}

// New creates the engine of cfg.Player. Both players post cfg.BigBlind
// before the handshake, so betting opens level with the dealer as leader.
func New(cfg Config, ch channel.TurnChannel) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating turn key: %w", err)
	}
	e := &Engine{
		cfg:     cfg,
		ch:      ch,
		me:      cfg.Player,
		peer:    cfg.Player.Other(),
		log:     cfg.Logger.With("player", cfg.Player),
		rng:     cfg.Rand,
		priv:    priv,
		pub:     pub,
		cards:   make(map[int]poker.Card),
		bets:    poker.BetState{PlayerBets: cfg.BigBlind, OpponentBets: cfg.BigBlind, Leader: cfg.Dealer},
		events:  make(chan Event, cfg.EventBuffer),
		actions: make(chan actRequest),
		done:    make(chan struct{}),
	}
	return e, nil
}

// Events returns the notification queue. It is closed when Run returns.
// Events are dropped rather than block the engine when the queue is full,
// except EventBetRequested which waits for room.
func (e *Engine) Events() <-chan Event { return e.events }

// Phase returns the current phase. Safe for concurrent use.
func (e *Engine) Phase() Phase { return Phase(e.phase.Load()) }

// Player is the local seat.
func (e *Engine) Player() poker.PlayerID { return e.me }

// Act submits the local player's betting decision. Illegal actions are
// rejected synchronously with the poker package errors and nothing is sent;
// calling it while no decision is pending returns ErrNotYourTurn.
func (e *Engine) Act(ctx context.Context, a poker.Action) error {
	req := actRequest{action: a, reply: make(chan error, 1)}
	select {
	case e.actions <- req:
	case <-e.done:
		return ErrFinished
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-e.done:
		return ErrFinished
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run plays the hand and returns its settled result. It can be called once.
func (e *Engine) Run(ctx context.Context) (poker.Result, error) {
	if !e.started.CompareAndSwap(false, true) {
		return poker.Result{}, ErrRunning
	}
	defer close(e.events)
	defer close(e.done)

	err := e.play(ctx)
	var v *violation
	switch {
	case err == nil, errors.Is(err, errChallenged):
	case errors.Is(err, errSettled):
		return *e.result, nil
	case errors.As(err, &v):
		if err := e.escalate(ctx, v); err != nil {
			return poker.Result{}, err
		}
	default:
		return poker.Result{}, err
	}
	if err := e.awaitSettlement(ctx); err != nil {
		if errors.Is(err, errSettled) {
			return *e.result, nil
		}
		return poker.Result{}, err
	}
	return *e.result, nil
}

// play runs the protocol up to the local result and the claim.
func (e *Engine) play(ctx context.Context) error {
	if err := e.handshake(ctx); err != nil {
		return err
	}
	for _, street := range streets {
		e.setPhase(street)
		if err := e.revealStreet(ctx, street); err != nil {
			return err
		}
		ended, err := e.bettingRound(ctx)
		if err != nil || ended {
			return err
		}
	}
	e.setPhase(PhaseShowdown)
	return e.showdown(ctx)
}

// escalate challenges the hand and enters PhaseVerification.
func (e *Engine) escalate(ctx context.Context, v *violation) error {
	e.log.Warn("escalating", "reason", v.reason, "error", v.detail)
	e.enterVerification(e.me, v.reason)
	if err := e.ch.ChallengeGame(ctx, v.reason); err != nil {
		return fmt.Errorf("challenging game: %w", err)
	}
	return nil
}

func (e *Engine) enterVerification(challenger poker.PlayerID, reason string) {
	e.dispute = reason
	e.pendingClaim = nil
	e.phase.Store(int32(PhaseVerification))
	e.emit(Event{Kind: EventChallenged, Player: challenger, Reason: reason})
}

// setPhase advances the phase. Once in verification only settlement moves
// the engine on.
func (e *Engine) setPhase(p Phase) {
	cur := e.Phase()
	if cur == PhaseVerification && p != PhaseEnd {
		return
	}
	if p <= cur && p != PhaseVerification {
		return
	}
	e.phase.Store(int32(p))
	e.log.Debug("phase", "phase", p)
	e.emit(Event{Kind: EventPhase})
}

func (e *Engine) emit(ev Event) {
	ev = e.stamp(ev)
	select {
	case e.events <- ev:
	default:
		e.log.Debug("event queue full, dropping", "kind", ev.Kind)
	}
}

// stamp sets the state fields every event carries.
func (e *Engine) stamp(ev Event) Event {
	ev.Phase = e.Phase()
	ev.Bets = e.bets
	return ev
}

// absBets returns the bet totals indexed by PlayerID.
func (e *Engine) absBets() [2]uint {
	var b [2]uint
	b[e.me] = e.bets.PlayerBets
	b[e.peer] = e.bets.OpponentBets
	return b
}

// send signs and submits a turn carrying the current stake.
func (e *Engine) send(ctx context.Context, body []byte, next poker.PlayerID) error {
	t := channel.Turn{
		Player:  e.me,
		Seq:     e.seq + 1,
		Payload: body,
		Next:    next,
		Stake:   e.bets.PlayerBets,
	}
	if err := t.Sign(e.priv); err != nil {
		return fmt.Errorf("signing turn: %w", err)
	}
	if err := e.ch.SubmitTurn(ctx, t); err != nil {
		// A counterparty claim closes the channel to further turns.
		select {
		case share := <-e.ch.ResultClaimed():
			e.pendingClaim = &share
		default:
		}
		if e.pendingClaim != nil && e.result == nil {
			return fault(ReasonResultMismatch, "claim %v before the hand ended", *e.pendingClaim)
		}
		return fmt.Errorf("submitting turn %d: %w", t.Seq, err)
	}
	e.seq = t.Seq
	return nil
}

// await blocks until the counterparty's next turn, or an action request
// when wantAction is set. Challenges and settlements arriving meanwhile
// unwind the caller with errChallenged or errSettled.
func (e *Engine) await(ctx context.Context, wantAction bool) (channel.Turn, *actRequest, error) {
	for {
		if e.pendingClaim != nil && e.result == nil {
			return e.earlyClaim(wantAction)
		}
		select {
		case <-ctx.Done():
			return channel.Turn{}, nil, ctx.Err()
		case t := <-e.ch.TurnOver():
			if wantAction {
				return channel.Turn{}, nil, fault(ReasonMalformedTurn, "turn %d received while waiting for a local decision", t.Seq)
			}
			return t, nil, nil
		case req := <-e.actions:
			if !wantAction {
				req.reply <- ErrNotYourTurn
				continue
			}
			return channel.Turn{}, &req, nil
		case reason := <-e.ch.GameChallenged():
			e.log.Warn("hand challenged by counterparty", "reason", reason)
			e.enterVerification(e.peer, reason)
			return channel.Turn{}, nil, errChallenged
		case share := <-e.ch.GameOver():
			e.settle(share)
			return channel.Turn{}, nil, errSettled
		case u := <-e.ch.VerificationUpdates():
			e.emit(Event{Kind: EventVerification, Update: u})
		case share := <-e.ch.ResultClaimed():
			e.pendingClaim = &share
		}
	}
}

// earlyClaim handles a counterparty claim received before the local result.
// The channel queues the turn that ended the hand ahead of its claim, so the
// claim is premature unless such a turn is already waiting.
func (e *Engine) earlyClaim(wantAction bool) (channel.Turn, *actRequest, error) {
	if !wantAction {
		select {
		case t := <-e.ch.TurnOver():
			return t, nil, nil
		default:
		}
	}
	return channel.Turn{}, nil, fault(ReasonResultMismatch, "claim %v before the hand ended", *e.pendingClaim)
}

// receive waits for the next counterparty turn and checks its envelope.
// A nil peer key skips signature verification; the handshake verifies
// key bearing turns itself.
func (e *Engine) receive(ctx context.Context) (channel.Turn, payload, bool, error) {
	t, _, err := e.await(ctx, false)
	if err != nil {
		return t, payload{}, false, err
	}
	if t.Player != e.peer {
		return t, payload{}, false, fault(ReasonMalformedTurn, "turn from %s", t.Player)
	}
	if t.Seq != e.peerSeq+1 {
		return t, payload{}, false, fault(ReasonMalformedTurn, "turn %d out of sequence, expected %d", t.Seq, e.peerSeq+1)
	}
	e.peerSeq = t.Seq
	if e.peerKey != nil {
		if err := e.verify(t, e.peerKey); err != nil {
			return t, payload{}, false, err
		}
	}
	p, fold, err := decodePayload(t.Payload)
	if err != nil {
		return t, payload{}, false, fault(ReasonMalformedTurn, "turn %d: %v", t.Seq, err)
	}
	return t, p, fold, nil
}

func (e *Engine) verify(t channel.Turn, key ed25519.PublicKey) error {
	ok, err := t.VerifySignature(key)
	if err != nil || !ok {
		return fault(ReasonInvalidSignature, "turn %d: valid=%v err=%v", t.Seq, ok, err)
	}
	return nil
}
