package referee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
	"github.com/luca-patrignani/mental-poker-channel/ledger"
)

var (
	ErrGameOver     = errors.New("game is over")
	ErrDisputed     = errors.New("game is under verification")
	ErrClaimPending = errors.New("a result claim is pending")
	ErrNoClaim      = errors.New("no result claimed")
	ErrOwnClaim     = errors.New("cannot confirm your own claim")
	ErrInvalidShare = errors.New("share does not conserve total funds")
	ErrWrongPlayer  = errors.New("turn submitted for another player")
	ErrSequence     = errors.New("turn out of sequence")
	ErrTooEarly     = errors.New("timeout has not elapsed")
	ErrNotAwaiting  = errors.New("counterparty is not expected to move")
)

// Status is the lifecycle of a refereed hand.
type Status int

const (
	StatusActive Status = iota
	StatusClaimed
	StatusVerification
	StatusSettled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusClaimed:
		return "claimed"
	case StatusVerification:
		return "verification"
	case StatusSettled:
		return "settled"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

const (
	// DefaultTimeout is the stall time after which a timeout can be claimed.
	DefaultTimeout = 30 * time.Second
	seatBuffer     = 64
)

// Referee arbitrates one hand between Alice and Bob.
type Referee struct {
	clock   quartz.Clock
	timeout time.Duration
	arbiter Arbiter
	logger  *slog.Logger
	chain   *ledger.Blockchain

	mu       sync.Mutex
	funds    [2]uint
	stakes   [2]uint
	seqs     [2]uint64
	status   Status
	claim    *[2]uint
	claimant poker.PlayerID
	awaiting poker.PlayerID
	lastMove time.Time
	turns    []channel.Turn
	result   [2]uint
	seats    [2]*Seat

	arbitrations sync.WaitGroup
}

// New creates a referee for a hand where the players bring funds.
func New(funds [2]uint, opts ...Option) *Referee {
	r := &Referee{
		clock:   quartz.NewReal(),
		timeout: DefaultTimeout,
		arbiter: Refund(),
		logger:  slog.New(slog.DiscardHandler),
		funds:   funds,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.chain = ledger.NewBlockchain(func() time.Time { return r.clock.Now() })
	r.lastMove = r.clock.Now()
	for p := range r.seats {
		r.seats[p] = newSeat(r, poker.PlayerID(p))
	}
	return r
}

// Seat returns the turn channel of player p.
func (r *Referee) Seat(p poker.PlayerID) *Seat { return r.seats[p] }

// Funds are the funds each player brought to the hand.
func (r *Referee) Funds() [2]uint { return r.funds }

// Ledger is the record of the hand.
func (r *Referee) Ledger() *ledger.Blockchain { return r.chain }

// Status reports the current lifecycle state.
func (r *Referee) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Result returns the settlement once the hand is settled.
func (r *Referee) Result() ([2]uint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.status == StatusSettled
}

// Wait blocks until running arbitrations have finished.
func (r *Referee) Wait() { r.arbitrations.Wait() }

func (r *Referee) submitTurn(p poker.PlayerID, t channel.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.activeLocked(); err != nil {
		return err
	}
	if r.status == StatusClaimed {
		return ErrClaimPending
	}
	if t.Player != p {
		return ErrWrongPlayer
	}
	if t.Seq != r.seqs[p]+1 {
		return fmt.Errorf("%w: expected %d, got %d", ErrSequence, r.seqs[p]+1, t.Seq)
	}
	if _, err := r.chain.Append(ledger.KindTurn, int(p), t); err != nil {
		return err
	}
	r.seqs[p] = t.Seq
	r.stakes[p] = t.Stake
	r.awaiting = t.Next
	r.lastMove = r.clock.Now()
	r.turns = append(r.turns, t)
	r.seats[p.Other()].deliverTurn(t)
	r.logger.Debug("turn relayed", "player", p, "seq", t.Seq, "next", t.Next, "stake", t.Stake)
	return nil
}

func (r *Referee) claimResult(p poker.PlayerID, share [2]uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.activeLocked(); err != nil {
		return err
	}
	if r.status == StatusClaimed {
		return ErrClaimPending
	}
	if share[0]+share[1] != r.funds[0]+r.funds[1] {
		return fmt.Errorf("%w: %v", ErrInvalidShare, share)
	}
	if _, err := r.chain.Append(ledger.KindClaim, int(p), share); err != nil {
		return err
	}
	claim := share
	r.claim = &claim
	r.claimant = p
	r.status = StatusClaimed
	r.awaiting = p.Other()
	r.lastMove = r.clock.Now()
	r.seats[p.Other()].deliverClaim(share)
	r.logger.Info("result claimed", "player", p, "share", share)
	return nil
}

func (r *Referee) confirmResult(p poker.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.activeLocked(); err != nil {
		return err
	}
	if r.status != StatusClaimed {
		return ErrNoClaim
	}
	if r.claimant == p {
		return ErrOwnClaim
	}
	if _, err := r.chain.Append(ledger.KindConfirm, int(p), *r.claim); err != nil {
		return err
	}
	return r.settleLocked(*r.claim, "confirmed")
}

func (r *Referee) challengeGame(p poker.PlayerID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.status {
	case StatusSettled:
		return ErrGameOver
	case StatusVerification:
		// Both sides may detect the same fault; the first challenge wins.
		_, err := r.chain.Append(ledger.KindChallenge, int(p), reason)
		return err
	}
	if _, err := r.chain.Append(ledger.KindChallenge, int(p), reason); err != nil {
		return err
	}
	d := Dispute{
		Challenger: p,
		Reason:     reason,
		Funds:      r.funds,
		Stakes:     r.stakes,
		Claim:      r.claim,
		Turns:      append([]channel.Turn(nil), r.turns...),
	}
	r.status = StatusVerification
	r.claim = nil
	r.seats[p.Other()].deliverChallenge(reason)
	r.broadcastLocked(channel.Update{State: channel.StateChallenged, Message: reason})
	r.logger.Warn("hand challenged", "player", p, "reason", reason)

	r.arbitrations.Add(1)
	go r.arbitrate(d)
	return nil
}

func (r *Referee) arbitrate(d Dispute) {
	defer r.arbitrations.Done()

	r.mu.Lock()
	r.broadcastLocked(channel.Update{State: channel.StateArbitrating, Message: d.Reason})
	r.mu.Unlock()

	share, err := r.arbiter.Arbitrate(context.Background(), d)
	if err == nil && share[0]+share[1] != d.Funds[0]+d.Funds[1] {
		err = fmt.Errorf("%w: %v", ErrInvalidShare, share)
	}
	if err != nil {
		r.logger.Error("arbitration failed, refunding", "error", err)
		share = d.Funds
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusSettled {
		return
	}
	r.broadcastLocked(channel.Update{State: channel.StateResolved, Message: fmt.Sprintf("settled at %v", share)})
	if err := r.settleLocked(share, "arbitrated"); err != nil {
		r.logger.Error("recording settlement", "error", err)
	}
}

func (r *Referee) claimTimeout(p poker.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.activeLocked(); err != nil {
		return err
	}
	if r.awaiting == p {
		return ErrNotAwaiting
	}
	if elapsed := r.clock.Since(r.lastMove); elapsed < r.timeout {
		return fmt.Errorf("%w: %s of %s", ErrTooEarly, elapsed, r.timeout)
	}
	if _, err := r.chain.Append(ledger.KindTimeout, int(p), r.awaiting); err != nil {
		return err
	}
	share := forfeit(r.funds, r.stakes, p.Other())
	if r.status == StatusClaimed && r.claimant == p {
		share = *r.claim
	}
	return r.settleLocked(share, "timeout")
}

func (r *Referee) activeLocked() error {
	switch r.status {
	case StatusSettled:
		return ErrGameOver
	case StatusVerification:
		return ErrDisputed
	}
	return nil
}

func (r *Referee) settleLocked(share [2]uint, how string) error {
	if _, err := r.chain.Append(ledger.KindSettlement, ledger.Referee, share); err != nil {
		return err
	}
	r.status = StatusSettled
	r.result = share
	r.claim = nil
	for _, s := range r.seats {
		s.deliverGameOver(share)
	}
	r.logger.Info("hand settled", "share", share, "by", how)
	return nil
}

func (r *Referee) broadcastLocked(u channel.Update) {
	for _, s := range r.seats {
		s.deliverUpdate(u)
	}
}
