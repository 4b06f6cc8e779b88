package engine

import (
	"context"
	"crypto/ed25519"
	crand "crypto/rand"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/deck"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
	"github.com/luca-patrignani/mental-poker-channel/referee"
)

// fakeBob speaks the protocol by hand so tests can inject faults.
type fakeBob struct {
	t      *testing.T
	ctx    context.Context
	seat   *referee.Seat
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
	seq    uint64
	stake  uint
	cipher deck.Cipher
	pass   deck.Pass
}

func newFakeBob(t *testing.T, ctx context.Context, seat *referee.Seat) *fakeBob {
	pub, priv, err := ed25519.GenerateKey(crand.Reader)
	require.NoError(t, err)
	return &fakeBob{t: t, ctx: ctx, seat: seat, priv: priv, pub: pub, stake: 10}
}

func (f *fakeBob) recv() (channel.Turn, payload, bool) {
	f.t.Helper()
	select {
	case turn := <-f.seat.TurnOver():
		p, fold, err := decodePayload(turn.Payload)
		require.NoError(f.t, err)
		return turn, p, fold
	case <-f.ctx.Done():
		f.t.Fatal("timed out waiting for a turn")
	}
	return channel.Turn{}, payload{}, false
}

func (f *fakeBob) send(body []byte, next poker.PlayerID) {
	f.t.Helper()
	f.sendWith(body, next, f.priv)
}

func (f *fakeBob) sendWith(body []byte, next poker.PlayerID, key ed25519.PrivateKey) {
	f.t.Helper()
	f.seq++
	turn := channel.Turn{Player: poker.Bob, Seq: f.seq, Payload: body, Next: next, Stake: f.stake}
	require.NoError(f.t, turn.Sign(key))
	require.NoError(f.t, f.seat.SubmitTurn(f.ctx, turn))
}

// handshake answers the dealer's setup and deck honestly.
func (f *fakeBob) handshake() {
	f.t.Helper()
	f.handshakeWith(nil)
}

// handshakeWith answers the dealer's setup, letting edit alter the returned
// deck and key.
func (f *fakeBob) handshakeWith(edit func(h *handshake)) {
	f.t.Helper()
	_, setup, _ := f.recv()
	c, err := deck.New(setup.Handshake.Scheme, setup.Handshake.Seed)
	require.NoError(f.t, err)
	f.cipher = c
	_, dealt, _ := f.recv()
	f.pass, err = deck.ShuffleAndEncrypt(c, dealt.Handshake.Deck, poker.Bob, rand.New(rand.NewPCG(5, 5)))
	require.NoError(f.t, err)
	h := handshake{Deck: f.pass.Deck, Key: f.pub}
	if edit != nil {
		edit(&h)
	}
	body, err := encodeHandshake(h)
	require.NoError(f.t, err)
	f.send(body, poker.Alice)
}

// preflop takes Alice's share of Bob's holes and returns hers honestly.
func (f *fakeBob) preflop() {
	f.t.Helper()
	f.recv()
	body, err := encodeReveal(deck.RevealPositions(f.pass.Deck, f.pass.Secrets, holePositions[poker.Alice], true))
	require.NoError(f.t, err)
	f.send(body, poker.Alice)
}

func (f *fakeBob) claim(share [2]uint) {
	f.t.Helper()
	require.NoError(f.t, f.seat.ClaimResult(f.ctx, share))
}

func (f *fakeBob) bet(a poker.Action, total uint) {
	f.t.Helper()
	body, err := encodeBet(a, total)
	require.NoError(f.t, err)
	f.send(body, poker.Alice)
}

// cheatAgainst runs a real Alice against script and returns her engine, her
// events and her result.
func cheatAgainst(t *testing.T, script func(f *fakeBob)) (*Engine, []Event, poker.Result) {
	t.Helper()
	return cheatAgainstWith(t, baseConfig(poker.Alice, 21), nil, script)
}

// cheatAgainstWith is cheatAgainst with Alice configured by cfg and, when
// wrap is set, reading her seat through wrap.
func cheatAgainstWith(t *testing.T, cfg Config, wrap func(context.Context, *referee.Seat) channel.TurnChannel, script func(f *fakeBob)) (*Engine, []Event, poker.Result) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ref := referee.New(funds)
	var seat channel.TurnChannel = ref.Seat(poker.Alice)
	if wrap != nil {
		seat = wrap(ctx, ref.Seat(poker.Alice))
	}
	a, err := New(cfg, seat)
	require.NoError(t, err)

	var events []Event
	played := make(chan error, 1)
	go func() {
		played <- Autoplay(ctx, a, Passive(), func(ev Event) { events = append(events, ev) })
	}()
	type outcome struct {
		r   poker.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := a.Run(ctx)
		done <- outcome{r, err}
	}()

	script(newFakeBob(t, ctx, ref.Seat(poker.Bob)))

	o := <-done
	require.NoError(t, o.err)
	require.NoError(t, <-played)
	ref.Wait()
	return a, events, o.r
}

// tampered relays the turns received by a seat through edit.
type tampered struct {
	*referee.Seat
	turns chan channel.Turn
}

func tamper(edit func(channel.Turn) channel.Turn) func(context.Context, *referee.Seat) channel.TurnChannel {
	return func(ctx context.Context, seat *referee.Seat) channel.TurnChannel {
		tt := &tampered{Seat: seat, turns: make(chan channel.Turn, 64)}
		go func() {
			for {
				select {
				case turn := <-seat.TurnOver():
					tt.turns <- edit(turn)
				case <-ctx.Done():
					return
				}
			}
		}()
		return tt
	}
}

func (tt *tampered) TurnOver() <-chan channel.Turn { return tt.turns }

func challengeReason(t *testing.T, events []Event) string {
	t.Helper()
	ch := find(events, EventChallenged)
	require.Len(t, ch, 1)
	assert.Equal(t, poker.Alice, ch[0].Player)
	return ch[0].Reason
}

func TestGarbageRevealLeavesDeckUntouched(t *testing.T) {
	a, events, r := cheatAgainst(t, func(f *fakeBob) {
		f.handshake()
		f.recv()
		body, err := encodeReveal(map[int]string{0: "garbage", 1: "garbage"})
		require.NoError(t, err)
		f.send(body, poker.Alice)
	})

	assert.Equal(t, ReasonRevealFailure, challengeReason(t, events))
	assert.Equal(t, funds, r.FundsShare)
	assert.Equal(t, PhaseEnd, a.Phase())
	assert.Equal(t, a.sealed[0], a.view[0])
	assert.Equal(t, a.sealed[1], a.view[1])
	assert.Empty(t, find(events, EventCards))
}

func TestWrongPositionsAreChallenged(t *testing.T) {
	_, events, _ := cheatAgainst(t, func(f *fakeBob) {
		f.handshake()
		f.recv()
		body, err := encodeReveal(deck.RevealPositions(f.pass.Deck, f.pass.Secrets, []int{0, 4}, true))
		require.NoError(t, err)
		f.send(body, poker.Alice)
	})
	assert.Equal(t, ReasonRevealFailure, challengeReason(t, events))
}

func TestCheatingBetsAreChallenged(t *testing.T) {
	tests := []struct {
		name   string
		cheat  func(f *fakeBob)
		reason string
	}{
		{"call when level", func(f *fakeBob) { f.bet(poker.Call(), 10) }, ReasonInvalidBet},
		{"fold when level", func(f *fakeBob) { f.send(foldSentinel, poker.Alice) }, ReasonInvalidBet},
		{"raise beyond funds", func(f *fakeBob) { f.stake = 200; f.bet(poker.Raise(190), 200) }, ReasonInvalidBet},
		{"declared total", func(f *fakeBob) { f.bet(poker.Check(), 30) }, ReasonStakeMismatch},
		{"turn stake", func(f *fakeBob) { f.stake = 30; f.bet(poker.Check(), 10) }, ReasonStakeMismatch},
		{"reveal instead of bet", func(f *fakeBob) {
			body, err := encodeReveal(map[int]string{4: "4"})
			require.NoError(f.t, err)
			f.send(body, poker.Alice)
		}, ReasonMalformedTurn},
		{"foreign signature", func(f *fakeBob) {
			_, other, err := ed25519.GenerateKey(crand.Reader)
			require.NoError(f.t, err)
			body, err := encodeBet(poker.Check(), 10)
			require.NoError(f.t, err)
			f.sendWith(body, poker.Alice, other)
		}, ReasonInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, events, r := cheatAgainst(t, func(f *fakeBob) {
				f.handshake()
				f.preflop()
				// Alice leads preflop and checks.
				f.recv()
				tt.cheat(f)
			})
			assert.Equal(t, tt.reason, challengeReason(t, events))
			assert.Equal(t, funds, r.FundsShare)
			assert.Len(t, find(events, EventCards), 1)
		})
	}
}

func TestEarlyClaimIsChallenged(t *testing.T) {
	stolen := [2]uint{0, 200}
	tests := []struct {
		name   string
		script func(f *fakeBob)
	}{
		{"during the handshake", func(f *fakeBob) {
			f.handshake()
			f.claim(stolen)
		}},
		{"instead of a reveal", func(f *fakeBob) {
			f.handshake()
			f.recv()
			f.claim(stolen)
		}},
		{"instead of a bet", func(f *fakeBob) {
			f.handshake()
			f.preflop()
			// Alice leads preflop and checks.
			f.recv()
			f.claim(stolen)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, events, r := cheatAgainst(t, tt.script)
			assert.Equal(t, ReasonResultMismatch, challengeReason(t, events))
			assert.Equal(t, funds, r.FundsShare)
			assert.Equal(t, PhaseEnd, a.Phase())
		})
	}
}

func TestHandshakeFaultsAreChallenged(t *testing.T) {
	tests := []struct {
		name string
		edit func(h *handshake)
	}{
		{"short deck", func(h *handshake) { h.Deck = h.Deck[:poker.DeckSize-1] }},
		{"repeated token", func(h *handshake) {
			d := h.Deck.Clone()
			d[1] = d[0]
			h.Deck = d
		}},
		{"missing key", func(h *handshake) { h.Key = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, events, r := cheatAgainst(t, func(f *fakeBob) { f.handshakeWith(tt.edit) })
			assert.Equal(t, ReasonHandshakeMismatch, challengeReason(t, events))
			assert.Equal(t, funds, r.FundsShare)
			assert.Nil(t, a.sealed)
		})
	}
}

func TestSchemeMismatchIsChallenged(t *testing.T) {
	cfg := baseConfig(poker.Alice, 21)
	cfg.Dealer = poker.Bob
	_, events, r := cheatAgainstWith(t, cfg, nil, func(f *fakeBob) {
		body, err := encodeHandshake(handshake{Scheme: deck.SchemeKyber, Seed: make([]byte, 32), Key: f.pub})
		require.NoError(t, err)
		f.send(body, poker.Bob)
	})
	assert.Equal(t, ReasonHandshakeMismatch, challengeReason(t, events))
	assert.Equal(t, funds, r.FundsShare)
}

func TestTamperedEnvelopesAreChallenged(t *testing.T) {
	tests := []struct {
		name string
		edit func(turn channel.Turn) channel.Turn
	}{
		{"skipped sequence number", func(turn channel.Turn) channel.Turn {
			turn.Seq++
			return turn
		}},
		{"turn from the wrong player", func(turn channel.Turn) channel.Turn {
			turn.Player = poker.Alice
			return turn
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, events, r := cheatAgainstWith(t, baseConfig(poker.Alice, 21), tamper(tt.edit), func(f *fakeBob) { f.handshake() })
			assert.Equal(t, ReasonMalformedTurn, challengeReason(t, events))
			assert.Equal(t, funds, r.FundsShare)
		})
	}
}
