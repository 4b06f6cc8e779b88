package referee

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-patrignani/mental-poker-channel/channel"
	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
	"github.com/luca-patrignani/mental-poker-channel/ledger"
)

var funds = [2]uint{100, 100}

func turn(p poker.PlayerID, seq uint64, next poker.PlayerID, stake uint) channel.Turn {
	return channel.Turn{Player: p, Seq: seq, Payload: []byte(`{"kind":"bet"}`), Next: next, Stake: stake}
}

func recv[T any](t *testing.T, c <-chan T) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	var zero T
	return zero
}

func empty[T any](t *testing.T, c <-chan T) {
	t.Helper()
	select {
	case v := <-c:
		t.Fatalf("unexpected delivery %v", v)
	default:
	}
}

func TestSubmitTurnRelaysToCounterparty(t *testing.T) {
	ctx := context.Background()
	r := New(funds)
	alice, bob := r.Seat(poker.Alice), r.Seat(poker.Bob)

	require.NoError(t, alice.SubmitTurn(ctx, turn(poker.Alice, 1, poker.Bob, 10)))
	got := recv(t, bob.TurnOver())
	assert.Equal(t, uint64(1), got.Seq)
	assert.Equal(t, uint(10), got.Stake)
	empty(t, alice.TurnOver())

	err := alice.SubmitTurn(ctx, turn(poker.Alice, 3, poker.Bob, 10))
	assert.ErrorIs(t, err, ErrSequence)
	err = bob.SubmitTurn(ctx, turn(poker.Alice, 1, poker.Bob, 10))
	assert.ErrorIs(t, err, ErrWrongPlayer)

	assert.Equal(t, 2, r.Ledger().Len())
	require.NoError(t, r.Ledger().Verify())
}

func TestSubmitTurnHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(funds)
	err := r.Seat(poker.Alice).SubmitTurn(ctx, turn(poker.Alice, 1, poker.Bob, 10))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClaimAndConfirm(t *testing.T) {
	ctx := context.Background()
	r := New(funds)
	alice, bob := r.Seat(poker.Alice), r.Seat(poker.Bob)

	assert.ErrorIs(t, bob.ConfirmResult(ctx), ErrNoClaim)
	assert.ErrorIs(t, alice.ClaimResult(ctx, [2]uint{150, 100}), ErrInvalidShare)

	require.NoError(t, alice.ClaimResult(ctx, [2]uint{110, 90}))
	assert.Equal(t, [2]uint{110, 90}, recv(t, bob.ResultClaimed()))
	assert.Equal(t, StatusClaimed, r.Status())
	assert.ErrorIs(t, alice.ConfirmResult(ctx), ErrOwnClaim)
	assert.ErrorIs(t, bob.ClaimResult(ctx, [2]uint{90, 110}), ErrClaimPending)

	require.NoError(t, bob.ConfirmResult(ctx))
	assert.Equal(t, [2]uint{110, 90}, recv(t, alice.GameOver()))
	assert.Equal(t, [2]uint{110, 90}, recv(t, bob.GameOver()))

	share, ok := r.Result()
	require.True(t, ok)
	assert.Equal(t, [2]uint{110, 90}, share)
	assert.ErrorIs(t, alice.SubmitTurn(ctx, turn(poker.Alice, 1, poker.Bob, 10)), ErrGameOver)
	assert.Equal(t, ledger.KindSettlement, r.Ledger().GetLatest().Kind)
	require.NoError(t, r.Ledger().Verify())
}

func TestChallengeIsArbitrated(t *testing.T) {
	ctx := context.Background()
	r := New(funds)
	alice, bob := r.Seat(poker.Alice), r.Seat(poker.Bob)

	require.NoError(t, alice.SubmitTurn(ctx, turn(poker.Alice, 1, poker.Bob, 10)))
	require.NoError(t, bob.ChallengeGame(ctx, "Failure to reveal card"))
	assert.Equal(t, "Failure to reveal card", recv(t, alice.GameChallenged()))
	empty(t, bob.GameChallenged())

	first := recv(t, alice.VerificationUpdates())
	assert.Equal(t, channel.StateChallenged, first.State)
	assert.Equal(t, [2]uint{100, 100}, recv(t, alice.GameOver()))
	assert.Equal(t, [2]uint{100, 100}, recv(t, bob.GameOver()))
	r.Wait()

	var states []string
	for {
		select {
		case u := <-bob.VerificationUpdates():
			states = append(states, u.State)
			continue
		default:
		}
		break
	}
	assert.Equal(t, []string{channel.StateChallenged, channel.StateArbitrating, channel.StateResolved}, states)
	assert.ErrorIs(t, alice.ChallengeGame(ctx, "late"), ErrGameOver)
}

func TestDuplicateChallengeIsAccepted(t *testing.T) {
	ctx := context.Background()
	block := make(chan struct{})
	r := New(funds, WithArbiter(ArbiterFunc(func(ctx context.Context, d Dispute) ([2]uint, error) {
		<-block
		return d.Funds, nil
	})))
	require.NoError(t, r.Seat(poker.Alice).ChallengeGame(ctx, "Result mismatch"))
	require.NoError(t, r.Seat(poker.Bob).ChallengeGame(ctx, "Result mismatch"))
	assert.Equal(t, StatusVerification, r.Status())
	assert.ErrorIs(t, r.Seat(poker.Alice).ClaimResult(ctx, funds), ErrDisputed)
	close(block)
	r.Wait()
	assert.Equal(t, StatusSettled, r.Status())
}

func TestFavorChallenger(t *testing.T) {
	ctx := context.Background()
	r := New(funds, WithArbiter(FavorChallenger()))
	alice, bob := r.Seat(poker.Alice), r.Seat(poker.Bob)

	require.NoError(t, alice.SubmitTurn(ctx, turn(poker.Alice, 1, poker.Bob, 30)))
	require.NoError(t, bob.SubmitTurn(ctx, turn(poker.Bob, 1, poker.Alice, 20)))
	require.NoError(t, alice.ChallengeGame(ctx, "Invalid bet"))
	assert.Equal(t, [2]uint{120, 80}, recv(t, alice.GameOver()))
}

func TestBrokenArbiterRefunds(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		arbiter Arbiter
	}{
		{"error", ArbiterFunc(func(context.Context, Dispute) ([2]uint, error) {
			return [2]uint{}, errors.New("arbiter offline")
		})},
		{"unbalanced", ArbiterFunc(func(context.Context, Dispute) ([2]uint, error) {
			return [2]uint{500, 0}, nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(funds, WithArbiter(tt.arbiter))
			require.NoError(t, r.Seat(poker.Bob).ChallengeGame(ctx, "Invalid signature"))
			assert.Equal(t, funds, recv(t, r.Seat(poker.Bob).GameOver()))
		})
	}
}

func TestClaimTimeout(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	r := New(funds, WithClock(clock), WithTimeout(30*time.Second))
	alice, bob := r.Seat(poker.Alice), r.Seat(poker.Bob)

	require.NoError(t, alice.SubmitTurn(ctx, turn(poker.Alice, 1, poker.Bob, 10)))
	require.NoError(t, bob.SubmitTurn(ctx, turn(poker.Bob, 1, poker.Alice, 20)))
	require.NoError(t, alice.SubmitTurn(ctx, turn(poker.Alice, 2, poker.Bob, 20)))

	assert.ErrorIs(t, alice.ClaimTimeout(ctx), ErrTooEarly)
	assert.ErrorIs(t, bob.ClaimTimeout(ctx), ErrNotAwaiting)

	clock.Advance(31 * time.Second).MustWait(ctx)
	require.NoError(t, alice.ClaimTimeout(ctx))
	assert.Equal(t, [2]uint{120, 80}, recv(t, alice.GameOver()))
	assert.Equal(t, [2]uint{120, 80}, recv(t, bob.GameOver()))

	blocks := r.Ledger().Blocks()
	assert.Equal(t, ledger.KindTimeout, blocks[len(blocks)-2].Kind)
}

func TestClaimantTimeoutSettlesClaim(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	r := New(funds, WithClock(clock), WithTimeout(time.Minute))
	bob := r.Seat(poker.Bob)

	require.NoError(t, bob.ClaimResult(ctx, [2]uint{90, 110}))
	clock.Advance(time.Minute).MustWait(ctx)
	assert.ErrorIs(t, r.Seat(poker.Alice).ClaimTimeout(ctx), ErrNotAwaiting)
	require.NoError(t, bob.ClaimTimeout(ctx))
	assert.Equal(t, [2]uint{90, 110}, recv(t, bob.GameOver()))
}

func TestParseArbiter(t *testing.T) {
	for _, name := range []string{"", "refund", "challenger"} {
		_, err := ParseArbiter(name)
		require.NoError(t, err)
	}
	_, err := ParseArbiter("coin flip")
	assert.Error(t, err)
}
