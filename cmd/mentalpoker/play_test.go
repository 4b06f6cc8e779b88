package main

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
	"github.com/luca-patrignani/mental-poker-channel/referee"
)

func TestClaimTimeoutAgainstStalledOpponent(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	ref := referee.New([2]uint{100, 100}, referee.WithClock(clock), referee.WithTimeout(time.Second))
	bob := ref.Seat(poker.Bob)

	assert.False(t, claimTimeout(ctx, bob))
	_, settled := ref.Result()
	assert.False(t, settled)

	clock.Advance(2 * time.Second).MustWait(ctx)
	assert.True(t, claimTimeout(ctx, bob))
	_, settled = ref.Result()
	assert.True(t, settled)

	assert.False(t, claimTimeout(ctx, bob))
}
