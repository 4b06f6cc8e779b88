package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

func TestDecodePayload(t *testing.T) {
	bet, err := encodeBet(poker.Raise(5), 15)
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    []byte
		kind    payloadKind
		fold    bool
		wantErr bool
	}{
		{name: "fold", body: foldSentinel, fold: true},
		{name: "bet", body: bet, kind: kindBet},
		{name: "reveal", body: []byte(`{"kind":"reveal","reveal":{"0":"12"}}`), kind: kindReveal},
		{name: "lowercase fold", body: []byte("fold"), wantErr: true},
		{name: "two kinds", body: []byte(`{"kind":"bet","bet":{"action":{"type":"check"},"total":10},"reveal":{"0":"1"}}`), wantErr: true},
		{name: "kind without body", body: []byte(`{"kind":"handshake"}`), wantErr: true},
		{name: "unknown kind", body: []byte(`{"kind":"chat"}`), wantErr: true},
		{name: "not json", body: []byte("hello"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, fold, err := decodePayload(tt.body)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.fold, fold)
			assert.Equal(t, tt.kind, p.Kind)
		})
	}

	p, _, err := decodePayload(bet)
	require.NoError(t, err)
	assert.Equal(t, poker.Raise(5), p.Bet.Action)
	assert.Equal(t, uint(15), p.Bet.Total)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "PREFLOP", PhasePreflop.String())
	assert.Equal(t, "VERIFICATION", PhaseVerification.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())
}
