package settlement

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/driftswap/engine-go/core/types"
)

func TestOracleRelayRejectsBadAttestations(t *testing.T) {
	f := newFixture(t)
	record := f.initiate(1, 0)

	relay, err := NewOracleRelay(f.settler, f.oracle, zap.NewNop())
	require.NoError(t, err)

	err = relay.LogSettlementFillInfo(record.OrderHash, f.origin, record.Outputs, 50, 60)
	assert.ErrorIs(t, err, ErrFillerMismatch, "origin filler cannot stand in for the destination filler")

	short := make([]types.OutputToken, len(record.Outputs))
	copy(short, record.Outputs)
	short[0].Amount = big.NewInt(199)
	err = relay.LogSettlementFillInfo(record.OrderHash, f.destination, short, 50, 60)
	assert.ErrorIs(t, err, ErrOutputMismatch)

	misdirected := make([]types.OutputToken, len(record.Outputs))
	copy(misdirected, record.Outputs)
	misdirected[0].Recipient = f.destination
	err = relay.LogSettlementFillInfo(record.OrderHash, f.destination, misdirected, 50, 60)
	assert.ErrorIs(t, err, ErrOutputMismatch)

	err = relay.LogSettlementFillInfo(record.OrderHash, f.destination, nil, 50, 60)
	assert.ErrorIs(t, err, ErrOutputMismatch, "missing legs cannot cover")

	stored, err := f.settler.Get(record.OrderHash)
	require.NoError(t, err)
	assert.Equal(t, types.SettlementStatusPending, stored.Status, "rejected attestations must not settle")
}

func TestOracleRelayFinalizesOnCoveringFill(t *testing.T) {
	f := newFixture(t)
	record := f.initiate(1, 0)

	relay, err := NewOracleRelay(f.settler, f.oracle, zap.NewNop())
	require.NoError(t, err)

	// Overdelivery on a leg still proves the fill.
	attested := make([]types.OutputToken, len(record.Outputs))
	copy(attested, record.Outputs)
	attested[0].Amount = big.NewInt(250)

	require.NoError(t, relay.LogSettlementFillInfo(record.OrderHash, f.destination, attested, 90, 120))

	stored, err := f.settler.Get(record.OrderHash)
	require.NoError(t, err)
	assert.Equal(t, types.SettlementStatusSuccess, stored.Status)
	assert.Equal(t, int64(100), f.balance(f.tokenIn, f.origin))
	assert.Equal(t, int64(1000), f.balance(f.bondToken, f.origin))
}

func TestOracleRelayRejectsLateAttestation(t *testing.T) {
	f := newFixture(t)
	record := f.initiate(1, 0)

	relay, err := NewOracleRelay(f.settler, f.oracle, zap.NewNop())
	require.NoError(t, err)

	err = relay.LogSettlementFillInfo(record.OrderHash, f.destination, record.Outputs, 150, 160)
	assert.ErrorIs(t, err, ErrOrderFillExceededDeadline)
}
