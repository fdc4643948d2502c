package integration

import (
	"math/big"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftswap/engine-go/core/settlement"
	"github.com/driftswap/engine-go/core/types"
)

// ═══════════════════════════════════════════════════════════════
// TEST SUITE: In-Process Settlement Lifecycle
// ═══════════════════════════════════════════════════════════════
//
// Cross-domain settlements walked end to end through the engine with the
// SQLite store underneath: escrow, challenge, cancellation payouts, oracle
// attestation, and day-bucketed listing.
// ═══════════════════════════════════════════════════════════════

func TestChallengedSettlementIsCancelled(t *testing.T) {
	f := NewEngineFixture(t)

	record, err := f.Engine.InitiateSettlement(f.Sign(f.CrossDomainOrder(1)), f.Filler, f.Destination, types.FillContext{Timestamp: 0})
	require.NoError(t, err)
	assert.Equal(t, types.SettlementStatusPending, record.Status)
	assert.Equal(t, int64(fillPeriod), record.FillDeadline)
	assert.Equal(t, int64(optimisticPeriod), record.OptimisticDeadline)
	assert.Equal(t, int64(challengePeriod), record.ChallengeDeadline)

	// Escrow is taken up front: the maker's input and the filler's collateral.
	assert.Equal(t, int64(999_900), f.Balance(f.TokenIn, f.Maker))
	assert.Equal(t, int64(9_500), f.Balance(f.BondToken, f.Filler))

	require.NoError(t, f.Engine.ChallengeSettlement(record.OrderHash, f.Challenger, 150))
	assert.Equal(t, int64(9_950), f.Balance(f.BondToken, f.Challenger))

	// A challenge freezes the optimistic payout path for good.
	err = f.Engine.FinalizeSettlementOptimistically(record.OrderHash, 250)
	assert.ErrorIs(t, err, settlement.ErrInvalidTransition)

	// Cancellation has to wait out the challenge window.
	err = f.Engine.CancelSettlement(record.OrderHash, 299)
	assert.ErrorIs(t, err, settlement.ErrChallengeWindowOpen)

	require.NoError(t, f.Engine.CancelSettlement(record.OrderHash, 400))

	stored, err := f.Engine.GetSettlement(record.OrderHash)
	require.NoError(t, err)
	assert.Equal(t, types.SettlementStatusCancelled, stored.Status)

	// The maker is made whole and takes half the forfeited collateral, the
	// challenger takes the other half plus the returned bond, and the filler
	// recovers nothing.
	assert.Equal(t, int64(1_000_000), f.Balance(f.TokenIn, f.Maker))
	assert.Equal(t, int64(250), f.Balance(f.BondToken, f.Maker))
	assert.Equal(t, int64(9_500), f.Balance(f.BondToken, f.Filler))
	assert.Equal(t, int64(10_250), f.Balance(f.BondToken, f.Challenger))

	// Terminal records refuse every further transition.
	assert.ErrorIs(t, f.Engine.CancelSettlement(record.OrderHash, 500), settlement.ErrInvalidTransition)
	assert.ErrorIs(t, f.Engine.ChallengeSettlement(record.OrderHash, f.Challenger, 500), settlement.ErrInvalidTransition)

	assert.Equal(t, []types.EventKind{
		types.EventKindInitiateSettlement,
		types.EventKindSettlementChallenged,
		types.EventKindSettlementCancelled,
	}, f.EventKinds())
}

func TestOracleProvesChallengedSettlement(t *testing.T) {
	f := NewEngineFixture(t)

	record, err := f.Engine.InitiateSettlement(f.Sign(f.CrossDomainOrder(2)), f.Filler, f.Destination, types.FillContext{Timestamp: 0})
	require.NoError(t, err)
	require.NoError(t, f.Engine.ChallengeSettlement(record.OrderHash, f.Challenger, 50))

	delivered := []types.OutputToken{{
		Token:     f.TokenOut,
		Amount:    big.NewInt(200),
		Recipient: f.Maker,
		ChainID:   42161,
	}}

	// Only a fill attested for the announced destination filler counts.
	err = f.Engine.LogSettlementFillInfo(record.OrderHash, f.Filler, delivered, 90, 120)
	assert.ErrorIs(t, err, settlement.ErrFillerMismatch)

	// Short delivery does not cover the order.
	short := []types.OutputToken{{
		Token:     f.TokenOut,
		Amount:    big.NewInt(150),
		Recipient: f.Maker,
		ChainID:   42161,
	}}
	err = f.Engine.LogSettlementFillInfo(record.OrderHash, f.Destination, short, 90, 120)
	assert.ErrorIs(t, err, settlement.ErrOutputMismatch)

	require.NoError(t, f.Engine.LogSettlementFillInfo(record.OrderHash, f.Destination, delivered, 90, 180))

	stored, err := f.Engine.GetSettlement(record.OrderHash)
	require.NoError(t, err)
	assert.Equal(t, types.SettlementStatusSuccess, stored.Status)

	// The proven filler is paid the input, their collateral back, and the
	// challenger's forfeited bond.
	assert.Equal(t, int64(100), f.Balance(f.TokenIn, f.Filler))
	assert.Equal(t, int64(10_050), f.Balance(f.BondToken, f.Filler))
	assert.Equal(t, int64(9_950), f.Balance(f.BondToken, f.Challenger))

	assert.Equal(t, []types.EventKind{
		types.EventKindInitiateSettlement,
		types.EventKindSettlementChallenged,
		types.EventKindSettlementFinalized,
	}, f.EventKinds())
}

func TestOracleRefusesLateFill(t *testing.T) {
	f := NewEngineFixture(t)

	record, err := f.Engine.InitiateSettlement(f.Sign(f.CrossDomainOrder(3)), f.Filler, f.Destination, types.FillContext{Timestamp: 0})
	require.NoError(t, err)

	delivered := []types.OutputToken{{
		Token:     f.TokenOut,
		Amount:    big.NewInt(200),
		Recipient: f.Maker,
		ChainID:   42161,
	}}

	// Attested fill time is past the fill deadline, however real the fill.
	err = f.Engine.LogSettlementFillInfo(record.OrderHash, f.Destination, delivered, 150, 200)
	assert.ErrorIs(t, err, settlement.ErrOrderFillExceededDeadline)

	stored, err := f.Engine.GetSettlement(record.OrderHash)
	require.NoError(t, err)
	assert.Equal(t, types.SettlementStatusPending, stored.Status)

	// The record is still live, so the maker recovers through cancellation.
	require.NoError(t, f.Engine.CancelSettlement(record.OrderHash, 400))
	assert.Equal(t, int64(1_000_000), f.Balance(f.TokenIn, f.Maker))
}

func TestListSettlementsByDay(t *testing.T) {
	f := NewEngineFixture(t)

	first, err := f.Engine.InitiateSettlement(f.Sign(f.CrossDomainOrder(4)), f.Filler, f.Destination, types.FillContext{Timestamp: 0})
	require.NoError(t, err)
	second, err := f.Engine.InitiateSettlement(f.Sign(f.CrossDomainOrder(5)), f.Filler, f.Destination, types.FillContext{Timestamp: 90_000})
	require.NoError(t, err)

	dayOne := civil.Date{Year: 1970, Month: time.January, Day: 1}
	listed, err := f.Engine.ListSettlements(types.ListSettlementsInput{InitiatedOn: &dayOne})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, first.OrderHash, listed[0].OrderHash)

	dayTwo := civil.Date{Year: 1970, Month: time.January, Day: 2}
	listed, err = f.Engine.ListSettlements(types.ListSettlementsInput{InitiatedOn: &dayTwo})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, second.OrderHash, listed[0].OrderHash)
	assert.Equal(t, dayTwo, listed[0].InitiatedOn())

	// Unfiltered listing returns newest first.
	all, err := f.Engine.ListSettlements(types.ListSettlementsInput{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.OrderHash, all[0].OrderHash)
	assert.Equal(t, first.OrderHash, all[1].OrderHash)
}
