package settlement

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftswap/engine-go/core/types"
)

// stores returns every SettlementStore implementation under its display
// name so the contract tests run against all of them.
func stores(t *testing.T) map[string]types.SettlementStore {
	t.Helper()
	sqlite, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]types.SettlementStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func storeRecord(t *testing.T, seed byte, initiatedAt int64) *types.ActiveSettlement {
	t.Helper()
	return &types.ActiveSettlement{
		OrderHash:          common.Hash{seed},
		Status:             types.SettlementStatusPending,
		Offerer:            addr(t, "0xbb00000000000000000000000000000000000001"),
		OriginFiller:       addr(t, "0xff00000000000000000000000000000000000001"),
		DestinationFiller:  addr(t, "0xff00000000000000000000000000000000000002"),
		Oracle:             addr(t, "0x0c00000000000000000000000000000000000001"),
		FillDeadline:       initiatedAt + 100,
		OptimisticDeadline: initiatedAt + 200,
		ChallengeDeadline:  initiatedAt + 300,
		Input: types.InputToken{
			Token:     addr(t, "0x1000000000000000000000000000000000000001"),
			Amount:    big.NewInt(100),
			MaxAmount: big.NewInt(100),
		},
		FillerCollateral: types.Collateral{
			Token:  addr(t, "0x3000000000000000000000000000000000000003"),
			Amount: big.NewInt(500),
		},
		Outputs: []types.OutputToken{{
			Token:     addr(t, "0x2000000000000000000000000000000000000002"),
			Amount:    big.NewInt(200),
			Recipient: addr(t, "0xbb00000000000000000000000000000000000001"),
			ChainID:   2,
		}},
		InitiatedAt: initiatedAt,
	}
}

func TestStorePutGetUpdate(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(common.Hash{0x01})
			assert.ErrorIs(t, err, types.ErrSettlementNotFound)

			record := storeRecord(t, 0x01, 1000)
			require.NoError(t, store.Put(record))

			got, err := store.Get(record.OrderHash)
			require.NoError(t, err)
			assert.Equal(t, record, got)

			err = store.Put(storeRecord(t, 0x01, 2000))
			assert.ErrorIs(t, err, types.ErrSettlementExists)

			record.Status = types.SettlementStatusChallenged
			record.Challenger = addr(t, "0xcc00000000000000000000000000000000000001")
			record.ChallengerCollateral = &types.Collateral{
				Token:  addr(t, "0x3000000000000000000000000000000000000003"),
				Amount: big.NewInt(50),
			}
			require.NoError(t, store.Update(record))

			got, err = store.Get(record.OrderHash)
			require.NoError(t, err)
			assert.Equal(t, types.SettlementStatusChallenged, got.Status)
			assert.True(t, got.Challenged())
			require.NotNil(t, got.ChallengerCollateral)
			assert.Equal(t, int64(50), got.ChallengerCollateral.Amount.Int64())

			err = store.Update(storeRecord(t, 0x02, 1000))
			assert.ErrorIs(t, err, types.ErrSettlementNotFound)
		})
	}
}

func TestStoreGetReturnsDetachedCopies(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			record := storeRecord(t, 0x01, 1000)
			require.NoError(t, store.Put(record))

			// Mutating the caller's record after Put must not leak in.
			record.Input.Amount.SetInt64(999)
			record.Status = types.SettlementStatusSuccess

			got, err := store.Get(common.Hash{0x01})
			require.NoError(t, err)
			assert.Equal(t, int64(100), got.Input.Amount.Int64())
			assert.Equal(t, types.SettlementStatusPending, got.Status)

			// Mutating a fetched record must not leak back either.
			got.Input.Amount.SetInt64(7)
			again, err := store.Get(common.Hash{0x01})
			require.NoError(t, err)
			assert.Equal(t, int64(100), again.Input.Amount.Int64())
		})
	}
}

func TestStoreList(t *testing.T) {
	otherOfferer := "0xbb00000000000000000000000000000000000099"

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// Oldest first so newest-first listings are meaningful.
			first := storeRecord(t, 0x01, 1000)
			second := storeRecord(t, 0x02, 2000)
			second.Status = types.SettlementStatusSuccess
			third := storeRecord(t, 0x03, 200_000) // two days later
			third.Offerer = addr(t, otherOfferer)

			require.NoError(t, store.Put(first))
			require.NoError(t, store.Put(second))
			require.NoError(t, store.Put(third))

			hashesOf := func(records []*types.ActiveSettlement) []common.Hash {
				out := make([]common.Hash, len(records))
				for i, r := range records {
					out[i] = r.OrderHash
				}
				return out
			}

			all, err := store.List(types.ListSettlementsInput{})
			require.NoError(t, err)
			assert.Equal(t, []common.Hash{{0x03}, {0x02}, {0x01}}, hashesOf(all), "newest first")

			pending := types.SettlementStatusPending
			byStatus, err := store.List(types.ListSettlementsInput{Status: &pending})
			require.NoError(t, err)
			assert.Equal(t, []common.Hash{{0x03}, {0x01}}, hashesOf(byStatus))

			offerer := first.Offerer
			byOfferer, err := store.List(types.ListSettlementsInput{Offerer: &offerer})
			require.NoError(t, err)
			assert.Equal(t, []common.Hash{{0x02}, {0x01}}, hashesOf(byOfferer))

			dayThree := civil.Date{Year: 1970, Month: time.January, Day: 3}
			byDate, err := store.List(types.ListSettlementsInput{InitiatedOn: &dayThree})
			require.NoError(t, err)
			assert.Equal(t, []common.Hash{{0x03}}, hashesOf(byDate))

			one := 1
			limited, err := store.List(types.ListSettlementsInput{Limit: &one})
			require.NoError(t, err)
			assert.Equal(t, []common.Hash{{0x03}}, hashesOf(limited))

			paged, err := store.List(types.ListSettlementsInput{Limit: &one, Offset: &one})
			require.NoError(t, err)
			assert.Equal(t, []common.Hash{{0x02}}, hashesOf(paged))

			past := 5
			beyond, err := store.List(types.ListSettlementsInput{Offset: &past})
			require.NoError(t, err)
			assert.Empty(t, beyond)
		})
	}
}

func TestStoreListRejectsBadInput(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			zero := 0
			_, err := store.List(types.ListSettlementsInput{Limit: &zero})
			assert.Error(t, err)

			huge := 1001
			_, err = store.List(types.ListSettlementsInput{Limit: &huge})
			assert.Error(t, err)

			negative := -1
			_, err = store.List(types.ListSettlementsInput{Offset: &negative})
			assert.Error(t, err)

			bogus := types.SettlementStatus("LIMBO")
			_, err = store.List(types.ListSettlementsInput{Status: &bogus})
			assert.Error(t, err)
		})
	}
}
