package integration

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/driftswap/engine-go/core/codec"
	"github.com/driftswap/engine-go/core/cosign"
	"github.com/driftswap/engine-go/core/engine"
	"github.com/driftswap/engine-go/core/settlement"
	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

// Settlement timing shared by every fixture engine.
const (
	fixtureReactor = "0x00000000000000000000000000000000000000d1"

	fillPeriod       = 100
	optimisticPeriod = 200
	challengePeriod  = 300

	collateralAmount = 500
	bondAmount       = 50
)

// EngineFixture is an in-process engine wired the way a deployment would be:
// SQLite persistence, buffered events, funded participants. Nothing external
// is required; the whole stack runs inside the test process.
type EngineFixture struct {
	t      *testing.T
	Engine *engine.Engine
	Sink   *types.MemorySink

	MakerKey    *ecdsa.PrivateKey
	CosignerKey *ecdsa.PrivateKey

	Maker       util.EthereumAddress
	Cosigner    util.EthereumAddress
	Filler      util.EthereumAddress
	Destination util.EthereumAddress
	Challenger  util.EthereumAddress
	Oracle      util.EthereumAddress

	TokenIn   util.EthereumAddress
	TokenOut  util.EthereumAddress
	BondToken util.EthereumAddress
}

// FixtureOption tweaks the engine under construction.
type FixtureOption = engine.Option

// NewEngineFixture builds a funded engine backed by an in-memory SQLite
// database. Close runs automatically at test cleanup.
func NewEngineFixture(t *testing.T, options ...FixtureOption) *EngineFixture {
	t.Helper()

	makerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	cosignerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &EngineFixture{
		t:           t,
		Sink:        types.NewMemorySink(),
		MakerKey:    makerKey,
		CosignerKey: cosignerKey,
		Maker:       util.NewEthereumAddress(crypto.PubkeyToAddress(makerKey.PublicKey)),
		Cosigner:    util.NewEthereumAddress(crypto.PubkeyToAddress(cosignerKey.PublicKey)),
		Filler:      fixtureAddr(t, "0x00000000000000000000000000000000000000f1"),
		Destination: fixtureAddr(t, "0x00000000000000000000000000000000000000f2"),
		Challenger:  fixtureAddr(t, "0x00000000000000000000000000000000000000c1"),
		Oracle:      fixtureAddr(t, "0x000000000000000000000000000000000000000c"),
		TokenIn:     fixtureAddr(t, "0x0000000000000000000000000000000000000aa1"),
		TokenOut:    fixtureAddr(t, "0x0000000000000000000000000000000000000bb2"),
		BondToken:   fixtureAddr(t, "0x00000000000000000000000000000000000c0111"),
	}

	store, err := settlement.OpenSQLiteStore(":memory:")
	require.NoError(t, err, "open sqlite settlement store")

	domain := codec.Domain{Name: "DriftSwap", Version: "1", ChainID: 1, Reactor: fixtureReactor}
	params := types.SettlementParams{
		FillPeriod:          fillPeriod,
		OptimisticPeriod:    optimisticPeriod,
		ChallengePeriod:     challengePeriod,
		CollateralToken:     f.BondToken,
		CollateralAmount:    big.NewInt(collateralAmount),
		ChallengeBondAmount: big.NewInt(bondAmount),
		Oracle:              f.Oracle,
	}

	options = append([]engine.Option{
		engine.WithStore(store),
		engine.WithEventSink(f.Sink),
	}, options...)
	f.Engine, err = engine.New(domain, params, options...)
	require.NoError(t, err, "construct engine")
	t.Cleanup(func() { require.NoError(t, f.Engine.Close()) })

	ledger := f.Engine.Ledger()
	ledger.Mint(f.TokenIn, f.Maker, big.NewInt(1_000_000))
	ledger.Mint(f.TokenOut, f.Filler, big.NewInt(1_000_000))
	ledger.Mint(f.BondToken, f.Filler, big.NewInt(10_000))
	ledger.Mint(f.BondToken, f.Challenger, big.NewInt(10_000))
	return f
}

// Sign wraps an order in its signed envelope using the maker key.
func (f *EngineFixture) Sign(order types.Order) types.SignedOrder {
	f.t.Helper()
	payload, err := codec.EncodeOrder(order)
	require.NoError(f.t, err)
	hash, err := codec.HashOrder(order)
	require.NoError(f.t, err)
	sig, err := cosign.Sign(f.MakerKey, codec.SigningDigest(f.Engine.Separator(), hash))
	require.NoError(f.t, err)
	return types.SignedOrder{Kind: order.Kind(), Order: payload, Signature: sig}
}

// CosignData signs cd against the order's hash with the cosigner key and
// installs the signature in place. Call before Sign.
func (f *EngineFixture) CosignData(order types.Order, cd *types.CosignerData) {
	f.t.Helper()
	hash, err := codec.HashOrder(order)
	require.NoError(f.t, err)
	sig, err := cosign.Sign(f.CosignerKey, codec.CosignerDigest(hash, cd))
	require.NoError(f.t, err)
	cd.Signature = sig
}

// Balance reads one holder's balance from the engine ledger.
func (f *EngineFixture) Balance(token, holder util.EthereumAddress) int64 {
	return f.Engine.Ledger().BalanceOf(token, holder).Int64()
}

// EventKinds returns the kinds of every published event, in order.
func (f *EngineFixture) EventKinds() []types.EventKind {
	events := f.Sink.Events()
	kinds := make([]types.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

// CrossDomainOrder is a limit order owed on another domain, the shape the
// settlement path consumes.
func (f *EngineFixture) CrossDomainOrder(nonce int64) *types.LimitOrder {
	return &types.LimitOrder{
		Info: types.OrderInfo{
			Reactor:  f.Engine.Self(),
			Offerer:  f.Maker,
			Nonce:    big.NewInt(nonce),
			Deadline: 1_000_000,
		},
		Input: types.InputToken{
			Token:     f.TokenIn,
			Amount:    big.NewInt(100),
			MaxAmount: big.NewInt(100),
		},
		Outputs: []types.OutputToken{{
			Token:     f.TokenOut,
			Amount:    big.NewInt(200),
			Recipient: f.Maker,
			ChainID:   42161,
		}},
	}
}

func fixtureAddr(t *testing.T, hex string) util.EthereumAddress {
	t.Helper()
	a, err := util.NewEthereumAddressFromString(hex)
	require.NoError(t, err)
	return a
}
