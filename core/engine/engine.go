// Package engine assembles the whole conditional-trade stack behind one
// facade: resolution, atomic fills, custody, the settlement state machine,
// and quoting, wired against a single reactor identity and signing domain.
// One Engine is one deployment.
package engine

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/driftswap/engine-go/core/codec"
	"github.com/driftswap/engine-go/core/custody"
	"github.com/driftswap/engine-go/core/logging"
	"github.com/driftswap/engine-go/core/quoter"
	"github.com/driftswap/engine-go/core/reactor"
	"github.com/driftswap/engine-go/core/resolver"
	"github.com/driftswap/engine-go/core/settlement"
	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

// Engine is the composition root. State-mutating operations are serialized
// internally; reads go straight through.
type Engine struct {
	Domain codec.Domain           `validate:"required"`
	Params types.SettlementParams `validate:"required"`

	mu sync.Mutex

	self      util.EthereumAddress
	separator common.Hash

	ledger    *custody.Ledger
	nonces    *custody.NonceRegistry
	collector types.Collector
	resolver  *resolver.Resolver
	reactor   *reactor.Reactor
	settler   *settlement.Settler
	relay     *settlement.OracleRelay
	quoter    *quoter.Quoter

	store      types.SettlementStore
	sink       types.EventSink
	fees       types.FeeController
	hookRunner types.HookRunner
	logger     *zap.Logger
}

type Option func(*Engine)

// New builds and validates an engine for the given signing domain and
// settlement parameters. The domain's Reactor address becomes the engine's
// own identity; orders bound elsewhere are rejected.
func New(domain codec.Domain, params types.SettlementParams, options ...Option) (*Engine, error) {
	e := &Engine{
		Domain: domain,
		Params: params,
	}
	for _, option := range options {
		option(e)
	}

	if e.logger == nil {
		e.logger = logging.Logger
	}
	if e.sink == nil {
		e.sink = types.NopSink{}
	}
	if e.store == nil {
		e.store = settlement.NewMemoryStore()
	}
	if e.ledger == nil {
		e.ledger = custody.NewLedger()
	}

	if err := e.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}

	self, err := util.NewEthereumAddressFromString(domain.Reactor)
	if err != nil {
		return nil, errors.Wrap(err, "domain reactor address")
	}
	separator, err := domain.Separator()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.self = self
	e.separator = separator

	e.nonces = custody.NewNonceRegistry()
	e.collector = custody.NewPermitLedger(e.nonces)
	e.resolver = resolver.New()

	e.reactor, err = reactor.NewReactor(reactor.Config{
		Self:       self,
		Separator:  separator,
		Resolver:   e.resolver,
		Collector:  e.collector,
		Ledger:     e.ledger,
		Fees:       e.fees,
		HookRunner: e.hookRunner,
		Sink:       e.sink,
		Logger:     e.logger,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	e.settler, err = settlement.NewSettler(settlement.Config{
		Self:      self,
		Separator: separator,
		Params:    params,
		Resolver:  e.resolver,
		Collector: e.collector,
		Ledger:    e.ledger,
		Store:     e.store,
		Sink:      e.sink,
		Logger:    e.logger,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	e.relay, err = settlement.NewOracleRelay(e.settler, params.Oracle, e.logger)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	e.quoter, err = quoter.NewQuoter(e.resolver, e.logger)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return e, nil
}

func (e *Engine) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore swaps the settlement store; the default is in-memory.
func WithStore(store types.SettlementStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithEventSink installs the sink lifecycle events publish to.
func WithEventSink(sink types.EventSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithFeeController enables protocol fee injection on fills.
func WithFeeController(fees types.FeeController) Option {
	return func(e *Engine) {
		e.fees = fees
	}
}

// WithHookRunner enables delegated pre- and post-fill hook execution.
func WithHookRunner(runner types.HookRunner) Option {
	return func(e *Engine) {
		e.hookRunner = runner
	}
}

// WithLedger shares a custody ledger with another component instead of
// creating a fresh one.
func WithLedger(ledger *custody.Ledger) Option {
	return func(e *Engine) {
		e.ledger = ledger
	}
}

// ═══════════════════════════════════════════════════════════════
// FILLS
// ═══════════════════════════════════════════════════════════════

// Execute fills a single order.
func (e *Engine) Execute(signed types.SignedOrder, filler util.EthereumAddress, fillerData []byte, callback types.FillCallback, fctx types.FillContext) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reactor.Execute(signed, filler, fillerData, callback, fctx)
}

// ExecuteBatch fills a batch of orders atomically.
func (e *Engine) ExecuteBatch(signed []types.SignedOrder, filler util.EthereumAddress, fillerData []byte, callback types.FillCallback, fctx types.FillContext) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reactor.ExecuteBatch(signed, filler, fillerData, callback, fctx)
}

// ═══════════════════════════════════════════════════════════════
// SETTLEMENT
// ═══════════════════════════════════════════════════════════════

// InitiateSettlement escrows a cross-domain order for asynchronous delivery.
func (e *Engine) InitiateSettlement(signed types.SignedOrder, originFiller, destinationFiller util.EthereumAddress, fctx types.FillContext) (*types.ActiveSettlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settler.Initiate(signed, originFiller, destinationFiller, fctx)
}

// FinalizeSettlementOptimistically pays the filler out of an unchallenged
// settlement after the optimistic deadline.
func (e *Engine) FinalizeSettlementOptimistically(orderHash common.Hash, at int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settler.FinalizeOptimistically(orderHash, at)
}

// ChallengeSettlement posts a bonded dispute against a pending settlement.
func (e *Engine) ChallengeSettlement(orderHash common.Hash, challenger util.EthereumAddress, at int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settler.Challenge(orderHash, challenger, at)
}

// CancelSettlement unwinds a settlement nobody proved, refunding the maker
// and splitting collateral with the challenger if one stepped up.
func (e *Engine) CancelSettlement(orderHash common.Hash, at int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settler.Cancel(orderHash, at)
}

// LogSettlementFillInfo accepts a destination-side delivery attestation from
// the configured oracle, finalizing the settlement when it covers the order.
func (e *Engine) LogSettlementFillInfo(orderHash common.Hash, filler util.EthereumAddress, outputs []types.OutputToken, fillTimestamp, at int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.relay.LogSettlementFillInfo(orderHash, filler, outputs, fillTimestamp, at)
}

// GetSettlement returns one settlement record by order hash.
func (e *Engine) GetSettlement(orderHash common.Hash) (*types.ActiveSettlement, error) {
	return e.settler.Get(orderHash)
}

// ListSettlements returns settlement records matching the filter, newest
// first.
func (e *Engine) ListSettlements(input types.ListSettlementsInput) ([]*types.ActiveSettlement, error) {
	return e.settler.List(input)
}

// ═══════════════════════════════════════════════════════════════
// QUOTES AND NONCES
// ═══════════════════════════════════════════════════════════════

// Quote prices an order at a hypothetical fill context without executing it.
func (e *Engine) Quote(signed types.SignedOrder, fctx types.FillContext) (*types.ResolvedOrder, *types.QuoteMetadata, error) {
	return e.quoter.Quote(signed, fctx)
}

// QuoteBatch prices a set of orders at one context and aggregates the result.
func (e *Engine) QuoteBatch(signed []types.SignedOrder, fctx types.FillContext) types.QuoteMetadataCollection {
	return e.quoter.QuoteBatch(signed, fctx)
}

// CancelNonce burns a nonce on the maker's behalf so any order carrying it
// can never fill. Burning an already-used nonce fails.
func (e *Engine) CancelNonce(offerer util.EthereumAddress, nonce *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.nonces.Cancel(offerer, nonce); err != nil {
		return err
	}
	e.logger.Info("nonce cancelled",
		zap.String("offerer", offerer.Address()),
		zap.String("nonce", nonce.String()))
	return nil
}

// NonceUsed reports whether the (offerer, nonce) pair has been consumed or
// cancelled.
func (e *Engine) NonceUsed(offerer util.EthereumAddress, nonce *big.Int) bool {
	return e.nonces.Used(offerer, nonce)
}

// RegisterValidationHook installs a maker-selectable fill policy under the
// given validation contract identity, on both the fill and settlement paths.
func (e *Engine) RegisterValidationHook(contract util.EthereumAddress, hook types.ValidationHook) {
	e.reactor.RegisterValidationHook(contract, hook)
	e.settler.RegisterValidationHook(contract, hook)
}

// Ledger exposes the custody ledger for funding and balance inspection.
func (e *Engine) Ledger() *custody.Ledger {
	return e.ledger
}

// Self returns the engine's reactor identity.
func (e *Engine) Self() util.EthereumAddress {
	return e.self
}

// Separator returns the signing domain separator makers sign against.
func (e *Engine) Separator() common.Hash {
	return e.separator
}

// Close releases the settlement store.
func (e *Engine) Close() error {
	return e.store.Close()
}
