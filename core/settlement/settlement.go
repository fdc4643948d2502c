// Package settlement runs the cross-domain escrow state machine. A filler
// escrows a maker's input plus its own collateral at initiate, then either
// proves delivery through the settlement oracle, waits out the optimistic
// window, or loses the escrow to cancellation after a challenge it cannot
// answer. Every transition checks its preconditions before any fund moves,
// and funds move inside a custody transaction so a failed transition leaves
// no trace.
package settlement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/driftswap/engine-go/core/codec"
	"github.com/driftswap/engine-go/core/custody"
	"github.com/driftswap/engine-go/core/logging"
	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

// ═══════════════════════════════════════════════════════════════
// ERRORS
// ═══════════════════════════════════════════════════════════════

var (
	// ErrInitiateDeadlinePassed is returned when a settlement is opened
	// past the order's own deadline.
	ErrInitiateDeadlinePassed = errors.New("order deadline has passed")

	// ErrValidationFailed is returned when the order's validation hook
	// rejects the initiating filler.
	ErrValidationFailed = errors.New("order validation rejected the settlement")

	// ErrInvalidSettler is returned when an order is bound to a different
	// settler identity.
	ErrInvalidSettler = errors.New("order is bound to a different settler")

	// ErrTooEarlyToFinalize is returned when the optimistic path is taken
	// before the optimistic deadline.
	ErrTooEarlyToFinalize = errors.New("optimistic deadline has not passed")

	// ErrChallengeWindowClosed is returned when a challenge lands after the
	// challenge deadline.
	ErrChallengeWindowClosed = errors.New("challenge window has closed")

	// ErrChallengeWindowOpen is returned when cancellation is attempted
	// while the challenge window is still running.
	ErrChallengeWindowOpen = errors.New("challenge window is still open")

	// ErrNotOracle is returned when finalize is called by anyone but the
	// settlement's designated oracle.
	ErrNotOracle = errors.New("caller is not the settlement oracle")

	// ErrOrderFillExceededDeadline is returned when the attested fill
	// happened after the fill deadline.
	ErrOrderFillExceededDeadline = errors.New("attested fill exceeded the fill deadline")
)

// ═══════════════════════════════════════════════════════════════
// CONSTRUCTION
// ═══════════════════════════════════════════════════════════════

// Config wires a Settler's collaborators. Everything but Sink and Logger is
// required.
type Config struct {
	Self      util.EthereumAddress // escrow identity holding funds between states
	Separator common.Hash          // signing domain separator for collect digests
	Params    types.SettlementParams
	Resolver  types.IResolver
	Collector types.Collector
	Ledger    *custody.Ledger
	Store     types.SettlementStore

	Sink   types.EventSink
	Logger *zap.Logger
}

// Settler owns escrowed funds for the lifetime of the Pending and Challenged
// states and hands them to exactly one party on reaching a terminal state.
type Settler struct {
	self      util.EthereumAddress
	separator common.Hash
	params    types.SettlementParams
	resolver  types.IResolver
	collector types.Collector
	ledger    *custody.Ledger
	store     types.SettlementStore
	hooks     map[string]types.ValidationHook
	sink      types.EventSink
	logger    *zap.Logger
}

func NewSettler(cfg Config) (*Settler, error) {
	if cfg.Self.IsZero() {
		return nil, errors.New("settler identity is required")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, errors.Wrap(err, "settlement params")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if cfg.Collector == nil {
		return nil, errors.New("collector is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}

	sink := cfg.Sink
	if sink == nil {
		sink = types.NopSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Logger
	}

	return &Settler{
		self:      cfg.Self,
		separator: cfg.Separator,
		params:    cfg.Params,
		resolver:  cfg.Resolver,
		collector: cfg.Collector,
		ledger:    cfg.Ledger,
		store:     cfg.Store,
		hooks:     make(map[string]types.ValidationHook),
		sink:      sink,
		logger:    logger,
	}, nil
}

// RegisterValidationHook installs the hook orders reach through the given
// validation contract identity.
func (s *Settler) RegisterValidationHook(contract util.EthereumAddress, hook types.ValidationHook) {
	s.hooks[contract.Address()] = hook
}

// Get returns the settlement record for an order hash.
func (s *Settler) Get(orderHash common.Hash) (*types.ActiveSettlement, error) {
	return s.store.Get(orderHash)
}

// List returns settlement records matching the filter.
func (s *Settler) List(input types.ListSettlementsInput) ([]*types.ActiveSettlement, error) {
	if err := input.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	return s.store.List(input)
}

// ═══════════════════════════════════════════════════════════════
// TRANSITIONS
// ═══════════════════════════════════════════════════════════════

// Initiate resolves the order and escrows the maker's input together with
// the origin filler's collateral, opening a Pending settlement keyed by the
// order hash. The three deadlines are derived from the initiation time.
func (s *Settler) Initiate(signed types.SignedOrder, originFiller, destinationFiller util.EthereumAddress, fctx types.FillContext) (*types.ActiveSettlement, error) {
	if originFiller.IsZero() {
		return nil, errors.New("origin filler is required")
	}
	if destinationFiller.IsZero() {
		return nil, errors.New("destination filler is required")
	}

	resolved, err := s.resolver.Resolve(signed, fctx)
	if err != nil {
		return nil, errors.Wrap(err, "resolve order")
	}
	if resolved.Info.Reactor.Common() != s.self.Common() {
		return nil, errors.Wrapf(ErrInvalidSettler, "bound to %s, this settler is %s", resolved.Info.Reactor.Address(), s.self.Address())
	}
	if fctx.Timestamp > resolved.Info.Deadline {
		return nil, errors.Wrapf(ErrInitiateDeadlinePassed, "deadline %d, now %d", resolved.Info.Deadline, fctx.Timestamp)
	}
	if !resolved.Info.ValidationContract.IsZero() {
		hook, ok := s.hooks[resolved.Info.ValidationContract.Address()]
		if !ok {
			return nil, errors.Wrapf(ErrValidationFailed, "no validation hook registered at %s", resolved.Info.ValidationContract.Address())
		}
		if err := hook.Validate(originFiller, resolved, resolved.Info.ValidationData, fctx); err != nil {
			return nil, errors.Wrap(ErrValidationFailed, err.Error())
		}
	}

	record := &types.ActiveSettlement{
		OrderHash:          resolved.Hash,
		Status:             types.SettlementStatusPending,
		Offerer:            resolved.Info.Offerer,
		OriginFiller:       originFiller,
		DestinationFiller:  destinationFiller,
		Oracle:             s.params.Oracle,
		FillDeadline:       fctx.Timestamp + s.params.FillPeriod,
		OptimisticDeadline: fctx.Timestamp + s.params.OptimisticPeriod,
		ChallengeDeadline:  fctx.Timestamp + s.params.ChallengePeriod,
		Input:              resolved.Input,
		FillerCollateral: types.Collateral{
			Token:  s.params.CollateralToken,
			Amount: new(big.Int).Set(s.params.CollateralAmount),
		},
		Outputs:     resolved.Outputs,
		InitiatedAt: fctx.Timestamp,
	}

	txn := s.ledger.Begin()
	committed := false
	defer func() {
		if !committed {
			_ = txn.Rollback()
		}
	}()

	// Maker input moves under the maker's own signature; the filler's
	// collateral moves on the filler's authority as the caller.
	err = s.collector.Collect(txn, types.CollectRequest{
		Owner:    resolved.Info.Offerer,
		Spender:  s.self,
		Token:    resolved.Input.Token,
		Amount:   resolved.Input.Amount,
		Nonce:    resolved.Info.Nonce,
		Deadline: resolved.Info.Deadline,
		Digest:   codec.SigningDigest(s.separator, resolved.Hash),
		Sig:      resolved.Signature,
	}, fctx.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "escrow maker input")
	}
	if err := txn.Transfer(s.params.CollateralToken, originFiller, s.self, s.params.CollateralAmount); err != nil {
		return nil, errors.Wrap(err, "escrow filler collateral")
	}

	if err := s.store.Put(record); err != nil {
		return nil, errors.Wrap(err, "persist settlement")
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	committed = true

	s.sink.Publish(types.NewEnvelope(types.EventKindInitiateSettlement, fctx.Timestamp, types.InitiateSettlementEvent{
		OrderHash:         record.OrderHash,
		Offerer:           record.Offerer,
		OriginFiller:      originFiller,
		DestinationFiller: destinationFiller,
		FillDeadline:      record.FillDeadline,
	}))
	recipients := make([]util.EthereumAddress, len(record.Outputs))
	for i, out := range record.Outputs {
		recipients[i] = out.Recipient
	}
	s.logger.Info("settlement initiated",
		zap.String("order_hash", record.OrderHash.Hex()),
		zap.String("origin_filler", originFiller.Address()),
		zap.Strings("output_recipients", util.AddressStrings(recipients)),
		zap.Int64("fill_deadline", record.FillDeadline))
	return record, nil
}

// FinalizeOptimistically pays the origin filler once the optimistic deadline
// has passed without a challenge. The common path: no oracle involved.
func (s *Settler) FinalizeOptimistically(orderHash common.Hash, at int64) error {
	record, err := s.store.Get(orderHash)
	if err != nil {
		return err
	}
	next, err := nextStatus(record.Status, TransitionFinalizeOptimistic)
	if err != nil {
		return err
	}
	if at < record.OptimisticDeadline {
		return errors.Wrapf(ErrTooEarlyToFinalize, "optimistic deadline %d, now %d", record.OptimisticDeadline, at)
	}

	err = s.payout(record, next, func(txn *custody.Txn) error {
		if err := txn.Transfer(record.Input.Token, s.self, record.OriginFiller, record.Input.Amount); err != nil {
			return errors.Wrap(err, "release escrowed input")
		}
		if err := txn.Transfer(record.FillerCollateral.Token, s.self, record.OriginFiller, record.FillerCollateral.Amount); err != nil {
			return errors.Wrap(err, "release filler collateral")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.sink.Publish(types.NewEnvelope(types.EventKindSettlementFinalized, at, types.SettlementFinalizedEvent{
		OrderHash:  orderHash,
		Optimistic: true,
	}))
	s.logger.Info("settlement finalized optimistically", zap.String("order_hash", orderHash.Hex()))
	return nil
}

// Challenge posts a bond and freezes the optimistic path until the oracle
// answers or the challenge deadline lapses.
func (s *Settler) Challenge(orderHash common.Hash, challenger util.EthereumAddress, at int64) error {
	if challenger.IsZero() {
		return errors.New("challenger is required")
	}
	record, err := s.store.Get(orderHash)
	if err != nil {
		return err
	}
	next, err := nextStatus(record.Status, TransitionChallenge)
	if err != nil {
		return err
	}
	if at >= record.ChallengeDeadline {
		return errors.Wrapf(ErrChallengeWindowClosed, "challenge deadline %d, now %d", record.ChallengeDeadline, at)
	}

	record.Challenger = challenger
	record.ChallengerCollateral = &types.Collateral{
		Token:  s.params.CollateralToken,
		Amount: new(big.Int).Set(s.params.ChallengeBondAmount),
	}

	err = s.payout(record, next, func(txn *custody.Txn) error {
		return errors.Wrap(
			txn.Transfer(s.params.CollateralToken, challenger, s.self, s.params.ChallengeBondAmount),
			"escrow challenger bond")
	})
	if err != nil {
		return err
	}

	s.sink.Publish(types.NewEnvelope(types.EventKindSettlementChallenged, at, types.SettlementChallengedEvent{
		OrderHash:  orderHash,
		Challenger: challenger,
	}))
	s.logger.Info("settlement challenged",
		zap.String("order_hash", orderHash.Hex()),
		zap.String("challenger", challenger.Address()))
	return nil
}

// Finalize settles on an oracle-attested delivery. A standing challenger
// bond goes to the origin filler as compensation for the false challenge.
func (s *Settler) Finalize(orderHash common.Hash, caller util.EthereumAddress, fillTimestamp, at int64) error {
	record, err := s.store.Get(orderHash)
	if err != nil {
		return err
	}
	if caller.Common() != record.Oracle.Common() {
		return errors.Wrapf(ErrNotOracle, "caller %s, oracle %s", caller.Address(), record.Oracle.Address())
	}
	next, err := nextStatus(record.Status, TransitionFinalize)
	if err != nil {
		return err
	}
	if fillTimestamp > record.FillDeadline {
		return errors.Wrapf(ErrOrderFillExceededDeadline, "filled at %d, deadline %d", fillTimestamp, record.FillDeadline)
	}

	err = s.payout(record, next, func(txn *custody.Txn) error {
		if bond := record.ChallengerCollateral; bond != nil {
			if err := txn.Transfer(bond.Token, s.self, record.OriginFiller, bond.Amount); err != nil {
				return errors.Wrap(err, "forfeit challenger bond")
			}
		}
		if err := txn.Transfer(record.Input.Token, s.self, record.OriginFiller, record.Input.Amount); err != nil {
			return errors.Wrap(err, "release escrowed input")
		}
		if err := txn.Transfer(record.FillerCollateral.Token, s.self, record.OriginFiller, record.FillerCollateral.Amount); err != nil {
			return errors.Wrap(err, "release filler collateral")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.sink.Publish(types.NewEnvelope(types.EventKindSettlementFinalized, at, types.SettlementFinalizedEvent{
		OrderHash:  orderHash,
		Optimistic: false,
	}))
	s.logger.Info("settlement finalized with proof", zap.String("order_hash", orderHash.Hex()))
	return nil
}

// Cancel refunds the maker once the challenge deadline has lapsed without
// oracle finalization. Unchallenged, the filler's collateral comes back;
// challenged, it splits evenly between maker and challenger, the odd unit
// going to the maker, and the challenger's bond is returned.
func (s *Settler) Cancel(orderHash common.Hash, at int64) error {
	record, err := s.store.Get(orderHash)
	if err != nil {
		return err
	}
	next, err := nextStatus(record.Status, TransitionCancel)
	if err != nil {
		return err
	}
	if at < record.ChallengeDeadline {
		return errors.Wrapf(ErrChallengeWindowOpen, "challenge deadline %d, now %d", record.ChallengeDeadline, at)
	}

	challenged := record.Challenged()
	err = s.payout(record, next, func(txn *custody.Txn) error {
		if err := txn.Transfer(record.Input.Token, s.self, record.Offerer, record.Input.Amount); err != nil {
			return errors.Wrap(err, "refund maker input")
		}

		collateral := record.FillerCollateral
		if !challenged {
			return errors.Wrap(
				txn.Transfer(collateral.Token, s.self, record.OriginFiller, collateral.Amount),
				"return filler collateral")
		}

		challengerShare := new(big.Int).Quo(collateral.Amount, big.NewInt(2))
		makerShare := new(big.Int).Sub(collateral.Amount, challengerShare)
		if err := txn.Transfer(collateral.Token, s.self, record.Offerer, makerShare); err != nil {
			return errors.Wrap(err, "maker share of forfeited collateral")
		}
		if err := txn.Transfer(collateral.Token, s.self, record.Challenger, challengerShare); err != nil {
			return errors.Wrap(err, "challenger share of forfeited collateral")
		}
		bond := record.ChallengerCollateral
		return errors.Wrap(
			txn.Transfer(bond.Token, s.self, record.Challenger, bond.Amount),
			"return challenger bond")
	})
	if err != nil {
		return err
	}

	s.sink.Publish(types.NewEnvelope(types.EventKindSettlementCancelled, at, types.SettlementCancelledEvent{
		OrderHash:  orderHash,
		Challenged: challenged,
	}))
	s.logger.Info("settlement cancelled",
		zap.String("order_hash", orderHash.Hex()),
		zap.Bool("challenged", challenged))
	return nil
}

// ═══════════════════════════════════════════════════════════════
// FUND MOVEMENT
// ═══════════════════════════════════════════════════════════════

// payout runs a transition's fund movements and status update as one unit:
// transfers and the store write either both land or both unwind.
func (s *Settler) payout(record *types.ActiveSettlement, next types.SettlementStatus, move func(txn *custody.Txn) error) error {
	txn := s.ledger.Begin()
	committed := false
	defer func() {
		if !committed {
			_ = txn.Rollback()
		}
	}()

	if err := move(txn); err != nil {
		return err
	}

	record.Status = next
	if err := s.store.Update(record); err != nil {
		return errors.Wrap(err, "persist settlement status")
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
