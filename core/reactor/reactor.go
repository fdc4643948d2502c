// Package reactor is the fill engine: it resolves one or a batch of signed
// orders, enforces the global fill invariants, collects maker inputs, hands
// the batch to the filler's callback once, and distributes outputs. A batch
// either completes in full or leaves no trace.
package reactor

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/driftswap/engine-go/core/codec"
	"github.com/driftswap/engine-go/core/custody"
	"github.com/driftswap/engine-go/core/logging"
	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

var (
	// ErrInvalidReactor is returned when an order is bound to a different
	// reactor identity. Signatures cannot replay across deployments.
	ErrInvalidReactor = errors.New("order is bound to a different reactor")

	// ErrDeadlinePassed is returned when an order's deadline is behind the
	// fill context's clock.
	ErrDeadlinePassed = errors.New("order deadline has passed")

	// ErrValidationFailed is returned when an order's validation hook
	// rejects the fill. It fails the whole batch.
	ErrValidationFailed = errors.New("order validation rejected the fill")

	// ErrDuplicateFeeOutput is returned when the fee controller emits two
	// outputs with the same (token, recipient) pair.
	ErrDuplicateFeeOutput = errors.New("duplicate fee output")
)

// Config wires a Reactor's collaborators. Self, Resolver, Collector, and
// Ledger are required; the rest default to no-ops.
type Config struct {
	Self      util.EthereumAddress // reactor identity orders must bind to
	Separator common.Hash          // signing domain separator for collect digests
	Resolver  types.IResolver
	Collector types.Collector
	Ledger    *custody.Ledger

	Fees       types.FeeController
	HookRunner types.HookRunner
	Sink       types.EventSink
	Logger     *zap.Logger
}

// Reactor executes fills. Safe for sequential use; the engine serializes
// callers.
type Reactor struct {
	self       util.EthereumAddress
	separator  common.Hash
	resolver   types.IResolver
	collector  types.Collector
	ledger     *custody.Ledger
	fees       types.FeeController
	hooks      map[string]types.ValidationHook
	hookRunner types.HookRunner
	sink       types.EventSink
	logger     *zap.Logger
}

func NewReactor(cfg Config) (*Reactor, error) {
	if cfg.Self.IsZero() {
		return nil, errors.New("reactor identity is required")
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

	sink := cfg.Sink
	if sink == nil {
		sink = types.NopSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Logger
	}

	return &Reactor{
		self:       cfg.Self,
		separator:  cfg.Separator,
		resolver:   cfg.Resolver,
		collector:  cfg.Collector,
		ledger:     cfg.Ledger,
		fees:       cfg.Fees,
		hooks:      make(map[string]types.ValidationHook),
		hookRunner: cfg.HookRunner,
		sink:       sink,
		logger:     logger,
	}, nil
}

// RegisterValidationHook installs the hook orders reach through the given
// validation contract identity.
func (r *Reactor) RegisterValidationHook(contract util.EthereumAddress, hook types.ValidationHook) {
	r.hooks[contract.Address()] = hook
}

// Execute fills a single order.
func (r *Reactor) Execute(signed types.SignedOrder, filler util.EthereumAddress, fillerData []byte, callback types.FillCallback, fctx types.FillContext) error {
	return r.ExecuteBatch([]types.SignedOrder{signed}, filler, fillerData, callback, fctx)
}

// ExecuteBatch fills a batch of orders atomically. The filler's callback runs
// exactly once, between input collection and output distribution; any failure
// anywhere unwinds every transfer already made for the batch.
func (r *Reactor) ExecuteBatch(signed []types.SignedOrder, filler util.EthereumAddress, fillerData []byte, callback types.FillCallback, fctx types.FillContext) error {
	if len(signed) == 0 {
		return errors.New("batch is empty")
	}
	if filler.IsZero() {
		return errors.New("filler is required")
	}

	resolved := make([]*types.ResolvedOrder, len(signed))
	for i, s := range signed {
		ro, err := r.resolver.Resolve(s, fctx)
		if err != nil {
			return errors.Wrapf(err, "resolve order %d", i)
		}
		resolved[i] = ro
	}

	for i, ro := range resolved {
		if err := r.checkOrder(ro, filler, fctx); err != nil {
			return errors.Wrapf(err, "order %d", i)
		}
	}

	// Fee outputs are computed, not signed: the maker's signature covers
	// only the base outputs, so the fee set is validated before appending.
	if r.fees != nil {
		for i, ro := range resolved {
			feeOuts := r.fees.FeeOutputs(ro)
			if len(feeOuts) == 0 {
				continue
			}
			if err := checkFeeOutputs(feeOuts); err != nil {
				return errors.Wrapf(err, "order %d", i)
			}
			ro.Outputs = append(ro.Outputs, feeOuts...)
		}
	}

	txn := r.ledger.Begin()
	committed := false
	defer func() {
		if !committed {
			_ = txn.Rollback()
		}
	}()

	if r.hookRunner != nil {
		for i, ro := range resolved {
			if ro.Info.PreHook.IsZero() {
				continue
			}
			if err := r.hookRunner.RunHook(ro.Info.PreHook, ro.Info.PreHookData, ro); err != nil {
				return errors.Wrapf(err, "pre-fill hook for order %d", i)
			}
		}
	}

	for i, ro := range resolved {
		req := types.CollectRequest{
			Owner:    ro.Info.Offerer,
			Spender:  filler,
			Token:    ro.Input.Token,
			Amount:   ro.Input.Amount,
			Nonce:    ro.Info.Nonce,
			Deadline: ro.Info.Deadline,
			Digest:   codec.SigningDigest(r.separator, ro.Hash),
			Sig:      ro.Signature,
		}
		if err := r.collector.Collect(txn, req, fctx.Timestamp); err != nil {
			return errors.Wrapf(err, "collect input for order %d", i)
		}
	}

	if callback != nil {
		if err := callback.OnFill(resolved, fillerData); err != nil {
			return errors.Wrap(err, "fill callback")
		}
	}

	for i, ro := range resolved {
		for j := range ro.Outputs {
			out := &ro.Outputs[j]
			if err := txn.Transfer(out.Token, filler, out.Recipient, out.Amount); err != nil {
				return errors.Wrapf(err, "distribute output %d of order %d", j, i)
			}
		}
	}

	if r.hookRunner != nil {
		for i, ro := range resolved {
			if ro.Info.PostHook.IsZero() {
				continue
			}
			if err := r.hookRunner.RunHook(ro.Info.PostHook, ro.Info.PostHookData, ro); err != nil {
				return errors.Wrapf(err, "post-fill hook for order %d", i)
			}
		}
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	committed = true

	for _, ro := range resolved {
		r.sink.Publish(types.NewEnvelope(types.EventKindFill, fctx.Timestamp, types.FillEvent{
			OrderHash: ro.Hash,
			Filler:    filler,
			Offerer:   ro.Info.Offerer,
			Nonce:     ro.Info.Nonce,
		}))
	}

	r.logger.Info("batch filled",
		zap.Int("orders", len(resolved)),
		zap.String("filler", filler.Address()))
	return nil
}

// checkOrder enforces the per-order fill invariants: reactor identity,
// deadline, and the maker's validation hook.
func (r *Reactor) checkOrder(ro *types.ResolvedOrder, filler util.EthereumAddress, fctx types.FillContext) error {
	if ro.Info.Reactor.Common() != r.self.Common() {
		return errors.Wrapf(ErrInvalidReactor, "bound to %s, this reactor is %s", ro.Info.Reactor.Address(), r.self.Address())
	}
	if ro.Info.Deadline < fctx.Timestamp {
		return errors.Wrapf(ErrDeadlinePassed, "deadline %d, now %d", ro.Info.Deadline, fctx.Timestamp)
	}
	if !ro.Info.ValidationContract.IsZero() {
		hook, ok := r.hooks[ro.Info.ValidationContract.Address()]
		if !ok {
			return errors.Wrapf(ErrValidationFailed, "no validation hook registered at %s", ro.Info.ValidationContract.Address())
		}
		if err := hook.Validate(filler, ro, ro.Info.ValidationData, fctx); err != nil {
			return errors.Wrap(ErrValidationFailed, err.Error())
		}
	}
	return nil
}
