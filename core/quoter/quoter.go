// Package quoter prices signed orders against a hypothetical fill context
// without executing them. Fillers use it to preview resolution, monitors use
// the metadata to watch how far auctions drift from their signed terms.
package quoter

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/driftswap/engine-go/core/codec"
	"github.com/driftswap/engine-go/core/logging"
	"github.com/driftswap/engine-go/core/types"
)

var (
	bpsScale = big.NewInt(10_000)

	priceContext = func() *apd.Context {
		c := apd.BaseContext.WithPrecision(50)
		c.Rounding = apd.RoundHalfEven
		return c
	}()
)

// Quoter resolves orders read-only. Stateless apart from its collaborators
// and safe to share.
type Quoter struct {
	resolver types.IResolver
	logger   *zap.Logger
}

func NewQuoter(resolver types.IResolver, logger *zap.Logger) (*Quoter, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if logger == nil {
		logger = logging.Logger
	}
	return &Quoter{resolver: resolver, logger: logger}, nil
}

// Quote resolves the order at the given context and measures the outcome
// against the signed starting terms. No funds move and nothing persists;
// resolution errors pass through untouched so callers can test sentinels.
func (q *Quoter) Quote(signed types.SignedOrder, fctx types.FillContext) (*types.ResolvedOrder, *types.QuoteMetadata, error) {
	resolved, err := q.resolver.Resolve(signed, fctx)
	if err != nil {
		return nil, nil, err
	}

	// The resolver does not expose the decoded order, so decode again to read
	// the signed starting amounts.
	order, err := codec.DecodeOrder(signed.Kind, signed.Order)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decode order for quote")
	}
	inputStart, outputStart := startingAmounts(order)
	outputResolved := sumOutputs(resolved.Outputs)

	md := &types.QuoteMetadata{
		OrderHash:      resolved.Hash.Hex(),
		Kind:           signed.Kind,
		InputStart:     inputStart,
		InputResolved:  new(big.Int).Set(resolved.Input.Amount),
		OutputStart:    outputStart,
		OutputResolved: outputResolved,
		ImprovementBps: improvementBps(inputStart, resolved.Input.Amount, outputStart, outputResolved),
		Timestamp:      fctx.Timestamp,
		BlockNumber:    fctx.BlockNumber,
	}

	q.logger.Debug("order quoted",
		zap.String("order_hash", md.OrderHash),
		zap.Int64("improvement_bps", md.ImprovementBps))
	return resolved, md, nil
}

// QuoteBatch quotes every order at the same context and aggregates the
// movement. Orders that fail to resolve are logged and skipped; a monitoring
// sweep should not die on one bad order.
func (q *Quoter) QuoteBatch(signed []types.SignedOrder, fctx types.FillContext) types.QuoteMetadataCollection {
	entries := make([]types.QuoteMetadata, 0, len(signed))
	for i, s := range signed {
		_, md, err := q.Quote(s, fctx)
		if err != nil {
			q.logger.Warn("order dropped from batch quote",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		entries = append(entries, *md)
	}
	return types.AggregateQuoteMetadata(entries)
}

// ImpliedPrice returns the resolved output-per-input ratio as a decimal,
// summing output legs. Meaningful as a price when the outputs share one
// token; otherwise it is just the notional ratio.
func ImpliedPrice(resolved *types.ResolvedOrder) (*apd.Decimal, error) {
	if resolved == nil {
		return nil, errors.New("resolved order is required")
	}
	if resolved.Input.Amount == nil || resolved.Input.Amount.Sign() == 0 {
		return nil, errors.New("zero input amount has no implied price")
	}

	var in, out apd.Decimal
	in.Coeff.SetMathBigInt(resolved.Input.Amount)
	out.Coeff.SetMathBigInt(sumOutputs(resolved.Outputs))

	price := new(apd.Decimal)
	if _, err := priceContext.Quo(price, &out, &in); err != nil {
		return nil, errors.Wrap(err, "divide outputs by input")
	}
	return price, nil
}

// startingAmounts reads the signed starting input amount and output sum off
// the original order, before any decay, scaling, or override.
func startingAmounts(order types.Order) (*big.Int, *big.Int) {
	input := new(big.Int)
	outputs := new(big.Int)
	switch o := order.(type) {
	case *types.LimitOrder:
		input.Set(o.Input.Amount)
		for i := range o.Outputs {
			outputs.Add(outputs, o.Outputs[i].Amount)
		}
	case *types.DutchOrder:
		input.Set(o.Input.StartAmount)
		for i := range o.Outputs {
			outputs.Add(outputs, o.Outputs[i].StartAmount)
		}
	case *types.PriorityOrder:
		input.Set(o.Input.Amount)
		for i := range o.Outputs {
			outputs.Add(outputs, o.Outputs[i].Amount)
		}
	case *types.HybridOrder:
		input.Set(o.Input.StartAmount)
		for i := range o.Outputs {
			outputs.Add(outputs, o.Outputs[i].StartAmount)
		}
	}
	return input, outputs
}

func sumOutputs(outputs []types.OutputToken) *big.Int {
	sum := new(big.Int)
	for i := range outputs {
		sum.Add(sum, outputs[i].Amount)
	}
	return sum
}

// improvementBps measures maker-favorable movement from the signed start:
// positive when the input shrank or the outputs grew, negative when decay
// moved terms the filler's way. Both sides are summed, though resolution
// only ever moves one.
func improvementBps(inputStart, inputResolved, outputStart, outputResolved *big.Int) int64 {
	total := new(big.Int)
	if inputStart.Sign() > 0 {
		d := new(big.Int).Sub(inputStart, inputResolved)
		d.Mul(d, bpsScale)
		d.Quo(d, inputStart)
		total.Add(total, d)
	}
	if outputStart.Sign() > 0 {
		d := new(big.Int).Sub(outputResolved, outputStart)
		d.Mul(d, bpsScale)
		d.Quo(d, outputStart)
		total.Add(total, d)
	}
	return total.Int64()
}
