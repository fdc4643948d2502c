package reactor

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/driftswap/engine-go/core/logging"
	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

// maxFeeBps caps protocol fees at one percent.
const maxFeeBps = 100

var (
	bpsDenominator = apd.New(10_000, 0)

	feeContext = func() *apd.Context {
		c := apd.BaseContext.WithPrecision(80)
		c.Rounding = apd.RoundDown
		return c
	}()
)

// checkFeeOutputs rejects duplicate (token, recipient) pairs within one
// order's fee set.
func checkFeeOutputs(outs []types.OutputToken) error {
	seen := make(map[string]struct{}, len(outs))
	for _, o := range outs {
		key := o.Token.Address() + "|" + o.Recipient.Address()
		if _, dup := seen[key]; dup {
			return errors.Wrapf(ErrDuplicateFeeOutput, "token %s, recipient %s", o.Token.Address(), o.Recipient.Address())
		}
		seen[key] = struct{}{}
	}
	return nil
}

// BpsFeeController charges a flat fee, expressed in basis points of an
// order's output notional, paid per token to a single fee recipient. Fees
// round down to whole units.
type BpsFeeController struct {
	recipient util.EthereumAddress
	bps       *apd.Decimal
	logger    *zap.Logger
}

// NewBpsFeeController parses bps as a decimal string, so fractional basis
// points like "2.5" are representable.
func NewBpsFeeController(recipient util.EthereumAddress, bps string) (*BpsFeeController, error) {
	if recipient.IsZero() {
		return nil, errors.New("fee recipient is required")
	}
	d, _, err := apd.NewFromString(bps)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid fee bps %q", bps)
	}
	if d.Negative {
		return nil, errors.Errorf("fee bps %q must be non-negative", bps)
	}
	if d.Cmp(apd.New(maxFeeBps, 0)) > 0 {
		return nil, errors.Errorf("fee bps %q exceeds the maximum %d", bps, maxFeeBps)
	}
	return &BpsFeeController{
		recipient: recipient,
		bps:       d,
		logger:    logging.Logger,
	}, nil
}

var _ types.FeeController = (*BpsFeeController)(nil)

// FeeOutputs computes one fee output per distinct output token, in first-seen
// token order. Tokens whose fee rounds to zero are omitted.
func (f *BpsFeeController) FeeOutputs(resolved *types.ResolvedOrder) []types.OutputToken {
	if f.bps.IsZero() {
		return nil
	}

	var order []util.EthereumAddress
	sums := make(map[string]*big.Int)
	for i := range resolved.Outputs {
		out := &resolved.Outputs[i]
		key := out.Token.Address()
		if sum, ok := sums[key]; ok {
			sum.Add(sum, out.Amount)
			continue
		}
		sums[key] = new(big.Int).Set(out.Amount)
		order = append(order, out.Token)
	}

	fees := make([]types.OutputToken, 0, len(order))
	for _, token := range order {
		fee, err := f.feeFor(sums[token.Address()])
		if err != nil {
			f.logger.Error("fee computation failed, charging no fee",
				zap.String("order_hash", resolved.Hash.Hex()),
				zap.Error(err))
			return nil
		}
		if fee.Sign() == 0 {
			continue
		}
		fees = append(fees, types.OutputToken{
			Token:     token,
			Amount:    fee,
			Recipient: f.recipient,
		})
	}
	return fees
}

// feeFor returns floor(amount * bps / 10000).
func (f *BpsFeeController) feeFor(amount *big.Int) (*big.Int, error) {
	var amt apd.Decimal
	amt.Coeff.SetMathBigInt(amount)

	product := new(apd.Decimal)
	if _, err := feeContext.Mul(product, &amt, f.bps); err != nil {
		return nil, errors.Wrap(err, "multiply by bps")
	}
	if _, err := feeContext.Quo(product, product, bpsDenominator); err != nil {
		return nil, errors.Wrap(err, "divide by bps denominator")
	}
	if _, err := feeContext.Quantize(product, product, 0); err != nil {
		return nil, errors.Wrap(err, "round down to whole units")
	}
	return product.Coeff.MathBigInt(), nil
}
