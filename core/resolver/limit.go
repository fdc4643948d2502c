package resolver

import (
	"math/big"

	"github.com/driftswap/engine-go/core/types"
)

// resolveLimit instantiates a limit order. Amounts are fixed, so resolution
// is a deep copy with no context dependence.
func resolveLimit(o *types.LimitOrder) (*types.ResolvedOrder, error) {
	outputs := make([]types.OutputToken, len(o.Outputs))
	for i := range o.Outputs {
		out := &o.Outputs[i]
		outputs[i] = types.OutputToken{
			Token:     out.Token,
			Amount:    new(big.Int).Set(out.Amount),
			Recipient: out.Recipient,
			ChainID:   out.ChainID,
		}
	}

	return &types.ResolvedOrder{
		Info: o.Info,
		Input: types.InputToken{
			Token:     o.Input.Token,
			Amount:    new(big.Int).Set(o.Input.Amount),
			MaxAmount: new(big.Int).Set(o.Input.MaxAmount),
		},
		Outputs: outputs,
	}, nil
}
