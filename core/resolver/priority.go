package resolver

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/decay"
	"github.com/driftswap/engine-go/core/types"
)

// resolvePriority evaluates a priority-fee-scaled order. The only cosigned
// override for this variant is an earlier auction start block; amounts move
// with the filling transaction's effective priority fee alone.
func resolvePriority(o *types.PriorityOrder, orderHash common.Hash, fctx types.FillContext) (*types.ResolvedOrder, error) {
	if o.Input.Scales() && anyPriorityOutputScales(o.Outputs) {
		return nil, errors.WithStack(ErrInputAndOutputDecay)
	}

	if err := verifyCosignature(o.Cosigner, orderHash, o.CosignerData); err != nil {
		return nil, err
	}

	startBlock := o.AuctionStartBlock
	if cd := o.CosignerData; cd != nil && cd.TargetBound > 0 {
		if target := uint64(cd.TargetBound); target < startBlock {
			startBlock = target
		}
	}
	if fctx.BlockNumber < startBlock {
		return nil, errors.Wrapf(ErrOrderNotFillable, "auction opens at block %d, current block %d", startBlock, fctx.BlockNumber)
	}

	fee := fctx.EffectivePriorityFee(o.BaselinePriorityFee)

	inputAmount := decay.ScaleInput(o.Input.Amount, decay.EvaluatePriorityCurve(o.Input.ScalingCurve, fee))

	outputs := make([]types.OutputToken, len(o.Outputs))
	for i := range o.Outputs {
		out := &o.Outputs[i]
		outputs[i] = types.OutputToken{
			Token:     out.Token,
			Amount:    decay.ScaleOutput(out.Amount, decay.EvaluatePriorityCurve(out.ScalingCurve, fee)),
			Recipient: out.Recipient,
			ChainID:   out.ChainID,
		}
	}

	return &types.ResolvedOrder{
		Info: o.Info,
		Input: types.InputToken{
			Token:     o.Input.Token,
			Amount:    inputAmount,
			MaxAmount: new(big.Int).Set(o.Input.MaxAmount),
		},
		Outputs: outputs,
	}, nil
}

func anyPriorityOutputScales(outputs []types.PriorityOutput) bool {
	for i := range outputs {
		if outputs[i].Scales() {
			return true
		}
	}
	return false
}
