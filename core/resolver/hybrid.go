package resolver

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/decay"
	"github.com/driftswap/engine-go/core/types"
)

// resolveHybrid evaluates a block-bound curve auction with priority scaling
// layered on top. The priority multiplier applies to whichever side decays,
// or to the outputs when neither does.
func resolveHybrid(o *types.HybridOrder, orderHash common.Hash, fctx types.FillContext) (*types.ResolvedOrder, error) {
	if o.Input.Decays() && anyHybridOutputDecays(o.Outputs) {
		return nil, errors.WithStack(ErrInputAndOutputDecay)
	}

	if err := verifyCosignature(o.Cosigner, orderHash, o.CosignerData); err != nil {
		return nil, err
	}

	decayStart := o.DecayStartBlock
	inputStart := o.Input.StartAmount
	outputStarts := make([]*big.Int, len(o.Outputs))
	for i := range o.Outputs {
		outputStarts[i] = o.Outputs[i].StartAmount
	}

	if cd := o.CosignerData; cd != nil {
		if cd.TargetBound > 0 {
			if target := uint64(cd.TargetBound); target < decayStart {
				decayStart = target
			}
		}
		if cd.InputOverride != nil && cd.InputOverride.Sign() != 0 {
			if cd.InputOverride.Cmp(o.Input.SignedMax()) > 0 {
				return nil, errors.Wrapf(ErrInvalidInputOverride, "override %s, signed max %s", cd.InputOverride, o.Input.SignedMax())
			}
			inputStart = cd.InputOverride
		}
		for i, ov := range cd.OutputOverrides {
			if ov == nil || ov.Sign() == 0 {
				continue
			}
			if ov.Cmp(o.Outputs[i].SignedMin()) < 0 {
				return nil, errors.Wrapf(ErrInvalidOutputOverride, "output %d override %s, signed min %s", i, ov, o.Outputs[i].SignedMin())
			}
			outputStarts[i] = ov
		}
	}

	fee := fctx.EffectivePriorityFee(o.BaselinePriorityFee)
	multiplier := decay.EvaluatePriorityCurve(o.PriorityCurve, fee)
	scaleInput := o.PriorityTargetsInput()

	inputAmount := decay.Curve(inputStart, o.Input.Curve, decayStart, fctx.BlockNumber)
	if scaleInput {
		inputAmount = decay.ScaleInput(inputAmount, multiplier)
	}

	outputs := make([]types.OutputToken, len(o.Outputs))
	for i := range o.Outputs {
		out := &o.Outputs[i]
		amount := decay.Curve(outputStarts[i], out.Curve, decayStart, fctx.BlockNumber)
		if !scaleInput {
			amount = decay.ScaleOutput(amount, multiplier)
		}
		outputs[i] = types.OutputToken{
			Token:     out.Token,
			Amount:    amount,
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

func anyHybridOutputDecays(outputs []types.HybridOutput) bool {
	for i := range outputs {
		if outputs[i].Decays() {
			return true
		}
	}
	return false
}
