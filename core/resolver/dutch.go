package resolver

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/decay"
	"github.com/driftswap/engine-go/core/types"
)

// resolveDutch evaluates a time-decaying order. Structural invariants come
// first, then cosignature verification, then override clamping, then decay
// over the possibly overridden bounds.
func resolveDutch(o *types.DutchOrder, orderHash common.Hash, fctx types.FillContext) (*types.ResolvedOrder, error) {
	if o.DecayEndTime < o.DecayStartTime {
		return nil, errors.Wrapf(ErrEndTimeBeforeStartTime, "start %d, end %d", o.DecayStartTime, o.DecayEndTime)
	}
	if o.Info.Deadline < o.DecayEndTime {
		return nil, errors.Wrapf(ErrDeadlineBeforeEndTime, "deadline %d, decay end %d", o.Info.Deadline, o.DecayEndTime)
	}
	if o.Input.Decays() && anyDutchOutputDecays(o.Outputs) {
		return nil, errors.WithStack(ErrInputAndOutputDecay)
	}

	if err := verifyCosignature(o.Cosigner, orderHash, o.CosignerData); err != nil {
		return nil, err
	}

	decayStart := o.DecayStartTime
	inputStart := o.Input.StartAmount
	outputStarts := make([]*big.Int, len(o.Outputs))
	for i := range o.Outputs {
		outputStarts[i] = o.Outputs[i].StartAmount
	}

	if cd := o.CosignerData; cd != nil {
		// A target earlier than the signed start opens the auction early;
		// anything else is ignored.
		if cd.TargetBound != 0 && cd.TargetBound < decayStart {
			decayStart = cd.TargetBound
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

	inputAmount, err := decay.Linear(inputStart, o.Input.EndAmount, decayStart, o.DecayEndTime, fctx.Timestamp)
	if err != nil {
		return nil, err
	}

	outputs := make([]types.OutputToken, len(o.Outputs))
	for i := range o.Outputs {
		out := &o.Outputs[i]
		amount, err := decay.Linear(outputStarts[i], out.EndAmount, decayStart, o.DecayEndTime, fctx.Timestamp)
		if err != nil {
			return nil, err
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

func anyDutchOutputDecays(outputs []types.DutchOutput) bool {
	for i := range outputs {
		if outputs[i].Decays() {
			return true
		}
	}
	return false
}
