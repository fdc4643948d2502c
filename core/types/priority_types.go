package types

import (
	"fmt"
	"math/big"

	"github.com/driftswap/engine-go/core/util"
)

// MpsNeutral is the milli-basis-point denominator: a multiplier of 1e7 mps
// leaves an amount unchanged.
const MpsNeutral uint64 = 1e7

// PriorityCurvePoint is one breakpoint of a priority-fee scaling curve.
// Evaluation picks the highest breakpoint at or below the effective fee and
// interpolates toward the next one; the curve implicitly starts at
// (0, MpsNeutral) and holds its last multiplier above the final breakpoint.
type PriorityCurvePoint struct {
	FeeThreshold  *big.Int // effective priority fee, wei per gas
	MultiplierMps uint64   // amount multiplier in milli-basis-points
}

func validatePriorityCurve(curve []PriorityCurvePoint, side string, inputSide bool) error {
	var prev *big.Int
	for i, p := range curve {
		if p.FeeThreshold == nil || p.FeeThreshold.Sign() <= 0 {
			return fmt.Errorf("%s scaling curve point %d: fee threshold must be positive", side, i)
		}
		if prev != nil && p.FeeThreshold.Cmp(prev) <= 0 {
			return fmt.Errorf("%s scaling curve point %d: fee thresholds must be strictly increasing", side, i)
		}
		// Scaling may only improve the maker's terms as the fee rises:
		// inputs shrink, outputs grow.
		if inputSide && p.MultiplierMps > MpsNeutral {
			return fmt.Errorf("%s scaling curve point %d: input multiplier cannot exceed neutral", side, i)
		}
		if !inputSide && p.MultiplierMps < MpsNeutral {
			return fmt.Errorf("%s scaling curve point %d: output multiplier cannot fall below neutral", side, i)
		}
		prev = p.FeeThreshold
	}
	return nil
}

// PriorityInput is an input whose amount scales down as the filler's
// priority fee rises. An empty curve means the input is fixed.
type PriorityInput struct {
	Token        util.EthereumAddress
	Amount       *big.Int
	MaxAmount    *big.Int
	ScalingCurve []PriorityCurvePoint
}

func (i *PriorityInput) Scales() bool {
	return len(i.ScalingCurve) > 0
}

func (i *PriorityInput) Validate() error {
	if i.Token.IsZero() {
		return fmt.Errorf("input token is required")
	}
	if i.Amount == nil || i.Amount.Sign() < 0 {
		return fmt.Errorf("input amount must be non-negative")
	}
	if i.MaxAmount == nil || i.MaxAmount.Cmp(i.Amount) < 0 {
		return fmt.Errorf("input max amount must be at least the input amount")
	}
	return validatePriorityCurve(i.ScalingCurve, "input", true)
}

// PriorityOutput is an output leg whose amount scales up with the priority fee.
type PriorityOutput struct {
	Token        util.EthereumAddress
	Amount       *big.Int
	Recipient    util.EthereumAddress
	ChainID      uint64
	ScalingCurve []PriorityCurvePoint
}

func (o *PriorityOutput) Scales() bool {
	return len(o.ScalingCurve) > 0
}

func (o *PriorityOutput) Validate() error {
	if o.Token.IsZero() {
		return fmt.Errorf("output token is required")
	}
	if o.Amount == nil || o.Amount.Sign() < 0 {
		return fmt.Errorf("output amount must be non-negative")
	}
	if o.Recipient.IsZero() {
		return fmt.Errorf("output recipient is required")
	}
	return validatePriorityCurve(o.ScalingCurve, "output", false)
}

// PriorityOrder scales amounts with the priority fee the filler pays above a
// baseline, opening at AuctionStartBlock. A cosigner may open the auction
// earlier by signing a target block; amounts themselves are not overridable
// for this variant.
type PriorityOrder struct {
	Info                OrderInfo
	AuctionStartBlock   uint64
	BaselinePriorityFee *big.Int
	Input               PriorityInput
	Outputs             []PriorityOutput

	Cosigner     util.EthereumAddress
	CosignerData *CosignerData
}

func (o *PriorityOrder) Kind() OrderType {
	return OrderTypePriority
}

func (o *PriorityOrder) OrderInfo() OrderInfo {
	return o.Info
}

func (o *PriorityOrder) Validate() error {
	if err := o.Info.Validate(); err != nil {
		return fmt.Errorf("order info: %w", err)
	}
	if o.AuctionStartBlock == 0 {
		return fmt.Errorf("auction start block is required")
	}
	if o.BaselinePriorityFee == nil || o.BaselinePriorityFee.Sign() < 0 {
		return fmt.Errorf("baseline priority fee must be non-negative")
	}
	if err := o.Input.Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if len(o.Outputs) == 0 {
		return fmt.Errorf("at least one output is required")
	}
	for i := range o.Outputs {
		if err := o.Outputs[i].Validate(); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	if o.Cosigner.IsZero() && o.CosignerData != nil {
		return fmt.Errorf("cosigner data supplied without a declared cosigner")
	}
	if o.CosignerData != nil {
		if err := o.CosignerData.Validate(len(o.Outputs)); err != nil {
			return fmt.Errorf("cosigner data: %w", err)
		}
		if o.CosignerData.InputOverride != nil || len(o.CosignerData.OutputOverrides) > 0 {
			return fmt.Errorf("priority orders only accept a target-block override")
		}
	}
	return nil
}
