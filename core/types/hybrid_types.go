package types

import (
	"fmt"
	"math/big"

	"github.com/driftswap/engine-go/core/util"
)

// CurvePoint is one breakpoint of a piecewise-linear decay curve. Bounds are
// relative to the order's decay start block; amounts are absolute targets at
// that point. Between points the amount interpolates linearly.
type CurvePoint struct {
	BoundDelta uint64   // blocks after the decay start block
	Amount     *big.Int // amount in force once BoundDelta blocks have elapsed
}

func validateCurve(start *big.Int, curve []CurvePoint, side string) error {
	if len(curve) == 0 {
		return nil
	}
	var prevBound uint64
	prevAmount := start
	direction := 0
	for i, p := range curve {
		if p.BoundDelta == 0 {
			return fmt.Errorf("%s curve point %d: bound delta must be positive", side, i)
		}
		if i > 0 && p.BoundDelta <= prevBound {
			return fmt.Errorf("%s curve point %d: bound deltas must be strictly increasing", side, i)
		}
		if p.Amount == nil || p.Amount.Sign() < 0 {
			return fmt.Errorf("%s curve point %d: amount must be non-negative", side, i)
		}
		// Decay must be monotonic across the whole curve.
		step := p.Amount.Cmp(prevAmount)
		if direction == 0 {
			direction = step
		} else if step != 0 && step != direction {
			return fmt.Errorf("%s curve point %d: curve must be monotonic", side, i)
		}
		prevBound = p.BoundDelta
		prevAmount = p.Amount
	}
	return nil
}

// curveDecays reports whether any point departs from the start amount.
func curveDecays(start *big.Int, curve []CurvePoint) bool {
	for _, p := range curve {
		if p.Amount.Cmp(start) != 0 {
			return true
		}
	}
	return false
}

// HybridInput is an input decaying along a block-bound curve.
type HybridInput struct {
	Token       util.EthereumAddress
	StartAmount *big.Int
	MaxAmount   *big.Int
	Curve       []CurvePoint
}

func (i *HybridInput) Decays() bool {
	return curveDecays(i.StartAmount, i.Curve)
}

// SignedMax returns the largest amount anywhere on the signed curve.
func (i *HybridInput) SignedMax() *big.Int {
	max := i.StartAmount
	for _, p := range i.Curve {
		if p.Amount.Cmp(max) > 0 {
			max = p.Amount
		}
	}
	return max
}

func (i *HybridInput) Validate() error {
	if i.Token.IsZero() {
		return fmt.Errorf("input token is required")
	}
	if i.StartAmount == nil || i.StartAmount.Sign() < 0 {
		return fmt.Errorf("input start amount must be non-negative")
	}
	if err := validateCurve(i.StartAmount, i.Curve, "input"); err != nil {
		return err
	}
	if i.MaxAmount == nil || i.MaxAmount.Cmp(i.SignedMax()) < 0 {
		return fmt.Errorf("input max amount must cover the curve maximum")
	}
	return nil
}

// HybridOutput is an output leg decaying along a block-bound curve.
type HybridOutput struct {
	Token       util.EthereumAddress
	StartAmount *big.Int
	Recipient   util.EthereumAddress
	ChainID     uint64
	Curve       []CurvePoint
}

func (o *HybridOutput) Decays() bool {
	return curveDecays(o.StartAmount, o.Curve)
}

// SignedMin returns the smallest amount anywhere on the signed curve.
func (o *HybridOutput) SignedMin() *big.Int {
	min := o.StartAmount
	for _, p := range o.Curve {
		if p.Amount.Cmp(min) < 0 {
			min = p.Amount
		}
	}
	return min
}

func (o *HybridOutput) Validate() error {
	if o.Token.IsZero() {
		return fmt.Errorf("output token is required")
	}
	if o.StartAmount == nil || o.StartAmount.Sign() < 0 {
		return fmt.Errorf("output start amount must be non-negative")
	}
	if o.Recipient.IsZero() {
		return fmt.Errorf("output recipient is required")
	}
	return validateCurve(o.StartAmount, o.Curve, "output")
}

// HybridOrder combines block-bound curve decay with priority-fee scaling:
// the curve shapes the auction over blocks, and the priority fee of the
// winning transaction scales the decayed amount on top. The priority curve
// applies to whichever side decays; with no decaying side it applies to the
// outputs. A cosigner may move the decay start block earlier and override
// amounts like a dutch cosigner.
type HybridOrder struct {
	Info                OrderInfo
	DecayStartBlock     uint64
	BaselinePriorityFee *big.Int
	PriorityCurve       []PriorityCurvePoint
	Input               HybridInput
	Outputs             []HybridOutput

	Cosigner     util.EthereumAddress
	CosignerData *CosignerData
}

func (o *HybridOrder) Kind() OrderType {
	return OrderTypeHybrid
}

func (o *HybridOrder) OrderInfo() OrderInfo {
	return o.Info
}

func (o *HybridOrder) Validate() error {
	if err := o.Info.Validate(); err != nil {
		return fmt.Errorf("order info: %w", err)
	}
	if o.DecayStartBlock == 0 {
		return fmt.Errorf("decay start block is required")
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
	if err := validatePriorityCurve(o.PriorityCurve, "priority", o.PriorityTargetsInput()); err != nil {
		return err
	}
	if o.Cosigner.IsZero() && o.CosignerData != nil {
		return fmt.Errorf("cosigner data supplied without a declared cosigner")
	}
	if o.CosignerData != nil {
		if err := o.CosignerData.Validate(len(o.Outputs)); err != nil {
			return fmt.Errorf("cosigner data: %w", err)
		}
	}
	return nil
}

// PriorityTargetsInput reports whether priority scaling applies to the input
// side. It does exactly when the input is the decaying side.
func (o *HybridOrder) PriorityTargetsInput() bool {
	return o.Input.Decays()
}
