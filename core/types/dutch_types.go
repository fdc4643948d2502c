package types

import (
	"fmt"
	"math/big"

	"github.com/driftswap/engine-go/core/util"
)

// DutchInput is an input whose amount interpolates from StartAmount at the
// decay start time to EndAmount at the decay end time.
type DutchInput struct {
	Token       util.EthereumAddress
	StartAmount *big.Int
	EndAmount   *big.Int
	MaxAmount   *big.Int // signature authorization cap
}

// Decays reports whether the amounts actually move.
func (i *DutchInput) Decays() bool {
	return i.StartAmount.Cmp(i.EndAmount) != 0
}

// SignedMax returns the larger of the two signed bounds.
func (i *DutchInput) SignedMax() *big.Int {
	if i.StartAmount.Cmp(i.EndAmount) >= 0 {
		return i.StartAmount
	}
	return i.EndAmount
}

func (i *DutchInput) Validate() error {
	if i.Token.IsZero() {
		return fmt.Errorf("input token is required")
	}
	if i.StartAmount == nil || i.StartAmount.Sign() < 0 {
		return fmt.Errorf("input start amount must be non-negative")
	}
	if i.EndAmount == nil || i.EndAmount.Sign() < 0 {
		return fmt.Errorf("input end amount must be non-negative")
	}
	if i.MaxAmount == nil || i.MaxAmount.Cmp(i.SignedMax()) < 0 {
		return fmt.Errorf("input max amount must cover the larger decay bound")
	}
	return nil
}

// DutchOutput is an output leg with its own decay bounds.
type DutchOutput struct {
	Token       util.EthereumAddress
	StartAmount *big.Int
	EndAmount   *big.Int
	Recipient   util.EthereumAddress
	ChainID     uint64
}

func (o *DutchOutput) Decays() bool {
	return o.StartAmount.Cmp(o.EndAmount) != 0
}

// SignedMin returns the smaller of the two signed bounds.
func (o *DutchOutput) SignedMin() *big.Int {
	if o.StartAmount.Cmp(o.EndAmount) <= 0 {
		return o.StartAmount
	}
	return o.EndAmount
}

func (o *DutchOutput) Validate() error {
	if o.Token.IsZero() {
		return fmt.Errorf("output token is required")
	}
	if o.StartAmount == nil || o.StartAmount.Sign() < 0 {
		return fmt.Errorf("output start amount must be non-negative")
	}
	if o.EndAmount == nil || o.EndAmount.Sign() < 0 {
		return fmt.Errorf("output end amount must be non-negative")
	}
	if o.Recipient.IsZero() {
		return fmt.Errorf("output recipient is required")
	}
	return nil
}

// DutchOrder decays linearly over wall-clock time between DecayStartTime and
// DecayEndTime. An optional cosigner may tighten amounts or open the auction
// earlier after the maker has signed.
type DutchOrder struct {
	Info           OrderInfo
	DecayStartTime int64
	DecayEndTime   int64
	Input          DutchInput
	Outputs        []DutchOutput

	// Cosigner is the address whose signature authorizes CosignerData.
	// Zero means cosigning is not in use for this order.
	Cosigner     util.EthereumAddress
	CosignerData *CosignerData
}

func (o *DutchOrder) Kind() OrderType {
	return OrderTypeDutch
}

func (o *DutchOrder) OrderInfo() OrderInfo {
	return o.Info
}

// Validate checks context-free structure. Decay-window ordering and the
// one-side-decays rule are resolution-time checks with their own errors.
func (o *DutchOrder) Validate() error {
	if err := o.Info.Validate(); err != nil {
		return fmt.Errorf("order info: %w", err)
	}
	if o.DecayStartTime <= 0 {
		return fmt.Errorf("decay start time must be a positive unix timestamp")
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
	}
	return nil
}
