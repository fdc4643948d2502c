package types

import (
	"fmt"
)

// LimitOrder trades fixed amounts: no decay, no cosigner. The degenerate
// variant, useful on its own and as the base case for resolver tests.
type LimitOrder struct {
	Info    OrderInfo
	Input   InputToken
	Outputs []OutputToken
}

func (o *LimitOrder) Kind() OrderType {
	return OrderTypeLimit
}

func (o *LimitOrder) OrderInfo() OrderInfo {
	return o.Info
}

func (o *LimitOrder) Validate() error {
	if err := o.Info.Validate(); err != nil {
		return fmt.Errorf("order info: %w", err)
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
	return nil
}
