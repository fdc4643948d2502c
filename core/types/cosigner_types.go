package types

import (
	"fmt"
	"math/big"
)

// CosignerData is the auxiliary payload a cosigner signs to tighten an order
// after the maker has signed it. One shape serves every variant; fields a
// variant does not use must stay zero. The signature covers
// keccak256(orderHash || canonical encoding of the remaining fields), so the
// encoding here and in off-chain signing tools must agree byte for byte.
type CosignerData struct {
	// TargetBound overrides the auction start bound (seconds for time-decay
	// variants, block number for block-bound ones). Zero means no override.
	// A target later than the signed start is ignored rather than applied.
	TargetBound int64

	// InputOverride replaces the input's start amount. Nil or zero means no
	// override. Must not exceed the signed maximum.
	InputOverride *big.Int

	// OutputOverrides replaces output start amounts position by position.
	// Empty means no overrides; otherwise the length must equal the order's
	// output count, with zero entries meaning "leave this output alone".
	// Each non-zero entry must not fall below that output's signed minimum.
	OutputOverrides []*big.Int

	// Signature is the cosigner's detached signature, 65 bytes [R || S || V].
	Signature []byte
}

// HasOverrides reports whether any override field is populated.
func (c *CosignerData) HasOverrides() bool {
	if c == nil {
		return false
	}
	if c.TargetBound != 0 {
		return true
	}
	if c.InputOverride != nil && c.InputOverride.Sign() != 0 {
		return true
	}
	for _, o := range c.OutputOverrides {
		if o != nil && o.Sign() != 0 {
			return true
		}
	}
	return false
}

// Validate checks shape only; clamping against the signed amounts happens at
// resolution time where the order is in hand.
func (c *CosignerData) Validate(outputCount int) error {
	if c == nil {
		return nil
	}
	if c.TargetBound < 0 {
		return fmt.Errorf("cosigner target bound must be non-negative")
	}
	if c.InputOverride != nil && c.InputOverride.Sign() < 0 {
		return fmt.Errorf("cosigner input override must be non-negative")
	}
	if len(c.OutputOverrides) != 0 && len(c.OutputOverrides) != outputCount {
		return fmt.Errorf("cosigner output overrides: expected %d entries, got %d", outputCount, len(c.OutputOverrides))
	}
	for i, o := range c.OutputOverrides {
		if o != nil && o.Sign() < 0 {
			return fmt.Errorf("cosigner output override %d must be non-negative", i)
		}
	}
	if len(c.Signature) == 0 {
		return fmt.Errorf("cosigner signature is empty")
	}
	return nil
}
