package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/driftswap/engine-go/core/util"
)

// OrderType discriminates the closed set of order variants. The tag travels
// alongside the opaque order payload so the resolver can dispatch without
// inspecting variant-specific fields.
type OrderType byte

const (
	OrderTypeLimit    OrderType = 0x01 // fixed input/output amounts, no decay
	OrderTypeDutch    OrderType = 0x02 // time-bound linear decay, cosigner amount overrides
	OrderTypePriority OrderType = 0x03 // priority-fee scaling, cosigner target-block override
	OrderTypeHybrid   OrderType = 0x04 // block-bound decay curve plus priority scaling
)

var validOrderTypes = map[OrderType]bool{
	OrderTypeLimit:    true,
	OrderTypeDutch:    true,
	OrderTypePriority: true,
	OrderTypeHybrid:   true,
}

// Valid reports whether the tag names a known order variant.
func (t OrderType) Valid() bool {
	return validOrderTypes[t]
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "limit"
	case OrderTypeDutch:
		return "dutch"
	case OrderTypePriority:
		return "priority"
	case OrderTypeHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// OrderInfo carries the fields shared by every order variant.
type OrderInfo struct {
	Reactor  util.EthereumAddress // fill engine this order is bound to; rejected elsewhere
	Offerer  util.EthereumAddress // maker whose signature authorizes the trade
	Nonce    *big.Int             // replay/cancel key; one use per offerer, ever
	Deadline int64                // unix seconds; order is unfillable afterwards

	// Optional maker-defined fill policy, run against (filler, resolved order).
	ValidationContract util.EthereumAddress
	ValidationData     []byte

	// Optional delegated execution points around the fill.
	PreHook      util.EthereumAddress
	PreHookData  []byte
	PostHook     util.EthereumAddress
	PostHookData []byte
}

// Validate checks the fields every variant requires.
func (o *OrderInfo) Validate() error {
	if o.Reactor.IsZero() {
		return fmt.Errorf("reactor is required")
	}
	if o.Offerer.IsZero() {
		return fmt.Errorf("offerer is required")
	}
	if o.Nonce == nil || o.Nonce.Sign() < 0 {
		return fmt.Errorf("nonce must be a non-negative integer")
	}
	if o.Deadline <= 0 {
		return fmt.Errorf("deadline must be a positive unix timestamp")
	}
	// A declared validation contract with no payload is fine; the inverse
	// is a construction mistake.
	if o.ValidationContract.IsZero() && len(o.ValidationData) > 0 {
		return fmt.Errorf("validation data supplied without a validation contract")
	}
	return nil
}

// InputToken is what the maker gives up. Amount is the resolved (or fixed)
// amount; MaxAmount is the cap the maker's signature authorizes.
type InputToken struct {
	Token     util.EthereumAddress
	Amount    *big.Int
	MaxAmount *big.Int
}

// Validate checks amount sanity. Resolved amounts above MaxAmount are
// rejected at resolution time, not here.
func (i *InputToken) Validate() error {
	if i.Token.IsZero() {
		return fmt.Errorf("input token is required")
	}
	if i.Amount == nil || i.Amount.Sign() < 0 {
		return fmt.Errorf("input amount must be non-negative")
	}
	if i.MaxAmount == nil || i.MaxAmount.Cmp(i.Amount) < 0 {
		return fmt.Errorf("input max amount must be at least the input amount")
	}
	return nil
}

// OutputToken is one leg the filler must deliver. Outputs form an ordered
// collection; insertion order is significant because it is hashed.
type OutputToken struct {
	Token     util.EthereumAddress
	Amount    *big.Int
	Recipient util.EthereumAddress
	ChainID   uint64 // destination domain; 0 means the origin domain
}

func (o *OutputToken) Validate() error {
	if o.Token.IsZero() {
		return fmt.Errorf("output token is required")
	}
	if o.Amount == nil || o.Amount.Sign() < 0 {
		return fmt.Errorf("output amount must be non-negative")
	}
	if o.Recipient.IsZero() {
		return fmt.Errorf("output recipient is required")
	}
	return nil
}

// Order is the capability every variant implements. Hashing and wire encoding
// live in the codec package so the binding between the two stays in one place.
type Order interface {
	// Kind returns the variant discriminator.
	Kind() OrderType
	// OrderInfo returns the shared order fields.
	OrderInfo() OrderInfo
	// Validate checks variant-level structural invariants that do not
	// depend on fill-time context.
	Validate() error
}

// SignedOrder is the unit submitted for filling: the canonical payload bytes,
// the variant tag carried alongside them, and the maker's signature over the
// order digest.
type SignedOrder struct {
	Kind      OrderType
	Order     []byte
	Signature []byte
}

func (s *SignedOrder) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("unknown order type tag 0x%02x", byte(s.Kind))
	}
	if len(s.Order) == 0 {
		return fmt.Errorf("order payload is empty")
	}
	if len(s.Signature) == 0 {
		return fmt.Errorf("order signature is empty")
	}
	return nil
}

// FillContext is the execution-environment snapshot a resolution runs
// against: wall clock, block counter, and the transaction's priority fee.
type FillContext struct {
	Timestamp   int64
	BlockNumber uint64
	PriorityFee *big.Int // per-gas priority fee of the filling transaction; nil means zero
}

// EffectivePriorityFee returns max(0, PriorityFee - baseline).
func (c FillContext) EffectivePriorityFee(baseline *big.Int) *big.Int {
	fee := new(big.Int)
	if c.PriorityFee != nil {
		fee.Set(c.PriorityFee)
	}
	if baseline != nil {
		fee.Sub(fee, baseline)
	}
	if fee.Sign() < 0 {
		fee.SetInt64(0)
	}
	return fee
}

// ResolvedOrder is the concrete instantiation of a signed order at fill time.
// Hash is always the digest of the original unresolved fields; it is set once
// at decode time and never recomputed after overrides or decay.
type ResolvedOrder struct {
	Info      OrderInfo
	Input     InputToken
	Outputs   []OutputToken
	Signature []byte
	Hash      common.Hash
}
