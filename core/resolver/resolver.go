// Package resolver turns signed order blobs into resolved orders: it decodes
// the payload, hashes the original fields, checks structural invariants,
// applies any cosigned overrides, and evaluates decay against the fill
// context. Resolution is pure; nothing here touches funds or persisted state.
package resolver

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/codec"
	"github.com/driftswap/engine-go/core/cosign"
	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

var (
	// ErrEndTimeBeforeStartTime is returned when an order's decay window
	// ends before it starts.
	ErrEndTimeBeforeStartTime = errors.New("decay end bound precedes decay start bound")

	// ErrDeadlineBeforeEndTime is returned when an order expires before its
	// decay window closes.
	ErrDeadlineBeforeEndTime = errors.New("order deadline precedes decay end bound")

	// ErrInputAndOutputDecay is returned when both sides of an order decay
	// or scale. At most one side may move.
	ErrInputAndOutputDecay = errors.New("input and outputs cannot both decay")

	// ErrInvalidInputOverride is returned when a cosigned input override
	// exceeds the signed maximum.
	ErrInvalidInputOverride = errors.New("cosigner input override exceeds the signed maximum")

	// ErrInvalidOutputOverride is returned when a cosigned output override
	// falls below that output's signed minimum.
	ErrInvalidOutputOverride = errors.New("cosigner output override falls below the signed minimum")

	// ErrOrderNotFillable is returned when a block-bound auction has not
	// opened yet.
	ErrOrderNotFillable = errors.New("auction has not started")
)

// Resolver resolves every order variant. Stateless and safe to share.
type Resolver struct{}

func New() *Resolver {
	return &Resolver{}
}

var _ types.IResolver = (*Resolver)(nil)

// Resolve decodes, validates, and evaluates a signed order against the fill
// context. The returned order's hash covers the original signed fields and is
// never recomputed after overrides, so downstream signature checks bind to
// what the maker actually agreed to.
func (r *Resolver) Resolve(signed types.SignedOrder, fctx types.FillContext) (*types.ResolvedOrder, error) {
	if err := signed.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid signed order")
	}

	order, err := codec.DecodeOrder(signed.Kind, signed.Order)
	if err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	if err := order.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid order")
	}

	hash, err := codec.HashOrder(order)
	if err != nil {
		return nil, errors.Wrap(err, "hash order")
	}

	var resolved *types.ResolvedOrder
	switch o := order.(type) {
	case *types.LimitOrder:
		resolved, err = resolveLimit(o)
	case *types.DutchOrder:
		resolved, err = resolveDutch(o, hash, fctx)
	case *types.PriorityOrder:
		resolved, err = resolvePriority(o, hash, fctx)
	case *types.HybridOrder:
		resolved, err = resolveHybrid(o, hash, fctx)
	default:
		return nil, errors.Errorf("unresolvable order type %T", order)
	}
	if err != nil {
		return nil, err
	}

	resolved.Hash = hash
	resolved.Signature = signed.Signature
	return resolved, nil
}

// verifyCosignature checks the declared cosigner signed
// keccak256(orderHash || cosigner payload). A zero cosigner means the order
// does not use cosigning and always passes.
func verifyCosignature(cosigner util.EthereumAddress, orderHash common.Hash, cd *types.CosignerData) error {
	if cosigner.IsZero() {
		return nil
	}
	var sig []byte
	if cd != nil {
		sig = cd.Signature
	}
	return cosign.Verify(cosigner, codec.CosignerDigest(orderHash, cd), sig)
}
