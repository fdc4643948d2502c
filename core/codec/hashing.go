package codec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/types"
)

// HashOrder computes the canonical hash of an order over its original,
// unresolved fields. Cosigner data and signatures never enter the hash; the
// maker's signature commits to exactly what is hashed here.
func HashOrder(order types.Order) (common.Hash, error) {
	switch o := order.(type) {
	case *types.LimitOrder:
		return HashLimitOrder(o)
	case *types.DutchOrder:
		return HashDutchOrder(o)
	case *types.PriorityOrder:
		return HashPriorityOrder(o)
	case *types.HybridOrder:
		return HashHybridOrder(o)
	default:
		return common.Hash{}, errors.Errorf("unhashable order type %T", order)
	}
}

// HashLimitOrder hashes a limit order.
func HashLimitOrder(o *types.LimitOrder) (common.Hash, error) {
	infoHash, err := hashOrderInfo(o.Info)
	if err != nil {
		return common.Hash{}, err
	}
	inputHash, err := hashStruct(tokenInputArgs, b32(tokenInputTypehash), o.Input.Token.Common(), u256(o.Input.Amount), u256(o.Input.MaxAmount))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash limit input")
	}
	elems := make([]common.Hash, len(o.Outputs))
	for i, out := range o.Outputs {
		elems[i], err = hashStruct(tokenOutputArgs, b32(tokenOutputTypehash), out.Token.Common(), u256(out.Amount), out.Recipient.Common(), u256FromUint64(out.ChainID))
		if err != nil {
			return common.Hash{}, errors.Wrapf(err, "hash limit output %d", i)
		}
	}
	return hashStruct(threeHashOrderArgs, b32(limitOrderTypehash), b32(infoHash), b32(inputHash), b32(hashArray(elems)))
}

// HashDutchOrder hashes a dutch order, cosigner identity included, cosigner
// data excluded.
func HashDutchOrder(o *types.DutchOrder) (common.Hash, error) {
	infoHash, err := hashOrderInfo(o.Info)
	if err != nil {
		return common.Hash{}, err
	}
	inputHash, err := hashStruct(dutchInputArgs, b32(dutchInputTypehash), o.Input.Token.Common(), u256(o.Input.StartAmount), u256(o.Input.EndAmount), u256(o.Input.MaxAmount))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash dutch input")
	}
	elems := make([]common.Hash, len(o.Outputs))
	for i, out := range o.Outputs {
		elems[i], err = hashStruct(dutchOutputArgs, b32(dutchOutputTypehash), out.Token.Common(), u256(out.StartAmount), u256(out.EndAmount), out.Recipient.Common(), u256FromUint64(out.ChainID))
		if err != nil {
			return common.Hash{}, errors.Wrapf(err, "hash dutch output %d", i)
		}
	}
	return hashStruct(boundedOrderArgs,
		b32(dutchOrderTypehash), b32(infoHash),
		u256FromInt64(o.DecayStartTime), u256FromInt64(o.DecayEndTime),
		o.Cosigner.Common(), b32(inputHash), b32(hashArray(elems)))
}

// HashPriorityOrder hashes a priority order.
func HashPriorityOrder(o *types.PriorityOrder) (common.Hash, error) {
	infoHash, err := hashOrderInfo(o.Info)
	if err != nil {
		return common.Hash{}, err
	}
	inputCurve, err := hashPriorityCurve(o.Input.ScalingCurve)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash priority input curve")
	}
	inputHash, err := hashStruct(curvedInputArgs, b32(priorityInputTypehash), o.Input.Token.Common(), u256(o.Input.Amount), u256(o.Input.MaxAmount), b32(inputCurve))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash priority input")
	}
	elems := make([]common.Hash, len(o.Outputs))
	for i, out := range o.Outputs {
		curveHash, err := hashPriorityCurve(out.ScalingCurve)
		if err != nil {
			return common.Hash{}, errors.Wrapf(err, "hash priority output %d curve", i)
		}
		elems[i], err = hashStruct(curvedOutputArgs, b32(priorityOutputTypehash), out.Token.Common(), u256(out.Amount), out.Recipient.Common(), u256FromUint64(out.ChainID), b32(curveHash))
		if err != nil {
			return common.Hash{}, errors.Wrapf(err, "hash priority output %d", i)
		}
	}
	return hashStruct(boundedOrderArgs,
		b32(priorityOrderTypehash), b32(infoHash),
		u256FromUint64(o.AuctionStartBlock), u256(o.BaselinePriorityFee),
		o.Cosigner.Common(), b32(inputHash), b32(hashArray(elems)))
}

// HashHybridOrder hashes a hybrid order.
func HashHybridOrder(o *types.HybridOrder) (common.Hash, error) {
	infoHash, err := hashOrderInfo(o.Info)
	if err != nil {
		return common.Hash{}, err
	}
	priorityCurve, err := hashPriorityCurve(o.PriorityCurve)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash hybrid priority curve")
	}
	inputCurve, err := hashDecayCurve(o.Input.Curve)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash hybrid input curve")
	}
	inputHash, err := hashStruct(curvedInputArgs, b32(hybridInputTypehash), o.Input.Token.Common(), u256(o.Input.StartAmount), u256(o.Input.MaxAmount), b32(inputCurve))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash hybrid input")
	}
	elems := make([]common.Hash, len(o.Outputs))
	for i, out := range o.Outputs {
		curveHash, err := hashDecayCurve(out.Curve)
		if err != nil {
			return common.Hash{}, errors.Wrapf(err, "hash hybrid output %d curve", i)
		}
		elems[i], err = hashStruct(curvedOutputArgs, b32(hybridOutputTypehash), out.Token.Common(), u256(out.StartAmount), out.Recipient.Common(), u256FromUint64(out.ChainID), b32(curveHash))
		if err != nil {
			return common.Hash{}, errors.Wrapf(err, "hash hybrid output %d", i)
		}
	}
	return hashStruct(hybridOrderArgs,
		b32(hybridOrderTypehash), b32(infoHash),
		u256FromUint64(o.DecayStartBlock), u256(o.BaselinePriorityFee),
		b32(priorityCurve), o.Cosigner.Common(), b32(inputHash), b32(hashArray(elems)))
}

// CosignerDigest is what a cosigner signs:
// keccak256(orderHash || canonical cosigner payload). The payload excludes
// the cosignature itself.
func CosignerDigest(orderHash common.Hash, cd *types.CosignerData) common.Hash {
	return crypto.Keccak256Hash(orderHash.Bytes(), EncodeCosignerPayload(cd))
}

// Domain identifies one engine deployment for signing purposes. Orders
// signed against one domain cannot replay against another.
type Domain struct {
	Name    string
	Version string
	ChainID uint64
	Reactor string // 0x-prefixed address of the verifying engine
}

// Separator computes the typed-data domain separator.
func (d Domain) Separator() (common.Hash, error) {
	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
		},
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           math.NewHexOrDecimal256(int64(d.ChainID)),
			VerifyingContract: d.Reactor,
		},
	}
	sep, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash domain")
	}
	return common.BytesToHash(sep), nil
}

// SigningDigest is the final digest a maker signs for an order hash:
// keccak256(0x19 0x01 || domainSeparator || orderHash).
func SigningDigest(separator, orderHash common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, separator.Bytes(), orderHash.Bytes())
}

func hashOrderInfo(info types.OrderInfo) (common.Hash, error) {
	h, err := hashStruct(infoArgs,
		b32(orderInfoTypehash),
		info.Reactor.Common(), info.Offerer.Common(),
		u256(info.Nonce), u256FromInt64(info.Deadline),
		info.ValidationContract.Common(), b32(crypto.Keccak256Hash(info.ValidationData)),
		info.PreHook.Common(), b32(crypto.Keccak256Hash(info.PreHookData)),
		info.PostHook.Common(), b32(crypto.Keccak256Hash(info.PostHookData)))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "hash order info")
	}
	return h, nil
}

func hashPriorityCurve(curve []types.PriorityCurvePoint) (common.Hash, error) {
	elems := make([]common.Hash, len(curve))
	var err error
	for i, p := range curve {
		elems[i], err = hashStruct(pointArgs, b32(priorityPointTypehash), u256(p.FeeThreshold), u256FromUint64(p.MultiplierMps))
		if err != nil {
			return common.Hash{}, err
		}
	}
	return hashArray(elems), nil
}

func hashDecayCurve(curve []types.CurvePoint) (common.Hash, error) {
	elems := make([]common.Hash, len(curve))
	var err error
	for i, p := range curve {
		elems[i], err = hashStruct(pointArgs, b32(curvePointTypehash), u256FromUint64(p.BoundDelta), u256(p.Amount))
		if err != nil {
			return common.Hash{}, err
		}
	}
	return hashArray(elems), nil
}

// hashArray hashes the concatenation of element hashes, the typed-data rule
// for struct arrays.
func hashArray(elems []common.Hash) common.Hash {
	concat := make([]byte, 0, len(elems)*common.HashLength)
	for _, e := range elems {
		concat = append(concat, e.Bytes()...)
	}
	return crypto.Keccak256Hash(concat)
}

func b32(h common.Hash) [32]byte {
	return h
}

func u256(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func u256FromInt64(v int64) *big.Int {
	return new(big.Int).SetInt64(v)
}

func u256FromUint64(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
