// Package codec is the single canonical-encoding authority: the wire format
// order payloads travel in, the struct hashing maker signatures commit to,
// and the digest cosigners sign. Off-chain signing tools must match these
// byte for byte; any field added to an order variant must extend both its
// encoding and its hash.
package codec

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Type strings follow the typed-structured-data convention: the top-level
// struct first, referenced structs appended. Cosigner data and signatures
// are deliberately absent from order types; the maker signs without them.
const (
	orderInfoType = "OrderInfo(address reactor,address offerer,uint256 nonce,uint256 deadline,address validationContract,bytes validationData,address preHook,bytes preHookData,address postHook,bytes postHookData)"

	tokenInputType  = "TokenInput(address token,uint256 amount,uint256 maxAmount)"
	tokenOutputType = "TokenOutput(address token,uint256 amount,address recipient,uint256 chainId)"

	dutchInputType  = "DutchInput(address token,uint256 startAmount,uint256 endAmount,uint256 maxAmount)"
	dutchOutputType = "DutchOutput(address token,uint256 startAmount,uint256 endAmount,address recipient,uint256 chainId)"

	priorityPointType  = "PriorityPoint(uint256 feeThreshold,uint256 multiplierMps)"
	priorityInputType  = "PriorityInput(address token,uint256 amount,uint256 maxAmount,PriorityPoint[] curve)" + priorityPointType
	priorityOutputType = "PriorityOutput(address token,uint256 amount,address recipient,uint256 chainId,PriorityPoint[] curve)" + priorityPointType

	curvePointType   = "CurvePoint(uint256 boundDelta,uint256 amount)"
	hybridInputType  = "HybridInput(address token,uint256 startAmount,uint256 maxAmount,CurvePoint[] curve)" + curvePointType
	hybridOutputType = "HybridOutput(address token,uint256 startAmount,address recipient,uint256 chainId,CurvePoint[] curve)" + curvePointType

	limitOrderType = "LimitOrder(OrderInfo info,TokenInput input,TokenOutput[] outputs)" +
		orderInfoType + tokenInputType + tokenOutputType

	dutchOrderType = "DutchOrder(OrderInfo info,uint256 decayStartTime,uint256 decayEndTime,address cosigner,DutchInput input,DutchOutput[] outputs)" +
		orderInfoType + dutchInputType + dutchOutputType

	priorityOrderType = "PriorityOrder(OrderInfo info,uint256 auctionStartBlock,uint256 baselinePriorityFee,address cosigner,PriorityInput input,PriorityOutput[] outputs)" +
		orderInfoType + priorityInputType + priorityOutputType

	hybridOrderType = "HybridOrder(OrderInfo info,uint256 decayStartBlock,uint256 baselinePriorityFee,PriorityPoint[] priorityCurve,address cosigner,HybridInput input,HybridOutput[] outputs)" +
		orderInfoType + priorityPointType + hybridInputType + hybridOutputType
)

var (
	orderInfoTypehash      = crypto.Keccak256Hash([]byte(orderInfoType))
	tokenInputTypehash     = crypto.Keccak256Hash([]byte(tokenInputType))
	tokenOutputTypehash    = crypto.Keccak256Hash([]byte(tokenOutputType))
	dutchInputTypehash     = crypto.Keccak256Hash([]byte(dutchInputType))
	dutchOutputTypehash    = crypto.Keccak256Hash([]byte(dutchOutputType))
	priorityPointTypehash  = crypto.Keccak256Hash([]byte(priorityPointType))
	priorityInputTypehash  = crypto.Keccak256Hash([]byte(priorityInputType))
	priorityOutputTypehash = crypto.Keccak256Hash([]byte(priorityOutputType))
	curvePointTypehash     = crypto.Keccak256Hash([]byte(curvePointType))
	hybridInputTypehash    = crypto.Keccak256Hash([]byte(hybridInputType))
	hybridOutputTypehash   = crypto.Keccak256Hash([]byte(hybridOutputType))
	limitOrderTypehash     = crypto.Keccak256Hash([]byte(limitOrderType))
	dutchOrderTypehash     = crypto.Keccak256Hash([]byte(dutchOrderType))
	priorityOrderTypehash  = crypto.Keccak256Hash([]byte(priorityOrderType))
	hybridOrderTypehash    = crypto.Keccak256Hash([]byte(hybridOrderType))
)

// ABI argument sets for struct hashing, built once at package load.
var (
	infoArgs           abi.Arguments // typehash, reactor, offerer, nonce, deadline, validation, validationDataHash, preHook, preDataHash, postHook, postDataHash
	tokenInputArgs     abi.Arguments // typehash, token, amount, maxAmount
	tokenOutputArgs    abi.Arguments // typehash, token, amount, recipient, chainId
	dutchInputArgs     abi.Arguments // typehash, token, startAmount, endAmount, maxAmount
	dutchOutputArgs    abi.Arguments // typehash, token, startAmount, endAmount, recipient, chainId
	pointArgs          abi.Arguments // typehash, a, b
	curvedInputArgs    abi.Arguments // typehash, token, amount, maxAmount, curveHash
	curvedOutputArgs   abi.Arguments // typehash, token, amount, recipient, chainId, curveHash
	threeHashOrderArgs abi.Arguments // typehash, infoHash, inputHash, outputsHash
	boundedOrderArgs   abi.Arguments // typehash, infoHash, boundA, boundB, cosigner, inputHash, outputsHash
	hybridOrderArgs    abi.Arguments // typehash, infoHash, startBlock, baselineFee, priorityCurveHash, cosigner, inputHash, outputsHash
)

func init() {
	bytes32T, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic(err)
	}
	addressT, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}

	arg := func(t abi.Type) abi.Argument { return abi.Argument{Type: t} }
	build := func(ts ...abi.Type) abi.Arguments {
		args := make(abi.Arguments, len(ts))
		for i, t := range ts {
			args[i] = arg(t)
		}
		return args
	}

	infoArgs = build(bytes32T, addressT, addressT, uint256T, uint256T, addressT, bytes32T, addressT, bytes32T, addressT, bytes32T)
	tokenInputArgs = build(bytes32T, addressT, uint256T, uint256T)
	tokenOutputArgs = build(bytes32T, addressT, uint256T, addressT, uint256T)
	dutchInputArgs = build(bytes32T, addressT, uint256T, uint256T, uint256T)
	dutchOutputArgs = build(bytes32T, addressT, uint256T, uint256T, addressT, uint256T)
	pointArgs = build(bytes32T, uint256T, uint256T)
	curvedInputArgs = build(bytes32T, addressT, uint256T, uint256T, bytes32T)
	curvedOutputArgs = build(bytes32T, addressT, uint256T, addressT, uint256T, bytes32T)
	threeHashOrderArgs = build(bytes32T, bytes32T, bytes32T, bytes32T)
	boundedOrderArgs = build(bytes32T, bytes32T, uint256T, uint256T, addressT, bytes32T, bytes32T)
	hybridOrderArgs = build(bytes32T, bytes32T, uint256T, uint256T, bytes32T, addressT, bytes32T, bytes32T)
}

// hashStruct ABI-encodes the values against args and keccaks the result.
func hashStruct(args abi.Arguments, values ...interface{}) (common.Hash, error) {
	packed, err := args.Pack(values...)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}
