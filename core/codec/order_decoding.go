package codec

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

// DecodeOrder rebuilds an order from its wire payload. Trailing bytes are a
// malformed payload, not padding.
func DecodeOrder(kind types.OrderType, payload []byte) (types.Order, error) {
	var (
		order  types.Order
		offset int
		err    error
	)
	switch kind {
	case types.OrderTypeLimit:
		order, offset, err = decodeLimitOrder(payload)
	case types.OrderTypeDutch:
		order, offset, err = decodeDutchOrder(payload)
	case types.OrderTypePriority:
		order, offset, err = decodePriorityOrder(payload)
	case types.OrderTypeHybrid:
		order, offset, err = decodeHybridOrder(payload)
	default:
		return nil, fmt.Errorf("unknown order type tag 0x%02x", byte(kind))
	}
	if err != nil {
		return nil, err
	}
	if offset != len(payload) {
		return nil, fmt.Errorf("payload has %d trailing bytes", len(payload)-offset)
	}
	return order, nil
}

func decodeLimitOrder(data []byte) (*types.LimitOrder, int, error) {
	o := &types.LimitOrder{}
	info, offset, err := decodeOrderInfo(data, 0)
	if err != nil {
		return nil, 0, err
	}
	o.Info = info
	if o.Input.Token, offset, err = readAddress(data, offset, "input token"); err != nil {
		return nil, 0, err
	}
	if o.Input.Amount, offset, err = readAmount(data, offset, "input amount"); err != nil {
		return nil, 0, err
	}
	if o.Input.MaxAmount, offset, err = readAmount(data, offset, "input max amount"); err != nil {
		return nil, 0, err
	}
	count, offset, err := readOutputCount(data, offset)
	if err != nil {
		return nil, 0, err
	}
	o.Outputs = make([]types.OutputToken, count)
	for i := range o.Outputs {
		out := &o.Outputs[i]
		if out.Token, offset, err = readAddress(data, offset, fmt.Sprintf("output %d token", i)); err != nil {
			return nil, 0, err
		}
		if out.Amount, offset, err = readAmount(data, offset, fmt.Sprintf("output %d amount", i)); err != nil {
			return nil, 0, err
		}
		if out.Recipient, offset, err = readAddress(data, offset, fmt.Sprintf("output %d recipient", i)); err != nil {
			return nil, 0, err
		}
		if out.ChainID, offset, err = readUint64(data, offset, fmt.Sprintf("output %d chain id", i)); err != nil {
			return nil, 0, err
		}
	}
	return o, offset, nil
}

func decodeDutchOrder(data []byte) (*types.DutchOrder, int, error) {
	o := &types.DutchOrder{}
	info, offset, err := decodeOrderInfo(data, 0)
	if err != nil {
		return nil, 0, err
	}
	o.Info = info
	if o.DecayStartTime, offset, err = readInt64(data, offset, "decay start time"); err != nil {
		return nil, 0, err
	}
	if o.DecayEndTime, offset, err = readInt64(data, offset, "decay end time"); err != nil {
		return nil, 0, err
	}
	if o.Input.Token, offset, err = readAddress(data, offset, "input token"); err != nil {
		return nil, 0, err
	}
	if o.Input.StartAmount, offset, err = readAmount(data, offset, "input start amount"); err != nil {
		return nil, 0, err
	}
	if o.Input.EndAmount, offset, err = readAmount(data, offset, "input end amount"); err != nil {
		return nil, 0, err
	}
	if o.Input.MaxAmount, offset, err = readAmount(data, offset, "input max amount"); err != nil {
		return nil, 0, err
	}
	count, offset, err := readOutputCount(data, offset)
	if err != nil {
		return nil, 0, err
	}
	o.Outputs = make([]types.DutchOutput, count)
	for i := range o.Outputs {
		out := &o.Outputs[i]
		if out.Token, offset, err = readAddress(data, offset, fmt.Sprintf("output %d token", i)); err != nil {
			return nil, 0, err
		}
		if out.StartAmount, offset, err = readAmount(data, offset, fmt.Sprintf("output %d start amount", i)); err != nil {
			return nil, 0, err
		}
		if out.EndAmount, offset, err = readAmount(data, offset, fmt.Sprintf("output %d end amount", i)); err != nil {
			return nil, 0, err
		}
		if out.Recipient, offset, err = readAddress(data, offset, fmt.Sprintf("output %d recipient", i)); err != nil {
			return nil, 0, err
		}
		if out.ChainID, offset, err = readUint64(data, offset, fmt.Sprintf("output %d chain id", i)); err != nil {
			return nil, 0, err
		}
	}
	o.Cosigner, o.CosignerData, offset, err = decodeCosignerTail(data, offset)
	if err != nil {
		return nil, 0, err
	}
	return o, offset, nil
}

func decodePriorityOrder(data []byte) (*types.PriorityOrder, int, error) {
	o := &types.PriorityOrder{}
	info, offset, err := decodeOrderInfo(data, 0)
	if err != nil {
		return nil, 0, err
	}
	o.Info = info
	if o.AuctionStartBlock, offset, err = readUint64(data, offset, "auction start block"); err != nil {
		return nil, 0, err
	}
	if o.BaselinePriorityFee, offset, err = readAmount(data, offset, "baseline priority fee"); err != nil {
		return nil, 0, err
	}
	if o.Input.Token, offset, err = readAddress(data, offset, "input token"); err != nil {
		return nil, 0, err
	}
	if o.Input.Amount, offset, err = readAmount(data, offset, "input amount"); err != nil {
		return nil, 0, err
	}
	if o.Input.MaxAmount, offset, err = readAmount(data, offset, "input max amount"); err != nil {
		return nil, 0, err
	}
	if o.Input.ScalingCurve, offset, err = decodePriorityCurve(data, offset, "input"); err != nil {
		return nil, 0, err
	}
	count, offset, err := readOutputCount(data, offset)
	if err != nil {
		return nil, 0, err
	}
	o.Outputs = make([]types.PriorityOutput, count)
	for i := range o.Outputs {
		out := &o.Outputs[i]
		if out.Token, offset, err = readAddress(data, offset, fmt.Sprintf("output %d token", i)); err != nil {
			return nil, 0, err
		}
		if out.Amount, offset, err = readAmount(data, offset, fmt.Sprintf("output %d amount", i)); err != nil {
			return nil, 0, err
		}
		if out.Recipient, offset, err = readAddress(data, offset, fmt.Sprintf("output %d recipient", i)); err != nil {
			return nil, 0, err
		}
		if out.ChainID, offset, err = readUint64(data, offset, fmt.Sprintf("output %d chain id", i)); err != nil {
			return nil, 0, err
		}
		if out.ScalingCurve, offset, err = decodePriorityCurve(data, offset, fmt.Sprintf("output %d", i)); err != nil {
			return nil, 0, err
		}
	}
	o.Cosigner, o.CosignerData, offset, err = decodeCosignerTail(data, offset)
	if err != nil {
		return nil, 0, err
	}
	return o, offset, nil
}

func decodeHybridOrder(data []byte) (*types.HybridOrder, int, error) {
	o := &types.HybridOrder{}
	info, offset, err := decodeOrderInfo(data, 0)
	if err != nil {
		return nil, 0, err
	}
	o.Info = info
	if o.DecayStartBlock, offset, err = readUint64(data, offset, "decay start block"); err != nil {
		return nil, 0, err
	}
	if o.BaselinePriorityFee, offset, err = readAmount(data, offset, "baseline priority fee"); err != nil {
		return nil, 0, err
	}
	if o.PriorityCurve, offset, err = decodePriorityCurve(data, offset, "priority"); err != nil {
		return nil, 0, err
	}
	if o.Input.Token, offset, err = readAddress(data, offset, "input token"); err != nil {
		return nil, 0, err
	}
	if o.Input.StartAmount, offset, err = readAmount(data, offset, "input start amount"); err != nil {
		return nil, 0, err
	}
	if o.Input.MaxAmount, offset, err = readAmount(data, offset, "input max amount"); err != nil {
		return nil, 0, err
	}
	if o.Input.Curve, offset, err = decodeDecayCurve(data, offset, "input"); err != nil {
		return nil, 0, err
	}
	count, offset, err := readOutputCount(data, offset)
	if err != nil {
		return nil, 0, err
	}
	o.Outputs = make([]types.HybridOutput, count)
	for i := range o.Outputs {
		out := &o.Outputs[i]
		if out.Token, offset, err = readAddress(data, offset, fmt.Sprintf("output %d token", i)); err != nil {
			return nil, 0, err
		}
		if out.StartAmount, offset, err = readAmount(data, offset, fmt.Sprintf("output %d start amount", i)); err != nil {
			return nil, 0, err
		}
		if out.Recipient, offset, err = readAddress(data, offset, fmt.Sprintf("output %d recipient", i)); err != nil {
			return nil, 0, err
		}
		if out.ChainID, offset, err = readUint64(data, offset, fmt.Sprintf("output %d chain id", i)); err != nil {
			return nil, 0, err
		}
		if out.Curve, offset, err = decodeDecayCurve(data, offset, fmt.Sprintf("output %d", i)); err != nil {
			return nil, 0, err
		}
	}
	o.Cosigner, o.CosignerData, offset, err = decodeCosignerTail(data, offset)
	if err != nil {
		return nil, 0, err
	}
	return o, offset, nil
}

func decodeOrderInfo(data []byte, offset int) (types.OrderInfo, int, error) {
	var info types.OrderInfo
	var err error
	if info.Reactor, offset, err = readAddress(data, offset, "reactor"); err != nil {
		return info, 0, err
	}
	if info.Offerer, offset, err = readAddress(data, offset, "offerer"); err != nil {
		return info, 0, err
	}
	if info.Nonce, offset, err = readAmount(data, offset, "nonce"); err != nil {
		return info, 0, err
	}
	if info.Deadline, offset, err = readInt64(data, offset, "deadline"); err != nil {
		return info, 0, err
	}
	if info.ValidationContract, offset, err = readAddress(data, offset, "validation contract"); err != nil {
		return info, 0, err
	}
	if info.ValidationData, offset, err = readBytesField(data, offset, "validation data"); err != nil {
		return info, 0, err
	}
	if info.PreHook, offset, err = readAddress(data, offset, "pre-hook"); err != nil {
		return info, 0, err
	}
	if info.PreHookData, offset, err = readBytesField(data, offset, "pre-hook data"); err != nil {
		return info, 0, err
	}
	if info.PostHook, offset, err = readAddress(data, offset, "post-hook"); err != nil {
		return info, 0, err
	}
	if info.PostHookData, offset, err = readBytesField(data, offset, "post-hook data"); err != nil {
		return info, 0, err
	}
	return info, offset, nil
}

func decodePriorityCurve(data []byte, offset int, side string) ([]types.PriorityCurvePoint, int, error) {
	count, offset, err := readCount(data, offset, side+" scaling curve", maxCurvePoints)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, offset, nil
	}
	curve := make([]types.PriorityCurvePoint, count)
	for i := range curve {
		if curve[i].FeeThreshold, offset, err = readAmount(data, offset, fmt.Sprintf("%s scaling curve point %d threshold", side, i)); err != nil {
			return nil, 0, err
		}
		if curve[i].MultiplierMps, offset, err = readUint64(data, offset, fmt.Sprintf("%s scaling curve point %d multiplier", side, i)); err != nil {
			return nil, 0, err
		}
	}
	return curve, offset, nil
}

func decodeDecayCurve(data []byte, offset int, side string) ([]types.CurvePoint, int, error) {
	count, offset, err := readCount(data, offset, side+" curve", maxCurvePoints)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, offset, nil
	}
	curve := make([]types.CurvePoint, count)
	for i := range curve {
		if curve[i].BoundDelta, offset, err = readUint64(data, offset, fmt.Sprintf("%s curve point %d bound", side, i)); err != nil {
			return nil, 0, err
		}
		if curve[i].Amount, offset, err = readAmount(data, offset, fmt.Sprintf("%s curve point %d amount", side, i)); err != nil {
			return nil, 0, err
		}
	}
	return curve, offset, nil
}

func decodeCosignerTail(data []byte, offset int) (util.EthereumAddress, *types.CosignerData, int, error) {
	cosigner, offset, err := readAddress(data, offset, "cosigner")
	if err != nil {
		return util.EthereumAddress{}, nil, 0, err
	}
	if offset+1 > len(data) {
		return util.EthereumAddress{}, nil, 0, fmt.Errorf("payload too short for cosigner data flag")
	}
	flag := data[offset]
	offset++
	if flag == 0 {
		return cosigner, nil, offset, nil
	}
	if flag != 1 {
		return util.EthereumAddress{}, nil, 0, fmt.Errorf("invalid cosigner data flag 0x%02x", flag)
	}

	cd := &types.CosignerData{}
	if cd.TargetBound, offset, err = readInt64(data, offset, "cosigner target bound"); err != nil {
		return util.EthereumAddress{}, nil, 0, err
	}
	if cd.InputOverride, offset, err = readOptionalAmount(data, offset, "cosigner input override"); err != nil {
		return util.EthereumAddress{}, nil, 0, err
	}
	count, offset, err := readCount(data, offset, "cosigner output overrides", maxOutputs)
	if err != nil {
		return util.EthereumAddress{}, nil, 0, err
	}
	if count > 0 {
		cd.OutputOverrides = make([]*big.Int, count)
		for i := range cd.OutputOverrides {
			if cd.OutputOverrides[i], offset, err = readOptionalAmount(data, offset, fmt.Sprintf("cosigner output override %d", i)); err != nil {
				return util.EthereumAddress{}, nil, 0, err
			}
		}
	}
	if cd.Signature, offset, err = readBytesField(data, offset, "cosigner signature"); err != nil {
		return util.EthereumAddress{}, nil, 0, err
	}
	return cosigner, cd, offset, nil
}

// Binary reading helpers. Each returns the decoded value and the offset just
// past it.

func readAddress(data []byte, offset int, field string) (util.EthereumAddress, int, error) {
	if offset+addressLen > len(data) {
		return util.EthereumAddress{}, 0, fmt.Errorf("payload too short for %s", field)
	}
	addr, err := util.NewEthereumAddressFromBytes(data[offset : offset+addressLen])
	if err != nil {
		return util.EthereumAddress{}, 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	return addr, offset + addressLen, nil
}

func readUint32(data []byte, offset int, field string) (uint32, int, error) {
	if offset+4 > len(data) {
		return 0, 0, fmt.Errorf("payload too short for %s", field)
	}
	return binary.LittleEndian.Uint32(data[offset:]), offset + 4, nil
}

func readUint64(data []byte, offset int, field string) (uint64, int, error) {
	if offset+8 > len(data) {
		return 0, 0, fmt.Errorf("payload too short for %s", field)
	}
	return binary.LittleEndian.Uint64(data[offset:]), offset + 8, nil
}

func readInt64(data []byte, offset int, field string) (int64, int, error) {
	v, next, err := readUint64(data, offset, field)
	if err != nil {
		return 0, 0, err
	}
	return int64(v), next, nil
}

// readAmount reads a length-prefixed magnitude as a non-nil big.Int.
func readAmount(data []byte, offset int, field string) (*big.Int, int, error) {
	raw, next, err := readLengthPrefixed(data, offset, field, maxAmountBytes)
	if err != nil {
		return nil, 0, err
	}
	return new(big.Int).SetBytes(raw), next, nil
}

// readOptionalAmount maps an empty magnitude to nil, the "no override"
// convention.
func readOptionalAmount(data []byte, offset int, field string) (*big.Int, int, error) {
	raw, next, err := readLengthPrefixed(data, offset, field, maxAmountBytes)
	if err != nil {
		return nil, 0, err
	}
	if len(raw) == 0 {
		return nil, next, nil
	}
	return new(big.Int).SetBytes(raw), next, nil
}

func readBytesField(data []byte, offset int, field string) ([]byte, int, error) {
	raw, next, err := readLengthPrefixed(data, offset, field, maxFieldBytes)
	if err != nil {
		return nil, 0, err
	}
	if len(raw) == 0 {
		return nil, next, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, next, nil
}

func readLengthPrefixed(data []byte, offset int, field string, maxLen int) ([]byte, int, error) {
	length, offset, err := readUint32(data, offset, field+" length")
	if err != nil {
		return nil, 0, err
	}
	if int(length) > maxLen {
		return nil, 0, fmt.Errorf("%s: %d bytes exceeds maximum %d", field, length, maxLen)
	}
	if offset+int(length) > len(data) {
		return nil, 0, fmt.Errorf("payload too short for %s", field)
	}
	return data[offset : offset+int(length)], offset + int(length), nil
}

func readCount(data []byte, offset int, what string, max int) (int, int, error) {
	v, offset, err := readUint32(data, offset, what+" count")
	if err != nil {
		return 0, 0, err
	}
	if int(v) > max {
		return 0, 0, fmt.Errorf("%s count %d exceeds maximum %d", what, v, max)
	}
	return int(v), offset, nil
}

func readOutputCount(data []byte, offset int) (int, int, error) {
	return readCount(data, offset, "output", maxOutputs)
}
