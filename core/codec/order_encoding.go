package codec

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

// Wire format limits. Decoders reject anything beyond these before
// allocating, so a hostile payload cannot exhaust memory.
const (
	addressLen     = 20
	maxOutputs     = 64   // enough for any realistic multi-leg order
	maxCurvePoints = 64   // auction curves are short by construction
	maxFieldBytes  = 8192 // opaque hook/validation payload cap
	maxAmountBytes = 32   // amounts live in the uint256 domain
)

// EncodeOrder produces the canonical wire payload of an order. The variant
// tag is carried alongside the payload in SignedOrder, not inside it.
//
// All integers are little-endian; amounts are length-prefixed big-endian
// magnitudes; addresses are raw 20 bytes.
func EncodeOrder(order types.Order) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	switch o := order.(type) {
	case *types.LimitOrder:
		err = encodeLimitOrder(buf, o)
	case *types.DutchOrder:
		err = encodeDutchOrder(buf, o)
	case *types.PriorityOrder:
		err = encodePriorityOrder(buf, o)
	case *types.HybridOrder:
		err = encodeHybridOrder(buf, o)
	default:
		return nil, fmt.Errorf("unencodable order type %T", order)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeLimitOrder(buf *bytes.Buffer, o *types.LimitOrder) error {
	if err := encodeOrderInfo(buf, o.Info); err != nil {
		return err
	}
	writeAddress(buf, o.Input.Token)
	if err := writeAmount(buf, o.Input.Amount, "input amount"); err != nil {
		return err
	}
	if err := writeAmount(buf, o.Input.MaxAmount, "input max amount"); err != nil {
		return err
	}
	if len(o.Outputs) > maxOutputs {
		return fmt.Errorf("output count %d exceeds maximum %d", len(o.Outputs), maxOutputs)
	}
	writeUint32LE(buf, uint32(len(o.Outputs)))
	for i, out := range o.Outputs {
		writeAddress(buf, out.Token)
		if err := writeAmount(buf, out.Amount, fmt.Sprintf("output %d amount", i)); err != nil {
			return err
		}
		writeAddress(buf, out.Recipient)
		writeUint64LE(buf, out.ChainID)
	}
	return nil
}

func encodeDutchOrder(buf *bytes.Buffer, o *types.DutchOrder) error {
	if err := encodeOrderInfo(buf, o.Info); err != nil {
		return err
	}
	writeInt64LE(buf, o.DecayStartTime)
	writeInt64LE(buf, o.DecayEndTime)
	writeAddress(buf, o.Input.Token)
	if err := writeAmount(buf, o.Input.StartAmount, "input start amount"); err != nil {
		return err
	}
	if err := writeAmount(buf, o.Input.EndAmount, "input end amount"); err != nil {
		return err
	}
	if err := writeAmount(buf, o.Input.MaxAmount, "input max amount"); err != nil {
		return err
	}
	if len(o.Outputs) > maxOutputs {
		return fmt.Errorf("output count %d exceeds maximum %d", len(o.Outputs), maxOutputs)
	}
	writeUint32LE(buf, uint32(len(o.Outputs)))
	for i, out := range o.Outputs {
		writeAddress(buf, out.Token)
		if err := writeAmount(buf, out.StartAmount, fmt.Sprintf("output %d start amount", i)); err != nil {
			return err
		}
		if err := writeAmount(buf, out.EndAmount, fmt.Sprintf("output %d end amount", i)); err != nil {
			return err
		}
		writeAddress(buf, out.Recipient)
		writeUint64LE(buf, out.ChainID)
	}
	return encodeCosignerTail(buf, o.Cosigner, o.CosignerData)
}

func encodePriorityOrder(buf *bytes.Buffer, o *types.PriorityOrder) error {
	if err := encodeOrderInfo(buf, o.Info); err != nil {
		return err
	}
	writeUint64LE(buf, o.AuctionStartBlock)
	if err := writeAmount(buf, o.BaselinePriorityFee, "baseline priority fee"); err != nil {
		return err
	}
	writeAddress(buf, o.Input.Token)
	if err := writeAmount(buf, o.Input.Amount, "input amount"); err != nil {
		return err
	}
	if err := writeAmount(buf, o.Input.MaxAmount, "input max amount"); err != nil {
		return err
	}
	if err := encodePriorityCurve(buf, o.Input.ScalingCurve, "input"); err != nil {
		return err
	}
	if len(o.Outputs) > maxOutputs {
		return fmt.Errorf("output count %d exceeds maximum %d", len(o.Outputs), maxOutputs)
	}
	writeUint32LE(buf, uint32(len(o.Outputs)))
	for i, out := range o.Outputs {
		writeAddress(buf, out.Token)
		if err := writeAmount(buf, out.Amount, fmt.Sprintf("output %d amount", i)); err != nil {
			return err
		}
		writeAddress(buf, out.Recipient)
		writeUint64LE(buf, out.ChainID)
		if err := encodePriorityCurve(buf, out.ScalingCurve, fmt.Sprintf("output %d", i)); err != nil {
			return err
		}
	}
	return encodeCosignerTail(buf, o.Cosigner, o.CosignerData)
}

func encodeHybridOrder(buf *bytes.Buffer, o *types.HybridOrder) error {
	if err := encodeOrderInfo(buf, o.Info); err != nil {
		return err
	}
	writeUint64LE(buf, o.DecayStartBlock)
	if err := writeAmount(buf, o.BaselinePriorityFee, "baseline priority fee"); err != nil {
		return err
	}
	if err := encodePriorityCurve(buf, o.PriorityCurve, "priority"); err != nil {
		return err
	}
	writeAddress(buf, o.Input.Token)
	if err := writeAmount(buf, o.Input.StartAmount, "input start amount"); err != nil {
		return err
	}
	if err := writeAmount(buf, o.Input.MaxAmount, "input max amount"); err != nil {
		return err
	}
	if err := encodeDecayCurve(buf, o.Input.Curve, "input"); err != nil {
		return err
	}
	if len(o.Outputs) > maxOutputs {
		return fmt.Errorf("output count %d exceeds maximum %d", len(o.Outputs), maxOutputs)
	}
	writeUint32LE(buf, uint32(len(o.Outputs)))
	for i, out := range o.Outputs {
		writeAddress(buf, out.Token)
		if err := writeAmount(buf, out.StartAmount, fmt.Sprintf("output %d start amount", i)); err != nil {
			return err
		}
		writeAddress(buf, out.Recipient)
		writeUint64LE(buf, out.ChainID)
		if err := encodeDecayCurve(buf, out.Curve, fmt.Sprintf("output %d", i)); err != nil {
			return err
		}
	}
	return encodeCosignerTail(buf, o.Cosigner, o.CosignerData)
}

func encodeOrderInfo(buf *bytes.Buffer, info types.OrderInfo) error {
	writeAddress(buf, info.Reactor)
	writeAddress(buf, info.Offerer)
	if err := writeAmount(buf, info.Nonce, "nonce"); err != nil {
		return err
	}
	writeInt64LE(buf, info.Deadline)
	writeAddress(buf, info.ValidationContract)
	if err := writeBytesField(buf, info.ValidationData, "validation data"); err != nil {
		return err
	}
	writeAddress(buf, info.PreHook)
	if err := writeBytesField(buf, info.PreHookData, "pre-hook data"); err != nil {
		return err
	}
	writeAddress(buf, info.PostHook)
	if err := writeBytesField(buf, info.PostHookData, "post-hook data"); err != nil {
		return err
	}
	return nil
}

func encodePriorityCurve(buf *bytes.Buffer, curve []types.PriorityCurvePoint, side string) error {
	if len(curve) > maxCurvePoints {
		return fmt.Errorf("%s scaling curve: %d points exceeds maximum %d", side, len(curve), maxCurvePoints)
	}
	writeUint32LE(buf, uint32(len(curve)))
	for i, p := range curve {
		if err := writeAmount(buf, p.FeeThreshold, fmt.Sprintf("%s scaling curve point %d threshold", side, i)); err != nil {
			return err
		}
		writeUint64LE(buf, p.MultiplierMps)
	}
	return nil
}

func encodeDecayCurve(buf *bytes.Buffer, curve []types.CurvePoint, side string) error {
	if len(curve) > maxCurvePoints {
		return fmt.Errorf("%s curve: %d points exceeds maximum %d", side, len(curve), maxCurvePoints)
	}
	writeUint32LE(buf, uint32(len(curve)))
	for i, p := range curve {
		writeUint64LE(buf, p.BoundDelta)
		if err := writeAmount(buf, p.Amount, fmt.Sprintf("%s curve point %d amount", side, i)); err != nil {
			return err
		}
	}
	return nil
}

func encodeCosignerTail(buf *bytes.Buffer, cosigner util.EthereumAddress, cd *types.CosignerData) error {
	writeAddress(buf, cosigner)
	if cd == nil {
		buf.WriteByte(0)
		return nil
	}
	buf.WriteByte(1)
	payload := EncodeCosignerPayload(cd)
	buf.Write(payload)
	return writeBytesField(buf, cd.Signature, "cosigner signature")
}

func writeAddress(buf *bytes.Buffer, addr util.EthereumAddress) {
	buf.Write(addr.Bytes())
}

// writeAmount writes a length-prefixed big-endian magnitude. Nil encodes the
// same as zero: an empty magnitude.
func writeAmount(buf *bytes.Buffer, v *big.Int, field string) error {
	var raw []byte
	if v != nil {
		if v.Sign() < 0 {
			return fmt.Errorf("%s: negative amounts are not encodable", field)
		}
		raw = v.Bytes()
	}
	if len(raw) > maxAmountBytes {
		return fmt.Errorf("%s: %d bytes exceeds uint256 range", field, len(raw))
	}
	writeUint32LE(buf, uint32(len(raw)))
	buf.Write(raw)
	return nil
}

func writeBytesField(buf *bytes.Buffer, data []byte, field string) error {
	if len(data) > maxFieldBytes {
		return fmt.Errorf("%s: %d bytes exceeds maximum %d", field, len(data), maxFieldBytes)
	}
	writeUint32LE(buf, uint32(len(data)))
	buf.Write(data)
	return nil
}
