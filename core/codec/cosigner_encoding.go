package codec

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/driftswap/engine-go/core/types"
)

// EncodeCosignerPayload produces the canonical byte encoding of cosigner
// data minus the signature. This exact byte string, appended to the order
// hash, is what the cosigner signs; the wire encoding embeds the same bytes
// so there is only one layout to keep in sync.
//
// Format: [target_bound:uint64 LE]
//         [input_override_len:uint32 LE][input_override bytes]
//         [override_count:uint32 LE]([len:uint32 LE][bytes])...
func EncodeCosignerPayload(cd *types.CosignerData) []byte {
	buf := new(bytes.Buffer)
	if cd == nil {
		return buf.Bytes()
	}

	writeInt64LE(buf, cd.TargetBound)
	writeBigInt(buf, cd.InputOverride)
	writeUint32LE(buf, uint32(len(cd.OutputOverrides)))
	for _, o := range cd.OutputOverrides {
		writeBigInt(buf, o)
	}
	return buf.Bytes()
}

// writeBigInt writes a length-prefixed big-endian magnitude; nil and zero
// both write an empty magnitude. Overrides are validated non-negative before
// they reach the encoder.
func writeBigInt(buf *bytes.Buffer, v *big.Int) {
	var raw []byte
	if v != nil && v.Sign() > 0 {
		raw = v.Bytes()
	}
	writeUint32LE(buf, uint32(len(raw)))
	buf.Write(raw)
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64LE(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeInt64LE(buf *bytes.Buffer, v int64) {
	writeUint64LE(buf, uint64(v))
}
