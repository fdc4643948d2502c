package codec

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftswap/engine-go/core/types"
	"github.com/driftswap/engine-go/core/util"
)

func testAddr(t *testing.T, hex string) util.EthereumAddress {
	t.Helper()
	a, err := util.NewEthereumAddressFromString(hex)
	require.NoError(t, err)
	return a
}

func mustHashOrder(t *testing.T, o types.Order) common.Hash {
	t.Helper()
	h, err := HashOrder(o)
	require.NoError(t, err)
	return h
}

// fullInfo populates every shared field, hook payloads included, so encodings
// and hashes exercise the whole surface.
func fullInfo(t *testing.T) types.OrderInfo {
	return types.OrderInfo{
		Reactor:            testAddr(t, "0xaa00000000000000000000000000000000000001"),
		Offerer:            testAddr(t, "0xbb00000000000000000000000000000000000001"),
		Nonce:              big.NewInt(42),
		Deadline:           7200,
		ValidationContract: testAddr(t, "0xcc00000000000000000000000000000000000001"),
		ValidationData:     []byte{0xde, 0xad, 0xbe, 0xef},
		PreHook:            testAddr(t, "0xdd00000000000000000000000000000000000001"),
		PreHookData:        []byte{0x01},
		PostHook:           testAddr(t, "0xee00000000000000000000000000000000000001"),
		PostHookData:       []byte{0x02, 0x03},
	}
}

func fullLimitOrder(t *testing.T) *types.LimitOrder {
	return &types.LimitOrder{
		Info: fullInfo(t),
		Input: types.InputToken{
			Token:     testAddr(t, "0x1000000000000000000000000000000000000001"),
			Amount:    big.NewInt(100),
			MaxAmount: big.NewInt(100),
		},
		Outputs: []types.OutputToken{
			{
				Token:     testAddr(t, "0x2000000000000000000000000000000000000002"),
				Amount:    big.NewInt(200),
				Recipient: testAddr(t, "0xbb00000000000000000000000000000000000001"),
			},
			{
				Token:     testAddr(t, "0x2000000000000000000000000000000000000003"),
				Amount:    big.NewInt(300),
				Recipient: testAddr(t, "0xbb00000000000000000000000000000000000002"),
				ChainID:   137,
			},
		},
	}
}

func fullDutchOrder(t *testing.T) *types.DutchOrder {
	return &types.DutchOrder{
		Info:           fullInfo(t),
		DecayStartTime: 1000,
		DecayEndTime:   2000,
		Input: types.DutchInput{
			Token:       testAddr(t, "0x1000000000000000000000000000000000000001"),
			StartAmount: big.NewInt(100),
			EndAmount:   big.NewInt(100),
			MaxAmount:   big.NewInt(100),
		},
		Outputs: []types.DutchOutput{
			{
				Token:       testAddr(t, "0x2000000000000000000000000000000000000002"),
				StartAmount: big.NewInt(200),
				EndAmount:   big.NewInt(100),
				Recipient:   testAddr(t, "0xbb00000000000000000000000000000000000001"),
			},
			{
				Token:       testAddr(t, "0x2000000000000000000000000000000000000003"),
				StartAmount: big.NewInt(300),
				EndAmount:   big.NewInt(300),
				Recipient:   testAddr(t, "0xbb00000000000000000000000000000000000002"),
				ChainID:     137,
			},
		},
		Cosigner: testAddr(t, "0xc000000000000000000000000000000000000001"),
		CosignerData: &types.CosignerData{
			TargetBound:     1500,
			OutputOverrides: []*big.Int{big.NewInt(150), nil},
			Signature:       bytes.Repeat([]byte{0x5c}, 65),
		},
	}
}

// fullPriorityOrder scales its outputs with the priority fee, the
// exact-input shape.
func fullPriorityOrder(t *testing.T) *types.PriorityOrder {
	return &types.PriorityOrder{
		Info:                fullInfo(t),
		AuctionStartBlock:   100,
		BaselinePriorityFee: big.NewInt(5),
		Input: types.PriorityInput{
			Token:     testAddr(t, "0x1000000000000000000000000000000000000001"),
			Amount:    big.NewInt(1000),
			MaxAmount: big.NewInt(1000),
		},
		Outputs: []types.PriorityOutput{
			{
				Token:     testAddr(t, "0x2000000000000000000000000000000000000002"),
				Amount:    big.NewInt(2000),
				Recipient: testAddr(t, "0xbb00000000000000000000000000000000000001"),
				ScalingCurve: []types.PriorityCurvePoint{
					{FeeThreshold: big.NewInt(100), MultiplierMps: 11_000_000},
					{FeeThreshold: big.NewInt(200), MultiplierMps: 12_000_000},
				},
			},
			{
				Token:     testAddr(t, "0x2000000000000000000000000000000000000003"),
				Amount:    big.NewInt(50),
				Recipient: testAddr(t, "0xbb00000000000000000000000000000000000002"),
				ChainID:   10,
			},
		},
	}
}

// inputScalingPriorityOrder scales its input down instead, the exact-output
// shape, and carries a cosigned target block.
func inputScalingPriorityOrder(t *testing.T) *types.PriorityOrder {
	return &types.PriorityOrder{
		Info:                fullInfo(t),
		AuctionStartBlock:   100,
		BaselinePriorityFee: big.NewInt(5),
		Input: types.PriorityInput{
			Token:        testAddr(t, "0x1000000000000000000000000000000000000001"),
			Amount:       big.NewInt(1000),
			MaxAmount:    big.NewInt(1000),
			ScalingCurve: []types.PriorityCurvePoint{{FeeThreshold: big.NewInt(100), MultiplierMps: 9_000_000}},
		},
		Outputs: []types.PriorityOutput{
			{
				Token:     testAddr(t, "0x2000000000000000000000000000000000000002"),
				Amount:    big.NewInt(2000),
				Recipient: testAddr(t, "0xbb00000000000000000000000000000000000001"),
			},
		},
		Cosigner: testAddr(t, "0xc000000000000000000000000000000000000001"),
		CosignerData: &types.CosignerData{
			TargetBound: 95,
			Signature:   bytes.Repeat([]byte{0x5c}, 65),
		},
	}
}

func fullHybridOrder(t *testing.T) *types.HybridOrder {
	return &types.HybridOrder{
		Info:                fullInfo(t),
		DecayStartBlock:     100,
		BaselinePriorityFee: big.NewInt(0),
		PriorityCurve:       []types.PriorityCurvePoint{{FeeThreshold: big.NewInt(50), MultiplierMps: 10_500_000}},
		Input: types.HybridInput{
			Token:       testAddr(t, "0x1000000000000000000000000000000000000001"),
			StartAmount: big.NewInt(500),
			MaxAmount:   big.NewInt(500),
		},
		Outputs: []types.HybridOutput{
			{
				Token:       testAddr(t, "0x2000000000000000000000000000000000000002"),
				StartAmount: big.NewInt(1000),
				Recipient:   testAddr(t, "0xbb00000000000000000000000000000000000001"),
				Curve: []types.CurvePoint{
					{BoundDelta: 10, Amount: big.NewInt(800)},
					{BoundDelta: 20, Amount: big.NewInt(700)},
				},
			},
			{
				Token:       testAddr(t, "0x2000000000000000000000000000000000000003"),
				StartAmount: big.NewInt(300),
				Recipient:   testAddr(t, "0xbb00000000000000000000000000000000000002"),
				ChainID:     137,
			},
		},
		Cosigner: testAddr(t, "0xc000000000000000000000000000000000000001"),
		CosignerData: &types.CosignerData{
			TargetBound:     90,
			InputOverride:   big.NewInt(450),
			OutputOverrides: []*big.Int{big.NewInt(900), nil},
			Signature:       bytes.Repeat([]byte{0x5c}, 65),
		},
	}
}

// ═══════════════════════════════════════════════════════════════
// WIRE ROUND TRIPS
// ═══════════════════════════════════════════════════════════════

func TestOrderWireRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		order types.Order
	}{
		{"limit", fullLimitOrder(t)},
		{"dutch with cosigner data", fullDutchOrder(t)},
		{"priority scaling outputs", fullPriorityOrder(t)},
		{"priority scaling input", inputScalingPriorityOrder(t)},
		{"hybrid with cosigner data", fullHybridOrder(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.order.Validate(), "fixture must be a valid order")

			payload, err := EncodeOrder(tt.order)
			require.NoError(t, err)

			decoded, err := DecodeOrder(tt.order.Kind(), payload)
			require.NoError(t, err)
			assert.Equal(t, tt.order, decoded)

			assert.Equal(t, mustHashOrder(t, tt.order), mustHashOrder(t, decoded),
				"decoding must preserve the canonical hash")
		})
	}
}

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	limit := fullLimitOrder(t)
	payload, err := EncodeOrder(limit)
	require.NoError(t, err)

	t.Run("unknown type tag", func(t *testing.T) {
		_, err := DecodeOrder(types.OrderType(0x99), payload)
		assert.Error(t, err)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		extended := append(append([]byte(nil), payload...), 0x00)
		_, err := DecodeOrder(types.OrderTypeLimit, extended)
		assert.ErrorContains(t, err, "trailing")
	})

	t.Run("every truncation fails", func(t *testing.T) {
		for i := 0; i < len(payload); i++ {
			_, err := DecodeOrder(types.OrderTypeLimit, payload[:i])
			assert.Errorf(t, err, "truncation to %d bytes must not decode", i)
		}
	})

	t.Run("oversized output count", func(t *testing.T) {
		// Legs are 53 and 54 bytes for this fixture (amounts of 1 and 2
		// bytes); the count sits just before them.
		doctored := append([]byte(nil), payload...)
		countOffset := len(doctored) - 53 - 54 - 4
		binary.LittleEndian.PutUint32(doctored[countOffset:], 65)
		_, err := DecodeOrder(types.OrderTypeLimit, doctored)
		assert.ErrorContains(t, err, "exceeds maximum")
	})

	t.Run("invalid cosigner flag", func(t *testing.T) {
		dutch := fullDutchOrder(t)
		dutch.CosignerData = nil
		bare, err := EncodeOrder(dutch)
		require.NoError(t, err)

		doctored := append([]byte(nil), bare...)
		doctored[len(doctored)-1] = 0x02
		_, err = DecodeOrder(types.OrderTypeDutch, doctored)
		assert.ErrorContains(t, err, "cosigner data flag")
	})
}

func TestEncodeRejectsOutOfRangeOrders(t *testing.T) {
	t.Run("too many outputs", func(t *testing.T) {
		o := fullLimitOrder(t)
		leg := o.Outputs[0]
		o.Outputs = make([]types.OutputToken, maxOutputs+1)
		for i := range o.Outputs {
			o.Outputs[i] = leg
		}
		_, err := EncodeOrder(o)
		assert.ErrorContains(t, err, "exceeds maximum")
	})

	t.Run("negative amount", func(t *testing.T) {
		o := fullLimitOrder(t)
		o.Input.Amount = big.NewInt(-1)
		_, err := EncodeOrder(o)
		assert.ErrorContains(t, err, "negative")
	})

	t.Run("oversized hook payload", func(t *testing.T) {
		o := fullLimitOrder(t)
		o.Info.PostHookData = make([]byte, maxFieldBytes+1)
		_, err := EncodeOrder(o)
		assert.ErrorContains(t, err, "exceeds maximum")
	})
}

// ═══════════════════════════════════════════════════════════════
// HASHING
// ═══════════════════════════════════════════════════════════════

func TestHashIgnoresCosignerData(t *testing.T) {
	signed := fullDutchOrder(t)
	signed.CosignerData = nil
	cosigned := fullDutchOrder(t)

	assert.Equal(t, mustHashOrder(t, signed), mustHashOrder(t, cosigned),
		"cosigner data arrives after signing and must not move the hash")

	reassigned := fullDutchOrder(t)
	reassigned.Cosigner = testAddr(t, "0x9900000000000000000000000000000000000001")
	assert.NotEqual(t, mustHashOrder(t, cosigned), mustHashOrder(t, reassigned),
		"the cosigner identity itself is a signed field")
}

func TestHashCommitsToSignedFields(t *testing.T) {
	base := mustHashOrder(t, fullLimitOrder(t))

	tests := []struct {
		name   string
		mutate func(o *types.LimitOrder)
	}{
		{"nonce", func(o *types.LimitOrder) { o.Info.Nonce = big.NewInt(43) }},
		{"deadline", func(o *types.LimitOrder) { o.Info.Deadline = 7201 }},
		{"input amount", func(o *types.LimitOrder) { o.Input.Amount = big.NewInt(101) }},
		{"output recipient", func(o *types.LimitOrder) {
			o.Outputs[0].Recipient = testAddr(t, "0xbb00000000000000000000000000000000000099")
		}},
		{"output chain", func(o *types.LimitOrder) { o.Outputs[1].ChainID = 138 }},
		{"validation data", func(o *types.LimitOrder) { o.Info.ValidationData = []byte{0xde, 0xad} }},
		{"output order", func(o *types.LimitOrder) {
			o.Outputs[0], o.Outputs[1] = o.Outputs[1], o.Outputs[0]
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := fullLimitOrder(t)
			tt.mutate(o)
			assert.NotEqual(t, base, mustHashOrder(t, o))
		})
	}
}

func TestHashDistinguishesVariants(t *testing.T) {
	// A dutch order whose legs match a limit order field for field still
	// hashes differently: the typehash separates the variants.
	limit := fullLimitOrder(t)
	dutch := &types.DutchOrder{
		Info:           limit.Info,
		DecayStartTime: 1000,
		DecayEndTime:   1000,
		Input: types.DutchInput{
			Token:       limit.Input.Token,
			StartAmount: limit.Input.Amount,
			EndAmount:   limit.Input.Amount,
			MaxAmount:   limit.Input.MaxAmount,
		},
		Outputs: []types.DutchOutput{{
			Token:       limit.Outputs[0].Token,
			StartAmount: limit.Outputs[0].Amount,
			EndAmount:   limit.Outputs[0].Amount,
			Recipient:   limit.Outputs[0].Recipient,
			ChainID:     limit.Outputs[0].ChainID,
		}},
	}
	assert.NotEqual(t, mustHashOrder(t, limit), mustHashOrder(t, dutch))
}

// ═══════════════════════════════════════════════════════════════
// COSIGNER PAYLOAD
// ═══════════════════════════════════════════════════════════════

func TestCosignerPayloadLayout(t *testing.T) {
	cd := &types.CosignerData{
		TargetBound:     0x0102,
		InputOverride:   big.NewInt(0x5a),
		OutputOverrides: []*big.Int{nil, big.NewInt(300)},
		Signature:       bytes.Repeat([]byte{0x77}, 65),
	}

	want := []byte{
		0x02, 0x01, 0, 0, 0, 0, 0, 0, // target bound, little-endian
		1, 0, 0, 0, 0x5a, // input override magnitude
		2, 0, 0, 0, // override count
		0, 0, 0, 0, // leg 0: empty magnitude, no override
		2, 0, 0, 0, 0x01, 0x2c, // leg 1: 300 big-endian
	}
	assert.Equal(t, want, EncodeCosignerPayload(cd))
	assert.Empty(t, EncodeCosignerPayload(nil))
}

func TestCosignerDigestExcludesSignature(t *testing.T) {
	orderHash := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

	unsigned := &types.CosignerData{TargetBound: 900}
	signed := &types.CosignerData{TargetBound: 900, Signature: bytes.Repeat([]byte{0x01}, 65)}
	assert.Equal(t, CosignerDigest(orderHash, unsigned), CosignerDigest(orderHash, signed))

	retargeted := &types.CosignerData{TargetBound: 901}
	assert.NotEqual(t, CosignerDigest(orderHash, unsigned), CosignerDigest(orderHash, retargeted))

	assert.Equal(t, crypto.Keccak256Hash(orderHash.Bytes()), CosignerDigest(orderHash, nil),
		"nil data leaves only the order hash under the digest")
}

// ═══════════════════════════════════════════════════════════════
// SIGNING DOMAIN
// ═══════════════════════════════════════════════════════════════

func TestDomainSeparator(t *testing.T) {
	base := Domain{Name: "DriftSwap", Version: "1", ChainID: 1, Reactor: "0xaa00000000000000000000000000000000000001"}
	sep, err := base.Separator()
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, sep)

	again, err := base.Separator()
	require.NoError(t, err)
	assert.Equal(t, sep, again)

	otherChain := base
	otherChain.ChainID = 137
	chainSep, err := otherChain.Separator()
	require.NoError(t, err)
	assert.NotEqual(t, sep, chainSep)

	otherReactor := base
	otherReactor.Reactor = "0xaa00000000000000000000000000000000000002"
	reactorSep, err := otherReactor.Separator()
	require.NoError(t, err)
	assert.NotEqual(t, sep, reactorSep)
}

func TestSigningDigestBindsSeparator(t *testing.T) {
	orderHash := common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333333")
	sepA := common.HexToHash("0x0000000000000000000000000000000000000000000000000000000000000001")
	sepB := common.HexToHash("0x0000000000000000000000000000000000000000000000000000000000000002")

	assert.NotEqual(t, SigningDigest(sepA, orderHash), SigningDigest(sepB, orderHash),
		"the same order must sign differently under different deployments")
	assert.Equal(t, SigningDigest(sepA, orderHash), SigningDigest(sepA, orderHash))
}
