package cosign

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftswap/engine-go/core/util"
)

func TestVerifyRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := util.NewEthereumAddress(crypto.PubkeyToAddress(key.PublicKey))

	digest := crypto.Keccak256Hash([]byte("auction override payload"))
	sig, err := Sign(key, digest)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	assert.NoError(t, Verify(signer, digest, sig))
}

func TestVerifyAcceptsBothRecoveryIdConventions(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := util.NewEthereumAddress(crypto.PubkeyToAddress(key.PublicKey))

	digest := crypto.Keccak256Hash([]byte("payload"))
	sig, err := Sign(key, digest)
	require.NoError(t, err)

	assert.NoError(t, Verify(signer, digest, sig), "27/28 form should verify")

	raw := make([]byte, len(sig))
	copy(raw, sig)
	raw[64] -= 27
	assert.NoError(t, Verify(signer, digest, raw), "0/1 form should verify")
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("payload"))
	sig, err := Sign(key, digest)
	require.NoError(t, err)

	expected := util.NewEthereumAddress(crypto.PubkeyToAddress(other.PublicKey))
	err = Verify(expected, digest, sig)
	assert.ErrorIs(t, err, ErrInvalidCosignature)
}

func TestVerifyRejectsTamperedDigest(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := util.NewEthereumAddress(crypto.PubkeyToAddress(key.PublicKey))

	sig, err := Sign(key, crypto.Keccak256Hash([]byte("signed payload")))
	require.NoError(t, err)

	err = Verify(signer, crypto.Keccak256Hash([]byte("different payload")), sig)
	assert.ErrorIs(t, err, ErrInvalidCosignature)
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := util.NewEthereumAddress(crypto.PubkeyToAddress(key.PublicKey))
	digest := crypto.Keccak256Hash([]byte("payload"))

	err = Verify(signer, digest, []byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidCosignature)
}

func TestVerifyZeroCosignerAlwaysPasses(t *testing.T) {
	digest := crypto.Keccak256Hash([]byte("payload"))
	assert.NoError(t, Verify(util.EthereumAddress{}, digest, nil))
	assert.NoError(t, Verify(util.EthereumAddress{}, digest, []byte{0xde, 0xad}))
}
