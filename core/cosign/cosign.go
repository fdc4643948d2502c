// Package cosign verifies detached secp256k1 signatures produced by an
// order's declared cosigner over a digest binding the order hash to the
// override payload. Verification is stateless.
package cosign

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/driftswap/engine-go/core/util"
)

// ErrInvalidCosignature is returned when a cosignature is malformed or does
// not recover to the order's declared cosigner.
var ErrInvalidCosignature = errors.New("invalid cosignature")

const signatureLength = 65

// Verify checks that signature recovers to expected over digest. A zero
// expected address disables cosigning for the order and always passes.
// Recovery ids of both 0/1 and 27/28 are accepted.
func Verify(expected util.EthereumAddress, digest common.Hash, signature []byte) error {
	if expected.IsZero() {
		return nil
	}

	recovered, err := Recover(digest, signature)
	if err != nil {
		return err
	}
	if recovered.Common() != expected.Common() {
		return errors.Wrapf(ErrInvalidCosignature, "recovered %s, expected %s", recovered.Address(), expected.Address())
	}
	return nil
}

// Recover returns the address whose key produced signature over digest.
func Recover(digest common.Hash, signature []byte) (util.EthereumAddress, error) {
	if len(signature) != signatureLength {
		return util.EthereumAddress{}, errors.Wrapf(ErrInvalidCosignature, "signature must be %d bytes, got %d", signatureLength, len(signature))
	}

	// crypto.SigToPub expects the recovery id in the final byte as 0 or 1.
	sig := make([]byte, signatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return util.EthereumAddress{}, errors.Wrapf(ErrInvalidCosignature, "invalid recovery id %d", signature[64])
	}

	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return util.EthereumAddress{}, errors.Wrap(ErrInvalidCosignature, err.Error())
	}
	return util.NewEthereumAddress(crypto.PubkeyToAddress(*pub)), nil
}

// Sign produces a 65-byte signature over digest with the recovery id in
// Ethereum's 27/28 convention, matching what Verify accepts.
func Sign(key *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign digest")
	}
	sig[64] += 27
	return sig, nil
}
