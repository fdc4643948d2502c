package util

import (
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// EthereumAddress wraps a 20-byte address so that every address entering the
// engine has been validated exactly once, at construction. The zero value is
// the zero address and doubles as the "unset" sentinel for optional fields
// (cosigner, validation contract, challenger).
type EthereumAddress struct {
	address common.Address
}

// NewEthereumAddressFromString parses a 0x-prefixed hex address.
func NewEthereumAddressFromString(s string) (EthereumAddress, error) {
	if !common.IsHexAddress(s) {
		return EthereumAddress{}, errors.Errorf("invalid ethereum address: %s", s)
	}
	return EthereumAddress{address: common.HexToAddress(s)}, nil
}

// NewEthereumAddressFromBytes builds an address from exactly 20 bytes.
func NewEthereumAddressFromBytes(b []byte) (EthereumAddress, error) {
	if len(b) != common.AddressLength {
		return EthereumAddress{}, errors.Errorf("invalid address length: expected %d bytes, got %d", common.AddressLength, len(b))
	}
	return EthereumAddress{address: common.BytesToAddress(b)}, nil
}

// NewEthereumAddress wraps an already-validated go-ethereum address.
func NewEthereumAddress(addr common.Address) EthereumAddress {
	return EthereumAddress{address: addr}
}

// Address returns the lowercase hex representation, 0x-prefixed.
func (e EthereumAddress) Address() string {
	return strings.ToLower(e.address.Hex())
}

// Checksum returns the EIP-55 checksummed representation.
func (e EthereumAddress) Checksum() string {
	return e.address.Hex()
}

// Bytes returns the raw 20-byte form.
func (e EthereumAddress) Bytes() []byte {
	return e.address.Bytes()
}

// Common unwraps to the go-ethereum address type for hashing and ABI packing.
func (e EthereumAddress) Common() common.Address {
	return e.address
}

// IsZero reports whether this is the zero/unset address.
func (e EthereumAddress) IsZero() bool {
	return e.address == (common.Address{})
}

func (e EthereumAddress) String() string {
	return e.Address()
}

func (e EthereumAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Address())
}

func (e *EthereumAddress) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	addr, err := NewEthereumAddressFromString(s)
	if err != nil {
		return err
	}
	*e = addr
	return nil
}
