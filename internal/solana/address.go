package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned for strings that are not valid Solana addresses.
var ErrInvalidAddress = errors.New("invalid address")

const addressLen = 32

// DecodeAddress decodes a base58 address into its 32 raw bytes.
func DecodeAddress(addr string) ([]byte, error) {
	if addr == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}
	if len(raw) != addressLen {
		return nil, fmt.Errorf("%w: %s decodes to %d bytes", ErrInvalidAddress, addr, len(raw))
	}
	return raw, nil
}

// ValidateMint checks that mint is a base58 encoded 32 byte address.
func ValidateMint(mint string) error {
	_, err := DecodeAddress(mint)
	return err
}

// ValidateWallet checks that addr is a 32 byte address on the ed25519 curve,
// which every keypair-owned wallet is.
func ValidateWallet(addr string) error {
	raw, err := DecodeAddress(addr)
	if err != nil {
		return err
	}
	if !isOnCurve(raw) {
		return fmt.Errorf("%w: %s is not an ed25519 public key", ErrInvalidAddress, addr)
	}
	return nil
}

func isOnCurve(point []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
