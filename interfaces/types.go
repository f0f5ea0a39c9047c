// Package interfaces defines the core types, sentinel errors and collaborator
// contracts shared by the canary registry components.
package interfaces

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the size in bytes of principals and object identifiers.
const AddressLength = 32

// Address identifies either a principal (ledger account) or a ledger object.
// Both live in the same 32-byte space.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address. It never identifies a live object.
var ZeroAddress Address

// NewAddressFromBytes creates an address from a 32-byte slice.
func NewAddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, errors.New("invalid address length: must be 32 bytes")
	}

	var res Address
	copy(res[:], b)
	return res, nil
}

// NewAddressFromHex parses a hex address. The 0x prefix is optional and short
// forms such as 0x6 are left-padded with zeroes.
func NewAddressFromHex(s string) (Address, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(clean) == 0 || len(clean) > 2*AddressLength {
		return Address{}, fmt.Errorf("invalid address %q: hex string must be 1-64 characters", s)
	}
	if len(clean)%2 == 1 {
		clean = "0" + clean
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var res Address
	copy(res[AddressLength-len(raw):], raw)
	return res, nil
}

// MustAddress is NewAddressFromHex for constants and tests.
func MustAddress(s string) Address {
	addr, err := NewAddressFromHex(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// String returns the 0x-prefixed hex representation.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns the raw 32 bytes.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText implements encoding.TextMarshaler so addresses can be JSON
// values and map keys.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := NewAddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Locator is an opaque content identifier resolved by an external blob
// retrieval service. The registry never interprets it.
type Locator string

// String returns the locator text.
func (l Locator) String() string {
	return string(l)
}
