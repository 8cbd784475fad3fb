package entity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Zilliqa/gozilliqa-sdk/bech32"
)

// Address is a lowercase base16 account or contract address with the 0x prefix.
type Address string

const NullAddress Address = "0x0000000000000000000000000000000000000000"

var (
	ErrInvalidAddress = errors.New("invalid address")
)

// ParseAddress accepts base16 (with or without 0x) and bech32 (zil1...) addresses.
func ParseAddress(addr string) (Address, error) {
	addr = strings.TrimSpace(addr)

	if strings.HasPrefix(strings.ToLower(addr), "zil1") {
		base16, err := bech32.FromBech32Addr(addr)
		if err != nil {
			return NullAddress, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
		}
		addr = base16
	}

	addr = strings.TrimPrefix(strings.ToLower(addr), "0x")
	if len(addr) != 40 {
		return NullAddress, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	if _, err := hex.DecodeString(addr); err != nil {
		return NullAddress, fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}

	return Address("0x" + addr), nil
}

func MustParseAddress(addr string) Address {
	a, err := ParseAddress(addr)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return string(a)
}

func (a Address) IsNull() bool {
	return a == "" || a == NullAddress
}

// Bech32 returns the zil1 form of the address, or an empty string when it cannot be encoded.
func (a Address) Bech32() string {
	b, err := bech32.ToBech32Address(strings.TrimPrefix(string(a), "0x"))
	if err != nil {
		return ""
	}
	return b
}
