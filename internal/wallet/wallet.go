package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress accepts 0x-prefixed 20-byte hex addresses in any case.
func IsValidAddress(address string) bool {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return false
	}
	return common.IsHexAddress(address)
}

// Normalize returns the EIP-55 checksummed form of a valid address and the
// trimmed input otherwise.
func Normalize(address string) string {
	address = strings.TrimSpace(address)
	if !IsValidAddress(address) {
		return address
	}
	return common.HexToAddress(address).Hex()
}

// Shorten renders 0x1234...abcd for lists and headers.
func Shorten(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

func SameAddress(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
