package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress accepts a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
