package token

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ParseAmount converts a whole-token decimal string into base units.
func ParseAmount(s string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q: must be >= 0", s)
	}
	base := d.Shift(int32(decimals))
	if !base.IsInteger() {
		return nil, fmt.Errorf("amount %q: more than %d decimal places", s, decimals)
	}
	out, overflow := uint256.FromBig(base.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount %q: overflows 256 bits", s)
	}
	return out, nil
}

// FormatAmount renders base units as a whole-token decimal string.
func FormatAmount(amount *uint256.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount.ToBig(), -int32(decimals)).String()
}

// ParseAmounts parses a list with ParseAmount.
func ParseAmounts(list []string, decimals uint8) ([]uint256.Int, error) {
	out := make([]uint256.Int, len(list))
	for i, s := range list {
		v, err := ParseAmount(s, decimals)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = *v
	}
	return out, nil
}
