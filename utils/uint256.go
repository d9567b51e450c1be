package utils

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Uint256FromString parses a decimal or 0x-prefixed hex amount.
func Uint256FromString(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		v, err := uint256.FromHex(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hex amount %q: %w", s, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal amount %q: %w", s, err)
	}
	return v, nil
}

func Uint256ToString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
