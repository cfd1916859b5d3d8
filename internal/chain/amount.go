package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for amounts that are not positive decimals
// representable in the token's smallest unit.
var ErrInvalidAmount = errors.New("invalid amount")

const (
	// maxAmountLen bounds the raw input; uint256 has 78 decimal digits.
	maxAmountLen = 128
	// maxAmountExponent bounds exponent notation before the value is expanded.
	maxAmountExponent = 96
	// maxAmountBits is the width of a uint256 contract argument.
	maxAmountBits = 256
)

// ToBaseUnits converts a human decimal amount ("1.5") to the token's smallest
// unit.
func ToBaseUnits(amount string, decimals int32) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if len(s) > maxAmountLen {
		return nil, fmt.Errorf("%w: longer than %d characters", ErrInvalidAmount, maxAmountLen)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, amount)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, amount)
	}

	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return nil, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, amount)
	}

	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, amount, decimals)
	}
	wei := shifted.BigInt()
	if wei.BitLen() > maxAmountBits {
		return nil, fmt.Errorf("%w: %q does not fit in uint256", ErrInvalidAmount, amount)
	}
	return wei, nil
}

// FromBaseUnits converts a smallest-unit value to a float in whole tokens.
func FromBaseUnits(v *big.Int, decimals int32) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, -decimals).InexactFloat64()
}
