// Package fixedpoint decodes mantissa/exponent prices into exact decimal strings.
//
// Providers send prices as an integer scaled by a power of ten so that no
// binary rounding happens on the wire. Everything here stays on big.Int and
// shopspring/decimal; a float64 is never involved.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxExponent bounds |exponent|. Real feeds use single or double digits; a
// larger value would only make Format allocate 10^exponent.
const MaxExponent = 1024

var (
	ErrInvalidMantissa    = errors.New("invalid mantissa")
	ErrExponentOutOfRange = errors.New("exponent out of range")
)

// Decode renders mantissa * 10^exponent.
//
// A non-negative exponent yields an integer string. A negative exponent puts
// the decimal point |exponent| digits from the right of the mantissa, padding
// with zeros so that one digit stays in front of the point:
//
//	Decode("12345", -2) == "123.45"
//	Decode("5", -3)     == "0.005"
//	Decode("-5", -3)    == "-0.005"
//	Decode("12", 3)     == "12000"
func Decode(mantissa string, exponent int32) (string, error) {
	d, err := Parse(mantissa, exponent)
	if err != nil {
		return "", err
	}
	return Format(d, exponent), nil
}

// Parse builds the exact decimal value.
func Parse(mantissa string, exponent int32) (decimal.Decimal, error) {
	if exponent > MaxExponent || exponent < -MaxExponent {
		return decimal.Decimal{}, fmt.Errorf("%w: %d", ErrExponentOutOfRange, exponent)
	}
	m, ok := new(big.Int).SetString(strings.TrimSpace(mantissa), 10)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidMantissa, mantissa)
	}
	return decimal.NewFromBigInt(m, exponent), nil
}

// Format keeps exactly |exponent| fractional digits, trailing zeros included.
func Format(d decimal.Decimal, exponent int32) string {
	if exponent >= 0 {
		return d.BigInt().String()
	}
	return d.StringFixed(-exponent)
}
