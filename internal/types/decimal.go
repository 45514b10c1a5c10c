package types

import (
	"math"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()

	return f
}

// mul multiplies in decimal space. decimal panics on NaN/Inf, so those fall back to float math.
func mul(a, b float64) float64 {
	if !finite(a, b) {
		return a * b
	}

	return toFloat(decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)))
}

// diffMul returns (a - b) * qty.
func diffMul(a, b, qty float64) float64 {
	if !finite(a, b, qty) {
		return (a - b) * qty
	}

	return toFloat(decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Mul(decimal.NewFromFloat(qty)))
}

// shiftPercent returns price * (1 + sign*percent/100).
func shiftPercent(price, percent float64, sign int64) float64 {
	if !finite(price, percent) {
		return price * (1 + float64(sign)*percent/100)
	}

	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(percent).Div(hundred).Mul(decimal.NewFromInt(sign)))

	return toFloat(decimal.NewFromFloat(price).Mul(factor))
}

// add returns a + b.
func add(a, b float64) float64 {
	if !finite(a, b) {
		return a + b
	}

	return toFloat(decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)))
}
