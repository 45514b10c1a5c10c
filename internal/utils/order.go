package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// CalculateMaxQuantity returns the largest quantity whose cost at price fits in balance.
func CalculateMaxQuantity(balance float64, price float64) float64 {
	if !(price > 0) || !(balance > 0) || math.IsInf(price, 0) || math.IsInf(balance, 0) {
		return 0
	}

	return decimal.NewFromFloat(balance).Div(decimal.NewFromFloat(price)).InexactFloat64()
}

// RoundToDecimalPrecision truncates quantity to decimalPrecision places so the rounded order
// never costs more than the unrounded one.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return 0
	}

	return decimal.NewFromFloat(quantity).Truncate(int32(decimalPrecision)).InexactFloat64()
}

// CalculateOrderQuantityByPercentage sizes an order to spend percentage (0..1) of balance.
func CalculateOrderQuantityByPercentage(balance float64, price float64, percentage float64) float64 {
	if !(percentage > 0) {
		return 0
	}

	return CalculateMaxQuantity(balance*min(percentage, 1), price)
}
