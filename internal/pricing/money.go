package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds a currency amount to two decimal places, half away from zero.
// Rounding works on the shortest decimal representation of the float so that
// values such as 1.005 round up the way a human reads them.
func Round(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return amount
	}
	v, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return v
}

// Cents converts a currency amount into integer cents.
func Cents(amount float64) int64 {
	scaled := 100 * amount
	if math.IsNaN(scaled) || math.IsInf(scaled, 0) {
		return 0
	}
	return decimal.NewFromFloat(scaled).Round(0).IntPart()
}
