package pricing

// RateFactor converts a selling markup percentage into the factor applied to a
// purchase price: 100 / (100 - rate). Negative rates are discounts.
func RateFactor(rate float64) float64 {
	return 100 / (100 - rate)
}

// DropFactor converts the allowed drop percentage into the factor applied to a
// base price when no purchase price is known.
func DropFactor(rate float64) float64 {
	return (100 - rate) / 100
}
