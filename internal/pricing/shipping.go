package pricing

import (
	"fmt"
	"math"
)

// ShippingTier is one step of a shipping scale. The tier applies while the
// selling price including shipping stays below UpperBound; a nil UpperBound
// matches every price and must close the scale.
type ShippingTier struct {
	UpperBound *float64 `json:"upper_bound,omitempty"`
	Amount     float64  `json:"amount"`
}

// Tier builds a bounded shipping tier.
func Tier(upperBound, amount float64) ShippingTier {
	return ShippingTier{UpperBound: &upperBound, Amount: amount}
}

// CatchAll builds the terminal shipping tier.
func CatchAll(amount float64) ShippingTier {
	return ShippingTier{Amount: amount}
}

func cloneScale(tiers []ShippingTier) []ShippingTier {
	if len(tiers) == 0 {
		return nil
	}
	out := make([]ShippingTier, len(tiers))
	for i, tier := range tiers {
		out[i].Amount = tier.Amount
		if tier.UpperBound != nil {
			bound := *tier.UpperBound
			out[i].UpperBound = &bound
		}
	}
	return out
}

func validateScale(tiers []ShippingTier) error {
	for i, tier := range tiers {
		if math.IsNaN(tier.Amount) {
			return &ConfigError{Field: "shipping_scale", Reason: fmt.Sprintf("tier %d has no amount", i)}
		}
		if tier.UpperBound == nil && i != len(tiers)-1 {
			return &ConfigError{Field: "shipping_scale", Reason: fmt.Sprintf("tier %d has no upper bound but is not the last tier", i)}
		}
	}
	return nil
}

// shippingPrice returns the shipping amount to add to a selling price that
// already includes fees. Each tier charges the real cost minus the amount the
// customer pays; without fees on shipping the fee is netted back out.
func (p *Policy) shippingPrice(sellingPrice float64) (float64, error) {
	if len(p.shippingScale) > 0 && Cents(p.shippingCost) == 0 {
		return 0, ErrShippingCostRequired
	}

	for _, tier := range p.shippingScale {
		shipping := p.shippingCost*p.feeFactor - tier.Amount
		if !p.feeOnShipping {
			shipping /= p.feeFactor
		}
		if tier.UpperBound == nil {
			return shipping, nil
		}
		if Round(sellingPrice+shipping) < *tier.UpperBound {
			return shipping, nil
		}
	}

	return 0, nil
}
