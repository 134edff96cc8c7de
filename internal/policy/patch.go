package policy

import (
	"fmt"

	"github.com/spacefoot/pricer/internal/pricing"
)

// Patch is a partial policy update. Nil fields keep the current setting.
// Unset lists markups to clear: align_markup, target_markup or min_markup.
type Patch struct {
	FeeRate                        *float64 `json:"fee_rate,omitempty"`
	ShippingCost                   *float64 `json:"shipping_cost,omitempty"`
	FeeOnShipping                  *bool    `json:"fee_on_shipping,omitempty"`
	ShippingScale                  *[]Tier  `json:"shipping_scale,omitempty"`
	CompetitorPolicy               *string  `json:"competitor_policy,omitempty"`
	NoCompetitorPolicy             *string  `json:"no_competitor_policy,omitempty"`
	AlignMarkup                    *float64 `json:"align_markup,omitempty"`
	TargetMarkup                   *float64 `json:"target_markup,omitempty"`
	MinMarkup                      *float64 `json:"min_markup,omitempty"`
	RaiseBasePriceIfBelowMinMarkup *bool    `json:"raise_base_price_if_below_min_markup,omitempty"`
	DropRate                       *float64 `json:"drop_rate,omitempty"`
	CompetitorGap                  *float64 `json:"competitor_gap,omitempty"`
	Unset                          []string `json:"unset,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.FeeRate == nil && p.ShippingCost == nil && p.FeeOnShipping == nil &&
		p.ShippingScale == nil && p.CompetitorPolicy == nil && p.NoCompetitorPolicy == nil &&
		p.AlignMarkup == nil && p.TargetMarkup == nil && p.MinMarkup == nil &&
		p.RaiseBasePriceIfBelowMinMarkup == nil && p.DropRate == nil && p.CompetitorGap == nil &&
		len(p.Unset) == 0
}

// Options converts the patch into policy options. Clearing options run first
// so a patch can unset and set different markups at once.
func (p Patch) Options() ([]pricing.Option, error) {
	var opts []pricing.Option
	for _, field := range p.Unset {
		switch field {
		case "align_markup":
			opts = append(opts, pricing.WithoutAlignMarkup())
		case "target_markup":
			opts = append(opts, pricing.WithoutTargetMarkup())
		case "min_markup":
			opts = append(opts, pricing.WithoutMinMarkup())
		default:
			return nil, &pricing.ConfigError{Field: "unset", Reason: fmt.Sprintf("field %q cannot be unset", field)}
		}
	}

	if p.FeeRate != nil {
		opts = append(opts, pricing.WithFeeRate(*p.FeeRate))
	}
	if p.ShippingCost != nil {
		opts = append(opts, pricing.WithShippingCost(*p.ShippingCost))
	}
	if p.FeeOnShipping != nil {
		opts = append(opts, pricing.WithFeeOnShipping(*p.FeeOnShipping))
	}
	if p.ShippingScale != nil {
		opts = append(opts, pricing.WithShippingScale(tiers(*p.ShippingScale)...))
	}
	if p.CompetitorPolicy != nil {
		cp, err := pricing.ParseCompetitorPolicy(*p.CompetitorPolicy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pricing.WithCompetitorPolicy(cp))
	}
	if p.NoCompetitorPolicy != nil {
		ncp, err := pricing.ParseNoCompetitorPolicy(*p.NoCompetitorPolicy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pricing.WithNoCompetitorPolicy(ncp))
	}
	if p.AlignMarkup != nil {
		opts = append(opts, pricing.WithAlignMarkup(*p.AlignMarkup))
	}
	if p.TargetMarkup != nil {
		opts = append(opts, pricing.WithTargetMarkup(*p.TargetMarkup))
	}
	if p.MinMarkup != nil {
		opts = append(opts, pricing.WithMinMarkup(*p.MinMarkup))
	}
	if p.RaiseBasePriceIfBelowMinMarkup != nil {
		opts = append(opts, pricing.WithRaiseBasePriceIfBelowMinMarkup(*p.RaiseBasePriceIfBelowMinMarkup))
	}
	if p.DropRate != nil {
		opts = append(opts, pricing.WithDropRate(*p.DropRate))
	}
	if p.CompetitorGap != nil {
		opts = append(opts, pricing.WithCompetitorGap(*p.CompetitorGap))
	}
	return opts, nil
}
