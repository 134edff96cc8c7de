package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/spacefoot/pricer/internal/pricing"
)

type settings struct {
	FeeRate            float64                `json:"fee_rate"`
	ShippingCost       float64                `json:"shipping_cost"`
	FeeOnShipping      bool                   `json:"fee_on_shipping"`
	ShippingScale      []pricing.ShippingTier `json:"shipping_scale"`
	CompetitorPolicy   string                 `json:"competitor_policy"`
	NoCompetitorPolicy string                 `json:"no_competitor_policy"`
	AlignMarkup        *float64               `json:"align_markup"`
	TargetMarkup       *float64               `json:"target_markup"`
	MinMarkup          *float64               `json:"min_markup"`
	RaiseBasePrice     bool                   `json:"raise_base_price"`
	DropRate           float64                `json:"drop_rate"`
	CompetitorGap      float64                `json:"competitor_gap"`
}

// Fingerprint hashes every setting of a policy. Equal settings give equal
// fingerprints whatever process or revision built them.
func Fingerprint(p *pricing.Policy) string {
	if p == nil {
		return ""
	}
	data, err := json.Marshal(settings{
		FeeRate:            p.FeeRate(),
		ShippingCost:       p.ShippingCost(),
		FeeOnShipping:      p.FeeOnShipping(),
		ShippingScale:      p.ShippingScale(),
		CompetitorPolicy:   p.CompetitorPolicy().String(),
		NoCompetitorPolicy: p.NoCompetitorPolicy().String(),
		AlignMarkup:        optional(p.AlignMarkup()),
		TargetMarkup:       optional(p.TargetMarkup()),
		MinMarkup:          optional(p.MinMarkup()),
		RaiseBasePrice:     p.RaiseBasePriceIfBelowMinMarkup(),
		DropRate:           p.DropRate(),
		CompetitorGap:      p.CompetitorGap(),
	})
	if err != nil {
		// Only non finite floats fail to encode and options reject those.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
