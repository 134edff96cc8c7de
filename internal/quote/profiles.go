package quote

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spacefoot/pricer/internal/common"
	"github.com/spacefoot/pricer/internal/policy"
	"github.com/spacefoot/pricer/internal/pricing"
)

// ProfileSummary lists a profile without its settings.
type ProfileSummary struct {
	Name      string    `json:"name"`
	Revision  uint64    `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
	Default   bool      `json:"default"`
}

// PolicyView exposes every setting of a profile.
type PolicyView struct {
	Profile                        string                 `json:"profile"`
	Revision                       uint64                 `json:"revision"`
	UpdatedAt                      time.Time              `json:"updated_at"`
	FeeRate                        float64                `json:"fee_rate"`
	ShippingCost                   float64                `json:"shipping_cost"`
	FeeOnShipping                  bool                   `json:"fee_on_shipping"`
	ShippingScale                  []pricing.ShippingTier `json:"shipping_scale"`
	CompetitorPolicy               string                 `json:"competitor_policy"`
	NoCompetitorPolicy             string                 `json:"no_competitor_policy"`
	AlignMarkup                    *float64               `json:"align_markup"`
	TargetMarkup                   *float64               `json:"target_markup"`
	MinMarkup                      *float64               `json:"min_markup"`
	RaiseBasePriceIfBelowMinMarkup bool                   `json:"raise_base_price_if_below_min_markup"`
	DropRate                       float64                `json:"drop_rate"`
	CompetitorGap                  float64                `json:"competitor_gap"`
}

// NewPolicyView renders a registry entry.
func NewPolicyView(e policy.Entry) PolicyView {
	p := e.Policy
	scale := p.ShippingScale()
	if scale == nil {
		scale = []pricing.ShippingTier{}
	}
	return PolicyView{
		Profile:                        e.Name,
		Revision:                       e.Revision,
		UpdatedAt:                      e.UpdatedAt,
		FeeRate:                        p.FeeRate(),
		ShippingCost:                   p.ShippingCost(),
		FeeOnShipping:                  p.FeeOnShipping(),
		ShippingScale:                  scale,
		CompetitorPolicy:               p.CompetitorPolicy().String(),
		NoCompetitorPolicy:             p.NoCompetitorPolicy().String(),
		AlignMarkup:                    optional(p.AlignMarkup()),
		TargetMarkup:                   optional(p.TargetMarkup()),
		MinMarkup:                      optional(p.MinMarkup()),
		RaiseBasePriceIfBelowMinMarkup: p.RaiseBasePriceIfBelowMinMarkup(),
		DropRate:                       p.DropRate(),
		CompetitorGap:                  p.CompetitorGap(),
	}
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// Profiles lists every registered profile.
func (s *Service) Profiles(_ context.Context) []ProfileSummary {
	entries := s.registry.Entries()
	out := make([]ProfileSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, ProfileSummary{
			Name:      e.Name,
			Revision:  e.Revision,
			UpdatedAt: e.UpdatedAt,
			Default:   e.Name == s.defaultProfile,
		})
	}
	return out
}

// Profile returns the settings of one profile.
func (s *Service) Profile(_ context.Context, name string) (PolicyView, error) {
	entry, err := s.registry.Get(name)
	if err != nil {
		return PolicyView{}, unknownProfile(name, err)
	}
	return NewPolicyView(entry), nil
}

// UpdateProfile applies a partial update to a profile. Cached quotes of the
// previous revision stop matching once the revision moves.
func (s *Service) UpdateProfile(ctx context.Context, name string, patch policy.Patch) (PolicyView, error) {
	_, span := s.tracer.Start(ctx, "quote.UpdateProfile")
	defer span.End()

	if patch.Empty() {
		return PolicyView{}, common.NewAppError("BAD_REQUEST", "empty policy update", http.StatusBadRequest, nil)
	}
	entry, err := s.registry.Update(name, patch)
	if err != nil {
		var cfgErr *pricing.ConfigError
		switch {
		case errors.Is(err, ErrUnknownProfile):
			s.metrics.ObservePolicyUpdate(name, "unknown")
			return PolicyView{}, unknownProfile(name, err)
		case errors.As(err, &cfgErr):
			s.metrics.ObservePolicyUpdate(name, "rejected")
			return PolicyView{}, misconfigured(err, cfgErr)
		default:
			s.metrics.ObservePolicyUpdate(name, "error")
			return PolicyView{}, common.NewAppError("INTERNAL", "policy update failed", http.StatusInternalServerError, err)
		}
	}
	s.metrics.ObservePolicyUpdate(name, "applied")
	s.logger.Info().Str("profile", name).Uint64("revision", entry.Revision).Msg("policy updated")
	return NewPolicyView(entry), nil
}
