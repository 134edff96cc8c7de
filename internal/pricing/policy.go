package pricing

import (
	"fmt"
	"math"
	"strings"
)

// CompetitorPolicy controls how a competitor price is used.
type CompetitorPolicy int

const (
	// NoAlign ignores competitor prices.
	NoAlign CompetitorPolicy = iota
	// Align aligns on a competitor price, never above the target price.
	Align
	// AlignAlways aligns on a competitor price even when it is above the target price.
	AlignAlways
)

// NoCompetitorPolicy controls pricing when no competitor price is known.
type NoCompetitorPolicy int

const (
	// KeepBasePrice returns the base price unchanged.
	KeepBasePrice NoCompetitorPolicy = iota
	// TargetBelowBasePrice lowers the price to the target price when the base price is higher.
	TargetBelowBasePrice
	// TargetPrice always uses the target price, which may raise the price above the base price.
	TargetPrice
)

var competitorPolicyNames = map[CompetitorPolicy]string{
	NoAlign:     "no_align",
	Align:       "align",
	AlignAlways: "align_always",
}

var noCompetitorPolicyNames = map[NoCompetitorPolicy]string{
	KeepBasePrice:        "base_price",
	TargetBelowBasePrice: "target_below_base_price",
	TargetPrice:          "target_price",
}

// String returns the configuration name of the policy.
func (p CompetitorPolicy) String() string {
	if name, ok := competitorPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("competitor_policy(%d)", int(p))
}

// String returns the configuration name of the policy.
func (p NoCompetitorPolicy) String() string {
	if name, ok := noCompetitorPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("no_competitor_policy(%d)", int(p))
}

// ParseCompetitorPolicy parses a configuration name such as "align_always".
func ParseCompetitorPolicy(value string) (CompetitorPolicy, error) {
	key := normaliseName(value)
	for policy, name := range competitorPolicyNames {
		if name == key {
			return policy, nil
		}
	}
	return 0, &ConfigError{Field: "competitor_policy", Reason: fmt.Sprintf("unknown policy %q", value)}
}

// ParseNoCompetitorPolicy parses a configuration name such as "target_below_base_price".
func ParseNoCompetitorPolicy(value string) (NoCompetitorPolicy, error) {
	key := normaliseName(value)
	for policy, name := range noCompetitorPolicyNames {
		if name == key {
			return policy, nil
		}
	}
	return 0, &ConfigError{Field: "no_competitor_policy", Reason: fmt.Sprintf("unknown policy %q", value)}
}

func normaliseName(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
}

type markup struct {
	rate   float64
	factor float64
}

// Policy is an immutable pricing configuration. Build it with NewPolicy and
// derive variants with With; a *Policy can be shared between goroutines.
type Policy struct {
	feeRate            float64
	feeFactor          float64
	shippingCost       float64
	shippingScale      []ShippingTier
	feeOnShipping      bool
	competitorPolicy   CompetitorPolicy
	noCompetitorPolicy NoCompetitorPolicy
	alignMarkup        *markup
	minMarkup          *markup
	targetMarkup       *markup
	raiseBasePrice     bool
	dropRate           float64
	dropRateFactor     float64
	competitorGap      float64
}

// Option mutates a policy under construction.
type Option func(*Policy) error

// NewPolicy builds a policy from defaults: no fee, no shipping, Align,
// TargetBelowBasePrice, 10% drop rate and a 0.01 competitor gap.
func NewPolicy(opts ...Option) (*Policy, error) {
	p := &Policy{
		feeFactor:          1,
		competitorPolicy:   Align,
		noCompetitorPolicy: TargetBelowBasePrice,
		dropRate:           10,
		dropRateFactor:     DropFactor(10),
		competitorGap:      0.01,
	}
	if err := p.apply(opts); err != nil {
		return nil, err
	}
	return p, nil
}

// With returns a copy of the policy with the options applied. The receiver is
// left untouched.
func (p *Policy) With(opts ...Option) (*Policy, error) {
	clone := *p
	clone.shippingScale = cloneScale(p.shippingScale)
	if err := clone.apply(opts); err != nil {
		return nil, err
	}
	return &clone, nil
}

func (p *Policy) apply(opts []Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(p); err != nil {
			return err
		}
	}
	return nil
}

func newMarkup(field string, rate float64) (*markup, error) {
	if math.IsNaN(rate) || rate >= 100 {
		return nil, invalidRate(field, rate)
	}
	return &markup{rate: rate, factor: RateFactor(rate)}, nil
}

// WithFeeRate sets the marketplace fee percentage taken on the selling price.
func WithFeeRate(rate float64) Option {
	return func(p *Policy) error {
		m, err := newMarkup("fee_rate", rate)
		if err != nil {
			return err
		}
		p.feeRate = m.rate
		p.feeFactor = m.factor
		return nil
	}
}

// WithShippingCost sets the real shipping cost paid by the seller.
func WithShippingCost(amount float64) Option {
	return func(p *Policy) error {
		if math.IsNaN(amount) || amount < 0 {
			return negativeAmount("shipping_cost", amount)
		}
		p.shippingCost = amount
		return nil
	}
}

// WithShippingScale sets the ordered shipping tiers. Only the last tier may
// omit its upper bound.
func WithShippingScale(tiers ...ShippingTier) Option {
	return func(p *Policy) error {
		if err := validateScale(tiers); err != nil {
			return err
		}
		p.shippingScale = cloneScale(tiers)
		return nil
	}
}

// WithFeeOnShipping enables fees on the shipping amount.
func WithFeeOnShipping(enabled bool) Option {
	return func(p *Policy) error {
		p.feeOnShipping = enabled
		return nil
	}
}

// WithCompetitorPolicy sets the competitor alignment policy.
func WithCompetitorPolicy(policy CompetitorPolicy) Option {
	return func(p *Policy) error {
		if _, ok := competitorPolicyNames[policy]; !ok {
			return &ConfigError{Field: "competitor_policy", Reason: fmt.Sprintf("unknown policy %d", int(policy))}
		}
		p.competitorPolicy = policy
		return nil
	}
}

// WithNoCompetitorPolicy sets the policy used when no competitor price is known.
func WithNoCompetitorPolicy(policy NoCompetitorPolicy) Option {
	return func(p *Policy) error {
		if _, ok := noCompetitorPolicyNames[policy]; !ok {
			return &ConfigError{Field: "no_competitor_policy", Reason: fmt.Sprintf("unknown policy %d", int(policy))}
		}
		p.noCompetitorPolicy = policy
		return nil
	}
}

// WithAlignMarkup sets the minimal markup accepted when aligning on a competitor.
func WithAlignMarkup(rate float64) Option {
	return func(p *Policy) error {
		m, err := newMarkup("align_markup", rate)
		if err != nil {
			return err
		}
		p.alignMarkup = m
		return nil
	}
}

// WithoutAlignMarkup clears the align markup, which disables competitor alignment.
func WithoutAlignMarkup() Option {
	return func(p *Policy) error {
		p.alignMarkup = nil
		return nil
	}
}

// WithMinMarkup sets the markup used to raise a base price that is too low.
func WithMinMarkup(rate float64) Option {
	return func(p *Policy) error {
		m, err := newMarkup("min_markup", rate)
		if err != nil {
			return err
		}
		p.minMarkup = m
		return nil
	}
}

// WithoutMinMarkup clears the min markup.
func WithoutMinMarkup() Option {
	return func(p *Policy) error {
		p.minMarkup = nil
		return nil
	}
}

// WithTargetMarkup sets the desired selling markup.
func WithTargetMarkup(rate float64) Option {
	return func(p *Policy) error {
		m, err := newMarkup("target_markup", rate)
		if err != nil {
			return err
		}
		p.targetMarkup = m
		return nil
	}
}

// WithoutTargetMarkup clears the target markup.
func WithoutTargetMarkup() Option {
	return func(p *Policy) error {
		p.targetMarkup = nil
		return nil
	}
}

// WithRaiseBasePriceIfBelowMinMarkup raises untouched base prices up to the min markup price.
func WithRaiseBasePriceIfBelowMinMarkup(enabled bool) Option {
	return func(p *Policy) error {
		p.raiseBasePrice = enabled
		return nil
	}
}

// WithDropRate sets the maximum drop from the base price, in percent, for
// products without a purchase price.
func WithDropRate(rate float64) Option {
	return func(p *Policy) error {
		if math.IsNaN(rate) || rate < 0 || rate > 100 {
			return &ConfigError{Field: "drop_rate", Reason: fmt.Sprintf("rate %v must be between 0 and 100", rate)}
		}
		p.dropRate = rate
		p.dropRateFactor = DropFactor(rate)
		return nil
	}
}

// WithCompetitorGap sets the amount subtracted from a competitor price when aligning.
func WithCompetitorGap(amount float64) Option {
	return func(p *Policy) error {
		if math.IsNaN(amount) || amount < 0 {
			return negativeAmount("competitor_gap", amount)
		}
		p.competitorGap = amount
		return nil
	}
}

// FeeRate returns the fee percentage.
func (p *Policy) FeeRate() float64 { return p.feeRate }

// ShippingCost returns the real shipping cost paid by the seller.
func (p *Policy) ShippingCost() float64 { return p.shippingCost }

// ShippingScale returns a copy of the shipping tiers.
func (p *Policy) ShippingScale() []ShippingTier {
	return cloneScale(p.shippingScale)
}

// FeeOnShipping reports whether fees apply to the shipping amount.
func (p *Policy) FeeOnShipping() bool { return p.feeOnShipping }

// CompetitorPolicy returns the competitor alignment policy.
func (p *Policy) CompetitorPolicy() CompetitorPolicy { return p.competitorPolicy }

// NoCompetitorPolicy returns the policy used without competitor.
func (p *Policy) NoCompetitorPolicy() NoCompetitorPolicy { return p.noCompetitorPolicy }

// AlignMarkup returns the align markup and whether it is set.
func (p *Policy) AlignMarkup() (float64, bool) { return p.alignMarkup.get() }

// MinMarkup returns the min markup and whether it is set.
func (p *Policy) MinMarkup() (float64, bool) { return p.minMarkup.get() }

// TargetMarkup returns the target markup and whether it is set.
func (p *Policy) TargetMarkup() (float64, bool) { return p.targetMarkup.get() }

// RaiseBasePriceIfBelowMinMarkup reports whether low base prices are raised.
func (p *Policy) RaiseBasePriceIfBelowMinMarkup() bool { return p.raiseBasePrice }

// DropRate returns the allowed drop percentage for products without purchase price.
func (p *Policy) DropRate() float64 { return p.dropRate }

// CompetitorGap returns the amount subtracted from an aligned competitor price.
func (p *Policy) CompetitorGap() float64 { return p.competitorGap }

func (m *markup) get() (float64, bool) {
	if m == nil {
		return 0, false
	}
	return m.rate, true
}
