package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/spacefoot/pricer/internal/pricing"
)

// File is the YAML document listing pricing profiles.
type File struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Tier is one shipping scale step. A missing upper bound closes the scale.
type Tier struct {
	UpperBound *float64 `yaml:"upper_bound" json:"upper_bound,omitempty"`
	Amount     float64  `yaml:"amount" json:"amount"`
}

// Profile holds the settings of one named pricing policy.
type Profile struct {
	FeeRate                        *float64 `yaml:"fee_rate"`
	ShippingCost                   *float64 `yaml:"shipping_cost"`
	FeeOnShipping                  bool     `yaml:"fee_on_shipping"`
	ShippingScale                  []Tier   `yaml:"shipping_scale"`
	CompetitorPolicy               string   `yaml:"competitor_policy"`
	NoCompetitorPolicy             string   `yaml:"no_competitor_policy"`
	AlignMarkup                    *float64 `yaml:"align_markup"`
	TargetMarkup                   *float64 `yaml:"target_markup"`
	MinMarkup                      *float64 `yaml:"min_markup"`
	RaiseBasePriceIfBelowMinMarkup bool     `yaml:"raise_base_price_if_below_min_markup"`
	DropRate                       *float64 `yaml:"drop_rate"`
	CompetitorGap                  *float64 `yaml:"competitor_gap"`
}

// Load reads a YAML profile file and expands ${VAR} environment variables.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile document. Unknown keys are rejected so that a
// misspelt setting never silently falls back to its default.
func Parse(data []byte) (*File, error) {
	expanded := os.ExpandEnv(string(data))

	var f File
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse policy yaml: %w", err)
	}
	return &f, nil
}

// LoadAndValidate loads a file, applies defaults and validates every profile.
func LoadAndValidate(path string) (*File, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate policy file: %w", err)
	}
	return f, nil
}

func (f *File) applyDefaults() {
	for name, p := range f.Profiles {
		if p.CompetitorPolicy == "" {
			p.CompetitorPolicy = pricing.Align.String()
		}
		if p.NoCompetitorPolicy == "" {
			p.NoCompetitorPolicy = pricing.TargetBelowBasePrice.String()
		}
		f.Profiles[name] = p
	}
}

// Validate checks that the file declares at least one profile and that every
// profile builds.
func (f *File) Validate() error {
	if len(f.Profiles) == 0 {
		return errors.New("no profile declared")
	}
	_, err := f.Build()
	return err
}

// Build constructs the policy of every profile.
func (f *File) Build() (map[string]*pricing.Policy, error) {
	policies := make(map[string]*pricing.Policy, len(f.Profiles))
	for _, name := range f.names() {
		if name == "" {
			return nil, errors.New("profile name must not be empty")
		}
		opts, err := f.Profiles[name].Options()
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		p, err := pricing.NewPolicy(opts...)
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		policies[name] = p
	}
	return policies, nil
}

func (f *File) names() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options converts the profile into policy options.
func (p Profile) Options() ([]pricing.Option, error) {
	var opts []pricing.Option
	if p.FeeRate != nil {
		opts = append(opts, pricing.WithFeeRate(*p.FeeRate))
	}
	if p.ShippingCost != nil {
		opts = append(opts, pricing.WithShippingCost(*p.ShippingCost))
	}
	if len(p.ShippingScale) > 0 {
		opts = append(opts, pricing.WithShippingScale(tiers(p.ShippingScale)...))
	}
	opts = append(opts, pricing.WithFeeOnShipping(p.FeeOnShipping))

	if p.CompetitorPolicy != "" {
		cp, err := pricing.ParseCompetitorPolicy(p.CompetitorPolicy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pricing.WithCompetitorPolicy(cp))
	}
	if p.NoCompetitorPolicy != "" {
		ncp, err := pricing.ParseNoCompetitorPolicy(p.NoCompetitorPolicy)
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
	opts = append(opts, pricing.WithRaiseBasePriceIfBelowMinMarkup(p.RaiseBasePriceIfBelowMinMarkup))
	if p.DropRate != nil {
		opts = append(opts, pricing.WithDropRate(*p.DropRate))
	}
	if p.CompetitorGap != nil {
		opts = append(opts, pricing.WithCompetitorGap(*p.CompetitorGap))
	}
	return opts, nil
}

func tiers(in []Tier) []pricing.ShippingTier {
	out := make([]pricing.ShippingTier, len(in))
	for i, t := range in {
		out[i] = pricing.ShippingTier{UpperBound: t.UpperBound, Amount: t.Amount}
	}
	return out
}
