package pricing

import (
	"errors"
	"fmt"
)

// ErrConfiguration classifies every error raised because the policy cannot
// price the requested input. Use errors.Is(err, ErrConfiguration).
var ErrConfiguration = errors.New("pricing: configuration error")

// ConfigError describes a missing or invalid policy setting.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return "pricing: " + e.Reason
	}
	return fmt.Sprintf("pricing: %s: %s", e.Field, e.Reason)
}

// Is reports ConfigError values as members of ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

var (
	// ErrTargetMarkupRequired is returned when a purchase price is supplied without a target markup.
	ErrTargetMarkupRequired = &ConfigError{Field: "target_markup", Reason: "a target markup is required"}
	// ErrMinMarkupRequired is returned when the base price must be raised without a min markup.
	ErrMinMarkupRequired = &ConfigError{Field: "min_markup", Reason: "a min markup is required"}
	// ErrShippingCostRequired is returned when a shipping scale is set without a shipping cost.
	ErrShippingCostRequired = &ConfigError{Field: "shipping_cost", Reason: "shipping cost is required with a shipping scale"}
)

func invalidRate(field string, rate float64) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf("rate %v must be below 100", rate)}
}

func negativeAmount(field string, amount float64) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf("amount %v must not be negative", amount)}
}
