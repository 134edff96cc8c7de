package quote

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/spacefoot/pricer/internal/common"
	"github.com/spacefoot/pricer/internal/obs"
	"github.com/spacefoot/pricer/internal/policy"
	"github.com/spacefoot/pricer/internal/pricing"
	"github.com/spacefoot/pricer/internal/resilience"
)

// ErrUnknownProfile is wrapped by errors for profiles that are not registered.
var ErrUnknownProfile = policy.ErrUnknownProfile

// Registry resolves pricing profiles.
type Registry interface {
	Get(name string) (policy.Entry, error)
	Entries() []policy.Entry
	Update(name string, patch policy.Patch) (policy.Entry, error)
}

// Offer is a competitor price for the product.
type Offer struct {
	Name  string  `json:"name" validate:"required,max=120"`
	Price float64 `json:"price" validate:"finite,gte=0"`
}

// Request carries the prices known for one product.
type Request struct {
	SKU           string   `json:"sku,omitempty" validate:"max=128"`
	BasePrice     float64  `json:"base_price" validate:"finite,gte=0"`
	PurchasePrice *float64 `json:"purchase_price,omitempty" validate:"omitempty,finite,gte=0"`
	CurrentPrice  *float64 `json:"current_price,omitempty" validate:"omitempty,finite,gte=0"`
	Competitors   []Offer  `json:"competitors,omitempty" validate:"max=50,dive"`
}

// Quote is the priced answer for one request.
type Quote struct {
	ID         uuid.UUID         `json:"id"`
	Profile    string            `json:"profile"`
	Revision   uint64            `json:"revision"`
	SKU        string            `json:"sku,omitempty"`
	Price      float64           `json:"price"`
	Cents      int64             `json:"cents"`
	Type       pricing.PriceType `json:"type"`
	Label      string            `json:"label"`
	Competitor *Offer            `json:"competitor,omitempty"`
	Changed    bool              `json:"changed"`
	Cached     bool              `json:"cached"`
	QuotedAt   time.Time         `json:"quoted_at"`
}

// Service prices products against registered profiles.
type Service struct {
	registry       Registry
	cache          *Cache
	metrics        *obs.PricingMetrics
	logger         zerolog.Logger
	tracer         trace.Tracer
	validate       *validator.Validate
	defaultProfile string
	now            func() time.Time
	newID          func() uuid.UUID
}

// ServiceConfig groups Service dependencies. Cache and Metrics are optional.
type ServiceConfig struct {
	Registry       Registry
	Cache          *Cache
	Metrics        *obs.PricingMetrics
	Logger         zerolog.Logger
	DefaultProfile string
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Registry == nil {
		return nil, errors.New("quote: registry is required")
	}
	defaultProfile := cfg.DefaultProfile
	if defaultProfile == "" {
		defaultProfile = policy.DefaultProfile
	}
	return &Service{
		registry:       cfg.Registry,
		cache:          cfg.Cache,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger.With().Str("component", "quote").Logger(),
		tracer:         obs.Tracer("pricer/quote"),
		validate:       newValidator(),
		defaultProfile: defaultProfile,
		now:            time.Now,
		newID:          uuid.New,
	}, nil
}

// DefaultProfile returns the profile used when a caller names none.
func (s *Service) DefaultProfile() string {
	return s.defaultProfile
}

// Quote computes the winning price of a request under the named profile.
func (s *Service) Quote(ctx context.Context, profile string, req Request) (*Quote, error) {
	ctx, span := s.tracer.Start(ctx, "quote.Quote", trace.WithAttributes(
		attribute.String("pricing.profile", profile),
		attribute.String("pricing.sku", req.SKU),
	))
	defer span.End()
	start := s.now()

	if err := s.validateRequest(req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	entry, err := s.registry.Get(profile)
	if err != nil {
		span.SetStatus(codes.Error, "unknown profile")
		return nil, unknownProfile(profile, err)
	}

	competitor := lowestOffer(req.Competitors)
	input := pricing.Input{BasePrice: req.BasePrice, PurchasePrice: req.PurchasePrice}
	if competitor != nil {
		input.CompetitorPrice = pricing.Amount(competitor.Price)
	}

	price, cached, err := s.decide(ctx, entry, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decide")
		return nil, s.decideError(profile, err)
	}

	q := &Quote{
		ID:         s.newID(),
		Profile:    entry.Name,
		Revision:   entry.Revision,
		SKU:        req.SKU,
		Price:      price.Value,
		Cents:      price.Cents(),
		Type:       price.Type,
		Label:      price.Type.Label(),
		Competitor: competitor,
		Changed:    !price.Matches(req.CurrentPrice),
		Cached:     cached,
		QuotedAt:   s.now().UTC(),
	}

	span.SetAttributes(
		attribute.String("pricing.type", string(q.Type)),
		attribute.Int64("pricing.cents", q.Cents),
		attribute.Bool("pricing.cached", cached),
	)
	s.metrics.ObserveDecision(entry.Name, string(q.Type))
	s.metrics.ObserveQuoteDuration(entry.Name, obs.DurationMillis(s.now().Sub(start)))
	s.logger.Debug().
		Str("profile", entry.Name).
		Uint64("revision", entry.Revision).
		Str("sku", req.SKU).
		Float64("price", q.Price).
		Str("type", string(q.Type)).
		Bool("cached", cached).
		Msg("quote computed")
	return q, nil
}

func (s *Service) decide(ctx context.Context, entry policy.Entry, input pricing.Input) (pricing.WinningPrice, bool, error) {
	if !s.cache.enabled() {
		price, err := entry.Policy.Decide(input)
		return price, false, err
	}

	key := cacheKey(entry.Name, entry.Fingerprint, input.BasePrice, input.PurchasePrice, input.CompetitorPrice)
	var cached pricing.WinningPrice
	ok, err := s.cache.GetJSON(ctx, key, &cached)
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		s.metrics.ObserveCache("bypass")
	case err != nil:
		s.metrics.ObserveCache("error")
		s.logger.Warn().Err(err).Str("profile", entry.Name).Msg("quote cache read failed")
	case ok:
		s.metrics.ObserveCache("hit")
		return cached, true, nil
	default:
		s.metrics.ObserveCache("miss")
	}

	price, err := entry.Policy.Decide(input)
	if err != nil {
		return pricing.WinningPrice{}, false, err
	}
	if err := s.cache.SetJSON(ctx, key, price); err != nil && !errors.Is(err, resilience.ErrOpenCircuit) {
		s.logger.Warn().Err(err).Str("profile", entry.Name).Msg("quote cache write failed")
	}
	return price, false, nil
}

func (s *Service) decideError(profile string, err error) error {
	var cfgErr *pricing.ConfigError
	if errors.As(err, &cfgErr) {
		s.metrics.ObserveConfigError(profile, cfgErr.Field)
		s.logger.Warn().Str("profile", profile).Str("field", cfgErr.Field).Msg(cfgErr.Reason)
		return misconfigured(err, cfgErr)
	}
	return common.NewAppError("INTERNAL", "quote failed", http.StatusInternalServerError, err)
}

// lowestOffer returns the cheapest offer; the first one wins a tie.
func lowestOffer(offers []Offer) *Offer {
	var best *Offer
	for i := range offers {
		if best == nil || offers[i].Price < best.Price {
			best = &offers[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func unknownProfile(profile string, err error) *common.AppError {
	if !errors.Is(err, ErrUnknownProfile) {
		return common.NewAppError("INTERNAL", "profile lookup failed", http.StatusInternalServerError, err)
	}
	return common.NewAppError("UNKNOWN_PROFILE", "unknown pricing profile", http.StatusNotFound, err).
		WithDetails(map[string]string{"profile": profile})
}

func misconfigured(err error, cfgErr *pricing.ConfigError) *common.AppError {
	return common.NewAppError("POLICY_MISCONFIGURED", cfgErr.Reason, http.StatusUnprocessableEntity, err).
		WithDetails(map[string]string{"field": cfgErr.Field})
}
