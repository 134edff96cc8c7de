package quote

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/spacefoot/pricer/internal/common"
	"github.com/spacefoot/pricer/internal/obs"
	"github.com/spacefoot/pricer/internal/policy"
	"github.com/spacefoot/pricer/internal/pricing"
	"github.com/spacefoot/pricer/internal/resilience"
)

func newTestRegistry(t *testing.T) *policy.Registry {
	t.Helper()
	base, err := pricing.NewPolicy(pricing.WithAlignMarkup(18), pricing.WithTargetMarkup(30))
	require.NoError(t, err)
	fees, err := pricing.NewPolicy(
		pricing.WithFeeRate(15),
		pricing.WithShippingCost(5.99),
		pricing.WithShippingScale(pricing.Tier(20, 5.99), pricing.Tier(70, 2.99), pricing.CatchAll(0)),
		pricing.WithFeeOnShipping(true),
		pricing.WithAlignMarkup(18),
		pricing.WithTargetMarkup(30),
	)
	require.NoError(t, err)
	broken, err := pricing.NewPolicy(pricing.WithTargetMarkup(30), pricing.WithShippingScale(pricing.CatchAll(0)))
	require.NoError(t, err)
	return policy.NewRegistry(map[string]*pricing.Policy{
		"default": base,
		"fees":    fees,
		"broken":  broken,
	})
}

type testEnv struct {
	service  *Service
	registry *policy.Registry
	metrics  *obs.PricingMetrics
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T, withCache bool) testEnv {
	t.Helper()
	env := testEnv{
		registry: newTestRegistry(t),
		metrics:  obs.NewPricingMetrics("pricer", prometheus.NewRegistry()),
	}
	var cache *Cache
	if withCache {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		cache = NewCache(client, time.Minute)
		env.redis = mr
	}
	svc, err := NewService(ServiceConfig{
		Registry: env.registry,
		Cache:    cache,
		Metrics:  env.metrics,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	svc.newID = func() uuid.UUID { return uuid.MustParse("11111111-1111-1111-1111-111111111111") }
	env.service = svc
	return env
}

func TestQuoteAlignsOnLowestCompetitor(t *testing.T) {
	env := newTestEnv(t, false)

	q, err := env.service.Quote(context.Background(), "default", Request{
		SKU:           "SKU-1",
		BasePrice:     19.35,
		PurchasePrice: pricing.Amount(8),
		CurrentPrice:  pricing.Amount(10.89),
		Competitors: []Offer{
			{Name: "alpha", Price: 12.90},
			{Name: "beta", Price: 10.90},
			{Name: "gamma", Price: 10.90},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 10.89, q.Price)
	require.EqualValues(t, 1089, q.Cents)
	require.Equal(t, pricing.TypeCompetitor, q.Type)
	require.Equal(t, "Aligned to competitor", q.Label)
	require.Equal(t, &Offer{Name: "beta", Price: 10.90}, q.Competitor)
	require.False(t, q.Changed)
	require.False(t, q.Cached)
	require.EqualValues(t, 1, q.Revision)
	require.Equal(t, "SKU-1", q.SKU)
	require.Equal(t, uuid.MustParse("11111111-1111-1111-1111-111111111111"), q.ID)

	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.DecisionsTotal.WithLabelValues("default", "COMPETITOR")))
}

func TestQuoteWithoutCompetitor(t *testing.T) {
	env := newTestEnv(t, false)

	q, err := env.service.Quote(context.Background(), "fees", Request{BasePrice: 19.35, PurchasePrice: pricing.Amount(8)})
	require.NoError(t, err)
	require.Equal(t, 14.50, q.Price)
	require.Equal(t, pricing.TypeTarget, q.Type)
	require.Nil(t, q.Competitor)
	require.True(t, q.Changed)
}

func TestQuoteCachesDecisionsPerPolicy(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	req := Request{BasePrice: 35, Competitors: []Offer{{Name: "alpha", Price: 34.99}}}

	first, err := env.service.Quote(ctx, "fees", req)
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Equal(t, 34.98, first.Price)

	second, err := env.service.Quote(ctx, "fees", req)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Price, second.Price)
	require.Equal(t, first.Type, second.Type)
	require.Len(t, env.redis.Keys(), 1)

	gap := 0.02
	_, err = env.service.UpdateProfile(ctx, "fees", policy.Patch{CompetitorGap: &gap})
	require.NoError(t, err)

	third, err := env.service.Quote(ctx, "fees", req)
	require.NoError(t, err)
	require.False(t, third.Cached)
	require.Equal(t, 34.97, third.Price)
	require.EqualValues(t, 2, third.Revision)

	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.QuoteCacheTotal.WithLabelValues("hit")))
	require.Equal(t, 2.0, testutil.ToFloat64(env.metrics.QuoteCacheTotal.WithLabelValues("miss")))
}

func TestQuoteCacheSharedAcrossRegistries(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	newInstance := func() *Service {
		svc, err := NewService(ServiceConfig{
			Registry: newTestRegistry(t),
			Cache:    NewCache(client, time.Minute),
			Metrics:  obs.NewPricingMetrics("pricer", prometheus.NewRegistry()),
			Logger:   zerolog.Nop(),
		})
		require.NoError(t, err)
		return svc
	}
	a, b := newInstance(), newInstance()
	ctx := context.Background()

	high, low := 50.0, 10.0
	viewA, err := a.UpdateProfile(ctx, "default", policy.Patch{TargetMarkup: &high})
	require.NoError(t, err)
	viewB, err := b.UpdateProfile(ctx, "default", policy.Patch{TargetMarkup: &low})
	require.NoError(t, err)
	require.Equal(t, viewA.Revision, viewB.Revision)

	req := Request{BasePrice: 19.35, PurchasePrice: pricing.Amount(8)}
	qa, err := a.Quote(ctx, "default", req)
	require.NoError(t, err)
	require.Equal(t, 16.0, qa.Price)

	qb, err := b.Quote(ctx, "default", req)
	require.NoError(t, err)
	require.False(t, qb.Cached)
	require.Equal(t, 8.89, qb.Price)

	_, err = b.UpdateProfile(ctx, "default", policy.Patch{TargetMarkup: &high})
	require.NoError(t, err)
	qb, err = b.Quote(ctx, "default", req)
	require.NoError(t, err)
	require.True(t, qb.Cached)
	require.Equal(t, 16.0, qb.Price)
	require.EqualValues(t, 3, qb.Revision)
}

func TestQuoteCacheFailureFallsBackToDecide(t *testing.T) {
	env := newTestEnv(t, true)
	env.redis.Close()

	q, err := env.service.Quote(context.Background(), "default", Request{BasePrice: 19.35, PurchasePrice: pricing.Amount(8)})
	require.NoError(t, err)
	require.Equal(t, 11.43, q.Price)
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.QuoteCacheTotal.WithLabelValues("error")))
}

func TestQuoteUnknownProfile(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.service.Quote(context.Background(), "nope", Request{BasePrice: 10})
	require.ErrorIs(t, err, ErrUnknownProfile)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	require.Equal(t, "UNKNOWN_PROFILE", appErr.Code)
}

func TestQuoteConfigurationError(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.service.Quote(context.Background(), "broken", Request{BasePrice: 19.35, PurchasePrice: pricing.Amount(8)})
	require.ErrorIs(t, err, pricing.ErrShippingCostRequired)
	require.True(t, errors.Is(err, pricing.ErrConfiguration))

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.Equal(t, "POLICY_MISCONFIGURED", appErr.Code)
	require.Equal(t, map[string]string{"field": "shipping_cost"}, appErr.Details)
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ConfigErrorsTotal.WithLabelValues("broken", "shipping_cost")))

	q, err := env.service.Quote(context.Background(), "broken", Request{BasePrice: 19.35})
	require.NoError(t, err)
	require.Equal(t, pricing.TypeBase, q.Type)
}

func TestQuoteValidation(t *testing.T) {
	env := newTestEnv(t, false)

	offers := make([]Offer, 51)
	for i := range offers {
		offers[i] = Offer{Name: "shop", Price: 1}
	}
	cases := map[string]struct {
		req   Request
		field string
	}{
		"negative base":      {Request{BasePrice: -1}, "base_price"},
		"negative purchase":  {Request{BasePrice: 1, PurchasePrice: pricing.Amount(-2)}, "purchase_price"},
		"unnamed competitor": {Request{BasePrice: 1, Competitors: []Offer{{Price: 3}}}, "competitors[0].name"},
		"too many offers":    {Request{BasePrice: 1, Competitors: offers}, "competitors"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.service.Quote(context.Background(), "default", tc.req)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
			details, ok := appErr.Details.(map[string]any)
			require.True(t, ok)
			fields, ok := details["fields"].([]FieldError)
			require.True(t, ok)
			require.NotEmpty(t, fields)
			require.Equal(t, tc.field, fields[0].Field)
		})
	}
}

func TestUpdateProfileErrors(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	_, err := env.service.UpdateProfile(ctx, "default", policy.Patch{})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	fee := 120.0
	_, err = env.service.UpdateProfile(ctx, "default", policy.Patch{FeeRate: &fee})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.PolicyUpdatesTotal.WithLabelValues("default", "rejected")))

	_, err = env.service.UpdateProfile(ctx, "nope", policy.Patch{FeeRate: pricing.Amount(10)})
	require.ErrorIs(t, err, ErrUnknownProfile)
}

func TestProfilesAndView(t *testing.T) {
	env := newTestEnv(t, false)

	summaries := env.service.Profiles(context.Background())
	require.Len(t, summaries, 3)
	require.Equal(t, "broken", summaries[0].Name)
	require.True(t, summaries[1].Default)

	view, err := env.service.Profile(context.Background(), "fees")
	require.NoError(t, err)
	require.Equal(t, 15.0, view.FeeRate)
	require.Equal(t, "align", view.CompetitorPolicy)
	require.Equal(t, "target_below_base_price", view.NoCompetitorPolicy)
	require.NotNil(t, view.TargetMarkup)
	require.Equal(t, 30.0, *view.TargetMarkup)
	require.Nil(t, view.MinMarkup)
	require.Len(t, view.ShippingScale, 3)
}

func TestLowestOffer(t *testing.T) {
	require.Nil(t, lowestOffer(nil))
	offers := []Offer{{Name: "a", Price: 5}, {Name: "b", Price: 4}, {Name: "c", Price: 4}}
	best := lowestOffer(offers)
	require.Equal(t, "b", best.Name)
	best.Name = "mutated"
	require.Equal(t, "b", offers[1].Name)
}

func TestCacheKeyDependsOnInputs(t *testing.T) {
	a := cacheKey("default", "f1", 10, nil, nil)
	require.Equal(t, a, cacheKey("default", "f1", 10, nil, nil))
	require.NotEqual(t, a, cacheKey("default", "f2", 10, nil, nil))
	require.NotEqual(t, a, cacheKey("default", "f1", 10, pricing.Amount(0), nil))
	require.NotEqual(t, cacheKey("default", "f1", 10, pricing.Amount(5), nil), cacheKey("default", "f1", 10, nil, pricing.Amount(5)))
}

func TestQuoteBypassesCacheWhileBreakerOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	metrics := obs.NewPricingMetrics("pricer", prometheus.NewRegistry())
	breaker := resilience.NewBreaker(resilience.Config{Target: "quote_cache", MinRequests: 1, OpenFor: time.Hour})
	svc, err := NewService(ServiceConfig{
		Registry: newTestRegistry(t),
		Cache:    NewCache(client, time.Minute).WithBreaker(breaker),
		Metrics:  metrics,
	})
	require.NoError(t, err)

	req := Request{BasePrice: 19.35, PurchasePrice: pricing.Amount(8)}
	for i := 0; i < 3; i++ {
		q, err := svc.Quote(context.Background(), "default", req)
		require.NoError(t, err)
		require.Equal(t, 11.43, q.Price)
	}
	require.Equal(t, resilience.Open, breaker.State())
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.QuoteCacheTotal.WithLabelValues("error")))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.QuoteCacheTotal.WithLabelValues("bypass")))
}
