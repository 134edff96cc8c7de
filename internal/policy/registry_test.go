package policy

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spacefoot/pricer/internal/pricing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	base, err := pricing.NewPolicy(pricing.WithAlignMarkup(18), pricing.WithTargetMarkup(30))
	require.NoError(t, err)
	return NewRegistry(map[string]*pricing.Policy{"default": base, "b2b": base})
}

func TestRegistryGetAndNames(t *testing.T) {
	r := newTestRegistry(t)
	require.Equal(t, []string{"b2b", "default"}, r.Names())

	entry, err := r.Get("default")
	require.NoError(t, err)
	require.EqualValues(t, 1, entry.Revision)

	_, err = r.Get("missing")
	require.ErrorIs(t, err, ErrUnknownProfile)
}

func TestRegistryUpdateIsCopyOnWrite(t *testing.T) {
	r := newTestRegistry(t)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	before, err := r.Get("default")
	require.NoError(t, err)

	fee := 15.0
	updated, err := r.Update("default", Patch{FeeRate: &fee, Unset: []string{"align_markup"}})
	require.NoError(t, err)
	require.EqualValues(t, 2, updated.Revision)
	require.Equal(t, 15.0, updated.Policy.FeeRate())
	require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), updated.UpdatedAt)

	require.Equal(t, 0.0, before.Policy.FeeRate())
	_, ok := before.Policy.AlignMarkup()
	require.True(t, ok)

	other, err := r.Get("b2b")
	require.NoError(t, err)
	require.EqualValues(t, 1, other.Revision)
}

func TestRegistryUpdateRejectsInvalidPatch(t *testing.T) {
	r := newTestRegistry(t)

	fee := 100.0
	_, err := r.Update("default", Patch{FeeRate: &fee})
	require.ErrorIs(t, err, pricing.ErrConfiguration)

	_, err = r.Update("default", Patch{Unset: []string{"fee_rate"}})
	require.ErrorIs(t, err, pricing.ErrConfiguration)

	entry, err := r.Get("default")
	require.NoError(t, err)
	require.EqualValues(t, 1, entry.Revision)

	_, err = r.Update("missing", Patch{})
	require.ErrorIs(t, err, ErrUnknownProfile)
}

func TestRegistryPutAddsProfile(t *testing.T) {
	r := newTestRegistry(t)
	p, err := pricing.NewPolicy()
	require.NoError(t, err)

	entry := r.Put("retail", p)
	require.EqualValues(t, 1, entry.Revision)
	require.Equal(t, []string{"b2b", "default", "retail"}, r.Names())

	entry = r.Put("retail", p)
	require.EqualValues(t, 2, entry.Revision)
}

func TestRegistryFingerprintFollowsSettings(t *testing.T) {
	r := newTestRegistry(t)
	base, err := r.Get("default")
	require.NoError(t, err)
	require.NotEmpty(t, base.Fingerprint)

	other := newTestRegistry(t)
	twin, err := other.Get("b2b")
	require.NoError(t, err)
	require.Equal(t, base.Fingerprint, twin.Fingerprint)

	target := 50.0
	changed, err := r.Update("default", Patch{TargetMarkup: &target})
	require.NoError(t, err)
	require.NotEqual(t, base.Fingerprint, changed.Fingerprint)

	target = 30
	restored, err := r.Update("default", Patch{TargetMarkup: &target})
	require.NoError(t, err)
	require.EqualValues(t, 3, restored.Revision)
	require.Equal(t, base.Fingerprint, restored.Fingerprint)

	scaled, err := base.Policy.With(pricing.WithShippingScale(pricing.Tier(20, 5.99), pricing.CatchAll(0)))
	require.NoError(t, err)
	rescaled, err := scaled.With(pricing.WithShippingScale(pricing.Tier(20, 4.99), pricing.CatchAll(0)))
	require.NoError(t, err)
	require.NotEqual(t, Fingerprint(scaled), Fingerprint(rescaled))
	require.Empty(t, Fingerprint(nil))
}

func TestRegistryConcurrentReadsAndWrites(t *testing.T) {
	r := newTestRegistry(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			gap := 0.02
			_, _ = r.Update("default", Patch{CompetitorGap: &gap})
		}()
		go func() {
			defer wg.Done()
			entry, err := r.Get("default")
			if err == nil {
				_, _ = entry.Policy.Decide(pricing.Input{BasePrice: 10, PurchasePrice: pricing.Amount(5)})
			}
		}()
	}
	wg.Wait()

	entry, err := r.Get("default")
	require.NoError(t, err)
	require.EqualValues(t, 9, entry.Revision)
}

func TestNewDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry("")
	require.NoError(t, err)
	require.Equal(t, []string{DefaultProfile}, r.Names())
}

func TestPatchEmpty(t *testing.T) {
	require.True(t, Patch{}.Empty())
	gap := 0.5
	require.False(t, Patch{CompetitorGap: &gap}.Empty())
	require.False(t, Patch{Unset: []string{"min_markup"}}.Empty())
}
