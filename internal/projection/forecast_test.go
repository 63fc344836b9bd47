package projection

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/centbook/centbook/internal/recurring"
)

func newTestForecaster(t *testing.T, repo *memoryRepo, withCache bool) (*Forecaster, *miniredis.Miniredis) {
	t.Helper()
	engine := newTestEngine(repo, nil, zeroLedger())
	var c *Cache
	var mr *miniredis.Miniredis
	if withCache {
		mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		c = NewCache(client, time.Minute)
	}
	return NewForecaster(engine, c), mr
}

func TestForecastValidatesInput(t *testing.T) {
	forecaster, _ := newTestForecaster(t, newMemoryRepo(), false)
	ctx := context.Background()

	_, err := forecaster.Forecast(ctx, "owner-1", day(2024, time.June, 1), 0)
	require.ErrorIs(t, err, ErrValidation)
	_, err = forecaster.Forecast(ctx, "owner-1", day(2024, time.June, 1), 400)
	require.ErrorIs(t, err, ErrValidation)
}

func TestForecastConfidenceBoundsAndDecay(t *testing.T) {
	forecaster, _ := newTestForecaster(t, newMemoryRepo(), false)

	points, err := forecaster.Forecast(context.Background(), "owner-1", day(2024, time.June, 1), 30)
	require.NoError(t, err)
	require.Len(t, points, 30)

	// No reconciled history clamps the base up to the minimum; the first
	// point carries an undecayed base.
	require.InDelta(t, 50.0, points[0].Confidence, 0.0001)
	for i := 1; i < len(points); i++ {
		require.LessOrEqual(t, points[i].Confidence, points[i-1].Confidence)
		require.GreaterOrEqual(t, points[i].Confidence, 50.0*0.5)
	}
}

func TestForecastBaseConfidenceFromAccuracy(t *testing.T) {
	repo := newMemoryRepo()
	forecaster, _ := newTestForecaster(t, repo, false)
	ctx := context.Background()

	// Perfectly reconciled history drives accuracy to 100, which clamps
	// down to the 95 ceiling.
	engine := forecaster.engine
	for d := 1; d <= 10; d++ {
		date := day(2024, time.May, d)
		_, err := engine.GenerateProjections(ctx, "owner-1", date, date, false)
		require.NoError(t, err)
		_, err = engine.UpdateActuals(ctx, "owner-1", date, decimal.Zero, decimal.Zero)
		require.NoError(t, err)
	}

	points, err := forecaster.Forecast(ctx, "owner-1", day(2024, time.June, 1), 5)
	require.NoError(t, err)
	require.InDelta(t, 95.0, points[0].Confidence, 0.0001)
}

func TestForecastCumulativeBalance(t *testing.T) {
	repo := newMemoryRepo()
	engine := newTestEngine(repo, demoDefs(), zeroLedger())
	forecaster := NewForecaster(engine, nil)

	points, err := forecaster.Forecast(context.Background(), "owner-1", day(2024, time.June, 1), 3)
	require.NoError(t, err)
	require.Len(t, points, 3)

	running := decimal.Zero
	for _, p := range points {
		running = running.Add(p.ProjectedBalance)
		require.True(t, p.CumulativeBalance.Equal(running), "date %s", p.Date)
	}
}

func TestForecastUsesCache(t *testing.T) {
	repo := newMemoryRepo()
	forecaster, mr := newTestForecaster(t, repo, true)
	ctx := context.Background()

	first, err := forecaster.Forecast(ctx, "owner-1", day(2024, time.June, 1), 7)
	require.NoError(t, err)
	require.True(t, mr.Exists(keyForecast("owner-1", day(2024, time.June, 1), 7)))
	require.InDelta(t, 50.0, first[0].Confidence, 0.0001)

	// Reconcile a badly missed projection: income projected 100, actual
	// 1. Accuracy drops to 50.5.
	_, err = repo.UpsertProjection(ctx, Record{
		OwnerID:          "owner-1",
		Date:             day(2024, time.May, 1),
		ProjectedIncome:  decimal.NewFromInt(100),
		ProjectedBalance: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, err = forecaster.engine.UpdateActuals(ctx, "owner-1", day(2024, time.May, 1),
		decimal.NewFromInt(1), decimal.Zero)
	require.NoError(t, err)

	// The cached response is served until the TTL lapses.
	second, err := forecaster.Forecast(ctx, "owner-1", day(2024, time.June, 1), 7)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	require.InDelta(t, first[0].Confidence, second[0].Confidence, 0.0001)

	mr.FastForward(2 * time.Minute)
	third, err := forecaster.Forecast(ctx, "owner-1", day(2024, time.June, 1), 7)
	require.NoError(t, err)
	require.InDelta(t, 50.5, third[0].Confidence, 0.0001)
}

func demoDefs() []recurring.Definition {
	return []recurring.Definition{
		{
			Kind:      recurring.KindIncome,
			Amount:    decimal.NewFromInt(100),
			Frequency: recurring.FrequencyDaily,
			Interval:  1,
			StartDate: day(2024, time.January, 1),
		},
		{
			Kind:      recurring.KindExpense,
			Amount:    decimal.NewFromInt(40),
			Frequency: recurring.FrequencyDaily,
			Interval:  2,
			StartDate: day(2024, time.June, 1),
		},
	}
}
