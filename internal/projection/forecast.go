package projection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centbook/centbook/internal/shared"
)

// Forecast confidence bounds. Base confidence is derived from recent
// projection accuracy and clamped into [50, 95]; time decay reduces it
// linearly to at most 70% of the base by the end of the horizon, never
// below 50%.
const (
	minBaseConfidence = 50.0
	maxBaseConfidence = 95.0
	decaySlope        = 0.3
	decayFloor        = 0.5
)

// maxForecastDays bounds one forecast horizon.
const maxForecastDays = 365

// Forecaster produces confidence-decaying cumulative-balance forecasts
// on top of the projection engine.
type Forecaster struct {
	engine *Engine
	cache  *Cache
}

// NewForecaster wires a Forecaster. The cache may be nil.
func NewForecaster(engine *Engine, cache *Cache) *Forecaster {
	return &Forecaster{engine: engine, cache: cache}
}

// Forecast generates days daily points starting at start.
func (f *Forecaster) Forecast(ctx context.Context, ownerID string, start time.Time, days int) ([]ForecastPoint, error) {
	if ownerID == "" {
		return nil, shared.ErrOwnerRequired
	}
	if days < 1 || days > maxForecastDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrValidation, maxForecastDays)
	}
	start = shared.Day(start)

	loader := func(ctx context.Context) (any, error) {
		return f.build(ctx, ownerID, start, days)
	}
	if f.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return value.([]ForecastPoint), nil
	}
	var points []ForecastPoint
	if err := f.cache.FetchJSON(ctx, keyForecast(ownerID, start, days), &points, loader); err != nil {
		return nil, err
	}
	return points, nil
}

func (f *Forecaster) build(ctx context.Context, ownerID string, start time.Time, days int) ([]ForecastPoint, error) {
	base, err := f.baseConfidence(ctx, ownerID, start)
	if err != nil {
		return nil, err
	}

	records, err := f.engine.GenerateProjections(ctx, ownerID, start, start.AddDate(0, 0, days-1), true)
	if err != nil {
		return nil, err
	}

	points := make([]ForecastPoint, 0, len(records))
	cumulative := decimal.Zero
	for i, rec := range records {
		cumulative = cumulative.Add(rec.ProjectedBalance)
		timeDecay := math.Max(decayFloor, 1-(float64(i)/float64(days))*decaySlope)
		points = append(points, ForecastPoint{
			Date:              rec.Date,
			ProjectedIncome:   rec.ProjectedIncome,
			ProjectedExpenses: rec.ProjectedExpenses,
			ProjectedBalance:  rec.ProjectedBalance,
			CumulativeBalance: cumulative,
			Confidence:        base * timeDecay,
		})
	}
	return points, nil
}

// baseConfidence averages projection accuracy over the 90 days before
// start, clamped into [minBaseConfidence, maxBaseConfidence]. No
// reconciled history clamps up to the minimum.
func (f *Forecaster) baseConfidence(ctx context.Context, ownerID string, start time.Time) (float64, error) {
	analyses, err := f.engine.GetCashFlowAnalysis(ctx, ownerID, start.AddDate(0, 0, -historicalWindowDays), start.AddDate(0, 0, -1))
	if err != nil {
		return 0, err
	}
	var sum float64
	var count int
	for _, a := range analyses {
		if a.Accuracy == nil {
			continue
		}
		sum += *a.Accuracy
		count++
	}
	avg := 0.0
	if count > 0 {
		avg = sum / float64(count)
	}
	return math.Min(maxBaseConfidence, math.Max(minBaseConfidence, avg)), nil
}
