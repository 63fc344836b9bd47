package projection

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/centbook/centbook/internal/ledger"
	"github.com/centbook/centbook/internal/recurring"
	"github.com/centbook/centbook/internal/shared"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type memoryRepo struct {
	records map[string]Record
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]Record)}
}

func recordKey(ownerID string, date time.Time) string {
	return ownerID + "|" + shared.FormatDate(date)
}

func (r *memoryRepo) UpsertProjection(ctx context.Context, rec Record) (Record, error) {
	key := recordKey(rec.OwnerID, rec.Date)
	if existing, ok := r.records[key]; ok {
		existing.ProjectedIncome = rec.ProjectedIncome
		existing.ProjectedExpenses = rec.ProjectedExpenses
		existing.ProjectedBalance = rec.ProjectedBalance
		r.records[key] = existing
		return existing, nil
	}
	r.records[key] = rec
	return rec, nil
}

func (r *memoryRepo) UpsertActuals(ctx context.Context, rec Record) (Record, error) {
	key := recordKey(rec.OwnerID, rec.Date)
	if existing, ok := r.records[key]; ok {
		existing.ActualIncome = rec.ActualIncome
		existing.ActualExpenses = rec.ActualExpenses
		existing.ActualBalance = rec.ActualBalance
		r.records[key] = existing
		return existing, nil
	}
	// Bootstrap: actuals double as the projected figures.
	rec.ProjectedIncome = *rec.ActualIncome
	rec.ProjectedExpenses = *rec.ActualExpenses
	rec.ProjectedBalance = *rec.ActualBalance
	r.records[key] = rec
	return rec, nil
}

func (r *memoryRepo) Get(ctx context.Context, ownerID string, date time.Time) (Record, error) {
	rec, ok := r.records[recordKey(ownerID, date)]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *memoryRepo) List(ctx context.Context, ownerID string, from, to time.Time) ([]Record, error) {
	var out []Record
	for _, rec := range r.records {
		if rec.OwnerID == ownerID && !rec.Date.Before(from) && !rec.Date.After(to) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type staticDefinitions struct {
	defs []recurring.Definition
}

func (s staticDefinitions) ListActive(ctx context.Context, ownerID string) ([]recurring.Definition, error) {
	return s.defs, nil
}

type staticLedger struct {
	totals map[string]ledger.Totals
	window ledger.Totals
}

func (s staticLedger) TotalsBetween(ctx context.Context, ownerID string, from, to time.Time) (ledger.Totals, error) {
	if shared.SameDay(from, to) {
		return s.totals[shared.FormatDate(from)], nil
	}
	return s.window, nil
}

func (s staticLedger) DayTotals(ctx context.Context, ownerID string, date time.Time) (ledger.Totals, error) {
	return s.totals[shared.FormatDate(date)], nil
}

func zeroLedger() staticLedger {
	return staticLedger{totals: map[string]ledger.Totals{}, window: ledger.Totals{Income: decimal.Zero, Expenses: decimal.Zero}}
}

func newTestEngine(repo *memoryRepo, defs []recurring.Definition, led ledger.Reader) *Engine {
	return NewEngine(repo, staticDefinitions{defs: defs}, led, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGenerateProjectionsPlacesRecurringOccurrences(t *testing.T) {
	repo := newMemoryRepo()
	defs := []recurring.Definition{
		{
			Kind:      recurring.KindIncome,
			Amount:    decimal.NewFromInt(3000),
			Frequency: recurring.FrequencyMonthly,
			Interval:  1,
			StartDate: day(2024, time.January, 1),
		},
		{
			Kind:      recurring.KindExpense,
			Amount:    decimal.NewFromInt(50),
			Frequency: recurring.FrequencyWeekly,
			Interval:  1,
			StartDate: day(2024, time.June, 3),
		},
		{
			// Debt never enters cash-flow totals.
			Kind:      recurring.KindDebt,
			Amount:    decimal.NewFromInt(999),
			Frequency: recurring.FrequencyDaily,
			Interval:  1,
			StartDate: day(2024, time.January, 1),
		},
	}
	engine := newTestEngine(repo, defs, zeroLedger())

	records, err := engine.GenerateProjections(context.Background(), "owner-1", day(2024, time.June, 1), day(2024, time.June, 7), false)
	require.NoError(t, err)
	require.Len(t, records, 7)

	// June 1: monthly income occurrence.
	require.True(t, records[0].ProjectedIncome.Equal(decimal.NewFromInt(3000)))
	require.True(t, records[0].ProjectedExpenses.IsZero())
	require.True(t, records[0].ProjectedBalance.Equal(decimal.NewFromInt(3000)))

	// June 2: nothing due.
	require.True(t, records[1].ProjectedIncome.IsZero())
	require.True(t, records[1].ProjectedExpenses.IsZero())

	// June 3: weekly expense starts.
	require.True(t, records[2].ProjectedExpenses.Equal(decimal.NewFromInt(50)))
	require.True(t, records[2].ProjectedBalance.Equal(decimal.NewFromInt(-50)))
}

func TestGenerateProjectionsSeedsHistoricalAverage(t *testing.T) {
	repo := newMemoryRepo()
	led := staticLedger{
		totals: map[string]ledger.Totals{},
		window: ledger.Totals{Income: decimal.NewFromInt(9000), Expenses: decimal.NewFromInt(4500)},
	}
	engine := newTestEngine(repo, nil, led)

	records, err := engine.GenerateProjections(context.Background(), "owner-1", day(2024, time.June, 1), day(2024, time.June, 2), true)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// 9000 / 90 = 100 daily income, 4500 / 90 = 50 daily expenses.
	require.True(t, records[0].ProjectedIncome.Equal(decimal.NewFromInt(100)), "got %s", records[0].ProjectedIncome)
	require.True(t, records[0].ProjectedExpenses.Equal(decimal.NewFromInt(50)))
	require.True(t, records[0].ProjectedBalance.Equal(decimal.NewFromInt(50)))
}

func TestGenerateProjectionsValidatesRange(t *testing.T) {
	engine := newTestEngine(newMemoryRepo(), nil, zeroLedger())
	ctx := context.Background()

	_, err := engine.GenerateProjections(ctx, "owner-1", day(2024, time.June, 2), day(2024, time.June, 1), false)
	require.ErrorIs(t, err, ErrValidation)

	_, err = engine.GenerateProjections(ctx, "owner-1", day(2024, time.January, 1), day(2026, time.June, 1), false)
	require.ErrorIs(t, err, ErrValidation)

	_, err = engine.GenerateProjections(ctx, "", day(2024, time.June, 1), day(2024, time.June, 2), false)
	require.ErrorIs(t, err, shared.ErrOwnerRequired)
}

func TestGenerateProjectionsIsIdempotentPerDay(t *testing.T) {
	repo := newMemoryRepo()
	engine := newTestEngine(repo, nil, zeroLedger())
	ctx := context.Background()

	_, err := engine.GenerateProjections(ctx, "owner-1", day(2024, time.June, 1), day(2024, time.June, 5), false)
	require.NoError(t, err)
	_, err = engine.GenerateProjections(ctx, "owner-1", day(2024, time.June, 1), day(2024, time.June, 5), false)
	require.NoError(t, err)

	records, err := engine.GetProjections(ctx, "owner-1", day(2024, time.June, 1), day(2024, time.June, 5))
	require.NoError(t, err)
	require.Len(t, records, 5)
}

func TestUpdateActualsBootstrapsMissingRecord(t *testing.T) {
	repo := newMemoryRepo()
	engine := newTestEngine(repo, nil, zeroLedger())

	rec, err := engine.UpdateActuals(context.Background(), "owner-1", day(2024, time.June, 1),
		decimal.NewFromInt(200), decimal.NewFromInt(80))
	require.NoError(t, err)

	require.True(t, rec.HasActuals())
	require.True(t, rec.ActualBalance.Equal(decimal.NewFromInt(120)))
	// A missing record adopts the actuals as its projection.
	require.True(t, rec.ProjectedIncome.Equal(decimal.NewFromInt(200)))
	require.True(t, rec.ProjectedExpenses.Equal(decimal.NewFromInt(80)))
}

func TestUpdateActualsPreservesProjection(t *testing.T) {
	repo := newMemoryRepo()
	engine := newTestEngine(repo, nil, zeroLedger())
	ctx := context.Background()

	_, err := engine.GenerateProjections(ctx, "owner-1", day(2024, time.June, 1), day(2024, time.June, 1), false)
	require.NoError(t, err)

	rec, err := engine.UpdateActuals(ctx, "owner-1", day(2024, time.June, 1),
		decimal.NewFromInt(500), decimal.NewFromInt(100))
	require.NoError(t, err)
	require.True(t, rec.ProjectedIncome.IsZero())
	require.True(t, rec.ActualIncome.Equal(decimal.NewFromInt(500)))
}

func TestUpdateActualsFromLedger(t *testing.T) {
	repo := newMemoryRepo()
	led := staticLedger{totals: map[string]ledger.Totals{
		"2024-06-01": {Income: decimal.NewFromInt(300), Expenses: decimal.NewFromInt(120)},
	}}
	engine := newTestEngine(repo, nil, led)

	rec, err := engine.UpdateActualsFromLedger(context.Background(), "owner-1", day(2024, time.June, 1))
	require.NoError(t, err)
	require.True(t, rec.ActualIncome.Equal(decimal.NewFromInt(300)))
	require.True(t, rec.ActualExpenses.Equal(decimal.NewFromInt(120)))
	require.True(t, rec.ActualBalance.Equal(decimal.NewFromInt(180)))
}

func TestAnalyzeVariance(t *testing.T) {
	income := decimal.NewFromInt(110)
	expenses := decimal.NewFromInt(45)
	balance := income.Sub(expenses)
	rec := Record{
		ProjectedIncome:   decimal.NewFromInt(100),
		ProjectedExpenses: decimal.NewFromInt(50),
		ProjectedBalance:  decimal.NewFromInt(50),
		ActualIncome:      &income,
		ActualExpenses:    &expenses,
		ActualBalance:     &balance,
	}

	analysis := Analyze(rec)
	require.NotNil(t, analysis.Accuracy)
	require.InDelta(t, 10.0, *analysis.IncomeVariancePct, 0.0001)
	require.InDelta(t, -10.0, *analysis.ExpenseVariancePct, 0.0001)
	// Accuracy = 100 - (|10| + |-10|)/2.
	require.InDelta(t, 90.0, *analysis.Accuracy, 0.0001)
}

func TestAnalyzeZeroBaseYieldsZeroPct(t *testing.T) {
	income := decimal.NewFromInt(100)
	expenses := decimal.Zero
	balance := decimal.NewFromInt(100)
	rec := Record{
		ProjectedIncome:   decimal.Zero,
		ProjectedExpenses: decimal.Zero,
		ProjectedBalance:  decimal.Zero,
		ActualIncome:      &income,
		ActualExpenses:    &expenses,
		ActualBalance:     &balance,
	}

	analysis := Analyze(rec)
	require.Equal(t, 0.0, *analysis.IncomeVariancePct)
	require.Equal(t, 0.0, *analysis.BalanceVariancePct)
	require.InDelta(t, 100.0, *analysis.Accuracy, 0.0001)
}

func TestAnalyzeWithoutActuals(t *testing.T) {
	analysis := Analyze(Record{ProjectedIncome: decimal.NewFromInt(10)})
	require.Nil(t, analysis.Accuracy)
	require.Nil(t, analysis.IncomeVariance)
}
