package projection

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centbook/centbook/internal/ledger"
	"github.com/centbook/centbook/internal/recurring"
	"github.com/centbook/centbook/internal/shared"
)

// maxRangeDays bounds a single generation run.
const maxRangeDays = 730

// Engine builds day-level cash-flow projections by blending historical
// daily averages with scheduled recurring occurrences, and reconciles
// them against actuals.
type Engine struct {
	repo        Repository
	definitions recurring.DefinitionSource
	ledger      ledger.Reader
	logger      *slog.Logger
}

// NewEngine wires the projection engine.
func NewEngine(repo Repository, definitions recurring.DefinitionSource, ledgerReader ledger.Reader, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, definitions: definitions, ledger: ledgerReader, logger: logger}
}

// GenerateProjections upserts one record per calendar day in
// [start, end] inclusive. When includeHistorical is set, each day is
// seeded with the trailing 90-day daily average before recurring
// occurrences are added. Debt and receivable kinds never enter
// cash-flow totals.
func (e *Engine) GenerateProjections(ctx context.Context, ownerID string, start, end time.Time, includeHistorical bool) ([]Record, error) {
	if ownerID == "" {
		return nil, shared.ErrOwnerRequired
	}
	start, end = shared.Day(start), shared.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date precedes start date", ErrValidation)
	}
	if shared.DaysBetween(start, end) >= maxRangeDays {
		return nil, fmt.Errorf("%w: range exceeds %d days", ErrValidation, maxRangeDays)
	}

	dailyIncome, dailyExpenses := decimal.Zero, decimal.Zero
	if includeHistorical {
		var err error
		dailyIncome, dailyExpenses, err = e.historicalDailyAverage(ctx, ownerID, start)
		if err != nil {
			return nil, err
		}
	}

	defs, err := e.definitions.ListActive(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("projection: list definitions: %w", err)
	}

	var records []Record
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		income, expenses := dailyIncome, dailyExpenses
		for _, def := range defs {
			if !recurring.IsDueOn(def, day) {
				continue
			}
			switch def.Kind {
			case recurring.KindIncome:
				income = income.Add(def.Amount)
			case recurring.KindExpense:
				expenses = expenses.Add(def.Amount)
			}
		}
		rec, err := e.repo.UpsertProjection(ctx, Record{
			OwnerID:           ownerID,
			Date:              day,
			ProjectedIncome:   income,
			ProjectedExpenses: expenses,
			ProjectedBalance:  income.Sub(expenses),
		})
		if err != nil {
			return nil, fmt.Errorf("projection: upsert %s: %w", shared.FormatDate(day), err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// UpdateActuals records actual figures for one day. A missing record is
// created with the actuals as both projected and actual fields rather
// than failing.
func (e *Engine) UpdateActuals(ctx context.Context, ownerID string, date time.Time, actualIncome, actualExpenses decimal.Decimal) (Record, error) {
	if ownerID == "" {
		return Record{}, shared.ErrOwnerRequired
	}
	balance := actualIncome.Sub(actualExpenses)
	rec, err := e.repo.UpsertActuals(ctx, Record{
		OwnerID:        ownerID,
		Date:           shared.Day(date),
		ActualIncome:   &actualIncome,
		ActualExpenses: &actualExpenses,
		ActualBalance:  &balance,
	})
	if err != nil {
		return Record{}, fmt.Errorf("projection: upsert actuals: %w", err)
	}
	return rec, nil
}

// UpdateActualsFromLedger derives a day's actual totals from the ledger
// and records them.
func (e *Engine) UpdateActualsFromLedger(ctx context.Context, ownerID string, date time.Time) (Record, error) {
	totals, err := e.ledger.DayTotals(ctx, ownerID, date)
	if err != nil {
		return Record{}, fmt.Errorf("projection: ledger day totals: %w", err)
	}
	return e.UpdateActuals(ctx, ownerID, date, totals.Income, totals.Expenses)
}

// GetProjections returns stored records in [from, to] inclusive.
func (e *Engine) GetProjections(ctx context.Context, ownerID string, from, to time.Time) ([]Record, error) {
	if ownerID == "" {
		return nil, shared.ErrOwnerRequired
	}
	return e.repo.List(ctx, ownerID, from, to)
}

// GetCashFlowAnalysis annotates stored records with projected-vs-actual
// variance. Records without actuals carry no variance or accuracy.
func (e *Engine) GetCashFlowAnalysis(ctx context.Context, ownerID string, from, to time.Time) ([]Analysis, error) {
	records, err := e.GetProjections(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	analyses := make([]Analysis, 0, len(records))
	for _, rec := range records {
		analyses = append(analyses, Analyze(rec))
	}
	return analyses, nil
}

// Analyze computes variance for a single record.
func Analyze(rec Record) Analysis {
	analysis := Analysis{Record: rec}
	if !rec.HasActuals() {
		return analysis
	}
	incomeVar := rec.ActualIncome.Sub(rec.ProjectedIncome)
	expenseVar := rec.ActualExpenses.Sub(rec.ProjectedExpenses)
	actualBalance := rec.ActualIncome.Sub(*rec.ActualExpenses)
	if rec.ActualBalance != nil {
		actualBalance = *rec.ActualBalance
	}
	balanceVar := actualBalance.Sub(rec.ProjectedBalance)

	incomePct := variancePct(incomeVar, rec.ProjectedIncome)
	expensePct := variancePct(expenseVar, rec.ProjectedExpenses)
	balancePct := variancePct(balanceVar, rec.ProjectedBalance)
	accuracy := math.Max(0, 100-(math.Abs(incomePct)+math.Abs(expensePct))/2)

	analysis.IncomeVariance = &incomeVar
	analysis.ExpenseVariance = &expenseVar
	analysis.BalanceVariance = &balanceVar
	analysis.IncomeVariancePct = &incomePct
	analysis.ExpenseVariancePct = &expensePct
	analysis.BalanceVariancePct = &balancePct
	analysis.Accuracy = &accuracy
	return analysis
}

// variancePct normalizes a variance by its projected base. A zero base
// yields 0, never NaN or infinity.
func variancePct(variance, base decimal.Decimal) float64 {
	if base.IsZero() {
		return 0
	}
	return variance.Div(base).InexactFloat64() * 100
}

func (e *Engine) historicalDailyAverage(ctx context.Context, ownerID string, start time.Time) (decimal.Decimal, decimal.Decimal, error) {
	windowEnd := start.AddDate(0, 0, -1)
	windowStart := start.AddDate(0, 0, -historicalWindowDays)
	totals, err := e.ledger.TotalsBetween(ctx, ownerID, windowStart, windowEnd)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("projection: historical totals: %w", err)
	}
	window := decimal.NewFromInt(historicalWindowDays)
	return totals.Income.DivRound(window, 4), totals.Expenses.DivRound(window, 4), nil
}
