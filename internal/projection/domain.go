package projection

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a per-day forecasted (and optionally actual) cash-flow
// snapshot, keyed uniquely by (owner, date). Records are created or
// updated via upsert and never deleted by this subsystem.
type Record struct {
	OwnerID           string           `json:"owner_id"`
	Date              time.Time        `json:"date"`
	ProjectedIncome   decimal.Decimal  `json:"projected_income"`
	ProjectedExpenses decimal.Decimal  `json:"projected_expenses"`
	ProjectedBalance  decimal.Decimal  `json:"projected_balance"`
	ActualIncome      *decimal.Decimal `json:"actual_income,omitempty"`
	ActualExpenses    *decimal.Decimal `json:"actual_expenses,omitempty"`
	ActualBalance     *decimal.Decimal `json:"actual_balance,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// HasActuals reports whether actual figures have been recorded.
func (r Record) HasActuals() bool {
	return r.ActualIncome != nil && r.ActualExpenses != nil
}

// Analysis is a record annotated with projected-vs-actual variance.
// Variance fields are nil when the record has no actuals.
type Analysis struct {
	Record             Record           `json:"record"`
	IncomeVariance     *decimal.Decimal `json:"income_variance,omitempty"`
	ExpenseVariance    *decimal.Decimal `json:"expense_variance,omitempty"`
	BalanceVariance    *decimal.Decimal `json:"balance_variance,omitempty"`
	IncomeVariancePct  *float64         `json:"income_variance_pct,omitempty"`
	ExpenseVariancePct *float64         `json:"expense_variance_pct,omitempty"`
	BalanceVariancePct *float64         `json:"balance_variance_pct,omitempty"`
	Accuracy           *float64         `json:"accuracy,omitempty"`
}

// ForecastPoint is one day of the forward-looking forecast.
type ForecastPoint struct {
	Date              time.Time       `json:"date"`
	ProjectedIncome   decimal.Decimal `json:"projected_income"`
	ProjectedExpenses decimal.Decimal `json:"projected_expenses"`
	ProjectedBalance  decimal.Decimal `json:"projected_balance"`
	CumulativeBalance decimal.Decimal `json:"cumulative_balance"`
	Confidence        float64         `json:"confidence"`
}

var (
	// ErrRecordNotFound occurs when no projection exists for a date.
	ErrRecordNotFound = errors.New("projection: record not found")
	// ErrValidation indicates invalid engine input.
	ErrValidation = errors.New("projection: validation failed")
)

// historicalWindowDays is the trailing window used both for the
// historical daily average seed and the forecast base confidence.
const historicalWindowDays = 90
