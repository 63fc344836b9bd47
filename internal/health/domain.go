package health

import (
	"context"

	"github.com/shopspring/decimal"
)

// RiskTier buckets an overall score.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Component is one weighted contributor to the overall score.
type Component struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// Score is the aggregated financial health result.
type Score struct {
	Overall         float64     `json:"overall"`
	Tier            RiskTier    `json:"tier"`
	Components      []Component `json:"components"`
	Recommendations []string    `json:"recommendations"`
}

// BudgetSource reports budget adherence. Budget CRUD lives outside this
// subsystem.
type BudgetSource interface {
	// AverageVariancePct is the mean absolute percentage by which
	// spending deviated from budget over the recent period.
	AverageVariancePct(ctx context.Context, ownerID string) (float64, error)
}

// GoalSource reports savings goal progress.
type GoalSource interface {
	// AverageProgressPct is the mean completion percentage across the
	// owner's goals, in [0, 100].
	AverageProgressPct(ctx context.Context, ownerID string) (float64, error)
}

// InvestmentSource reports portfolio shape and liquid reserves.
type InvestmentSource interface {
	AssetClassCount(ctx context.Context, ownerID string) (int, error)
	LiquidBalance(ctx context.Context, ownerID string) (decimal.Decimal, error)
}
