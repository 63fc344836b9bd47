package health

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGSource reads the budget, goal, and account figures the aggregator
// consumes. Managing those records is outside this service; it only
// reads what other systems maintain.
type PGSource struct {
	pool *pgxpool.Pool
}

var (
	_ BudgetSource     = (*PGSource)(nil)
	_ GoalSource       = (*PGSource)(nil)
	_ InvestmentSource = (*PGSource)(nil)
)

func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{pool: pool}
}

// AverageVariancePct averages |spent - budgeted| / budgeted across the
// owner's current budgets, as a percentage.
func (s *PGSource) AverageVariancePct(ctx context.Context, ownerID string) (float64, error) {
	var pct *float64
	err := s.pool.QueryRow(ctx, `
		SELECT AVG(ABS(spent_amount - budget_amount) / budget_amount * 100)
		FROM budgets
		WHERE owner_id = $1 AND budget_amount > 0`, ownerID).Scan(&pct)
	if err != nil {
		return 0, err
	}
	if pct == nil {
		return 0, nil
	}
	return *pct, nil
}

// AverageProgressPct averages current/target completion across the
// owner's savings goals, capped at 100 per goal.
func (s *PGSource) AverageProgressPct(ctx context.Context, ownerID string) (float64, error) {
	var pct *float64
	err := s.pool.QueryRow(ctx, `
		SELECT AVG(LEAST(current_amount / target_amount * 100, 100))
		FROM savings_goals
		WHERE owner_id = $1 AND target_amount > 0`, ownerID).Scan(&pct)
	if err != nil {
		return 0, err
	}
	if pct == nil {
		return 0, nil
	}
	return *pct, nil
}

func (s *PGSource) AssetClassCount(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT asset_class)
		FROM investment_holdings
		WHERE owner_id = $1 AND quantity > 0`, ownerID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// LiquidBalance sums the owner's liquid account balances.
func (s *PGSource) LiquidBalance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(balance), 0)
		FROM accounts
		WHERE owner_id = $1 AND account_type IN ('checking', 'savings')`, ownerID).Scan(&balance)
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
