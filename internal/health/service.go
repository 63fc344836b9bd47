package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/centbook/centbook/internal/ledger"
	"github.com/centbook/centbook/internal/projection"
	"github.com/centbook/centbook/internal/recurring"
	"github.com/centbook/centbook/internal/shared"
)

// Component weights. They sum to 1.
const (
	weightSavingsRate     = 0.20
	weightDebtToIncome    = 0.20
	weightEmergencyFund   = 0.15
	weightBudgetVariance  = 0.15
	weightGoalProgress    = 0.10
	weightDiversification = 0.10
	weightCashFlowTrend   = 0.10
)

// Saturation points for the linear component mappings.
const (
	savingsRateTarget   = 20.0 // percent of income saved scores 100
	debtToIncomeCeiling = 40.0 // percent of income spent on debt scores 0
	emergencyFundTarget = 6.0  // months of expenses covered scores 100
	budgetVarianceFloor = 25.0 // percent deviation from budget scores 0
	assetClassTarget    = 5
	trendSpreadPct      = 10.0 // projected net of +-10% of income pins the scale
)

const trailingWindowDays = 90

// Service aggregates the weighted health score from the ledger,
// recurring obligations, the projection engine, and the external
// budget, goal, and investment sources.
type Service struct {
	ledger      ledger.Reader
	definitions recurring.DefinitionSource
	projections ProjectionSource
	budgets     BudgetSource
	goals       GoalSource
	investments InvestmentSource
	logger      *slog.Logger
	now         func() time.Time
}

// ProjectionSource is the narrow read view of the projection engine
// used for the cash flow trend component.
type ProjectionSource interface {
	GetProjections(ctx context.Context, ownerID string, from, to time.Time) ([]projection.Record, error)
}

func NewService(
	ledgerReader ledger.Reader,
	definitions recurring.DefinitionSource,
	projections ProjectionSource,
	budgets BudgetSource,
	goals GoalSource,
	investments InvestmentSource,
	logger *slog.Logger,
) *Service {
	return &Service{
		ledger:      ledgerReader,
		definitions: definitions,
		projections: projections,
		budgets:     budgets,
		goals:       goals,
		investments: investments,
		logger:      logger,
		now:         time.Now,
	}
}

// GetScore computes the owner's current financial health score. A
// component whose source fails or has no data scores neutrally rather
// than failing the whole aggregate.
func (s *Service) GetScore(ctx context.Context, ownerID string) (Score, error) {
	if ownerID == "" {
		return Score{}, shared.ErrOwnerRequired
	}

	today := shared.Day(s.now())
	windowStart := today.AddDate(0, 0, -trailingWindowDays)

	totals, err := s.ledger.TotalsBetween(ctx, ownerID, windowStart, today)
	if err != nil {
		return Score{}, err
	}
	three := decimal.NewFromInt(3)
	monthlyIncome := totals.Income.DivRound(three, 4)
	monthlyExpenses := totals.Expenses.DivRound(three, 4)

	// The remaining components hit independent sources, so gather them
	// concurrently. Each one degrades to a neutral score on failure
	// rather than returning an error.
	components := make([]Component, 7)
	components[0] = s.savingsRate(totals)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		components[1] = s.debtToIncome(gctx, ownerID, monthlyIncome)
		return nil
	})
	g.Go(func() error {
		components[2] = s.emergencyFund(gctx, ownerID, monthlyExpenses)
		return nil
	})
	g.Go(func() error {
		components[3] = s.budgetVariance(gctx, ownerID)
		return nil
	})
	g.Go(func() error {
		components[4] = s.goalProgress(gctx, ownerID)
		return nil
	})
	g.Go(func() error {
		components[5] = s.diversification(gctx, ownerID)
		return nil
	})
	g.Go(func() error {
		components[6] = s.cashFlowTrend(gctx, ownerID, today, monthlyIncome)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Score{}, err
	}

	var overall float64
	for i := range components {
		components[i].Weighted = components[i].Score * components[i].Weight
		overall += components[i].Weighted
	}

	return Score{
		Overall:         round1(overall),
		Tier:            tierFor(overall),
		Components:      components,
		Recommendations: recommendations(components),
	}, nil
}

func (s *Service) savingsRate(totals ledger.Totals) Component {
	c := Component{Name: "savings_rate", Weight: weightSavingsRate}
	if totals.Income.IsZero() {
		return c
	}
	rate, _ := totals.Income.Sub(totals.Expenses).
		Div(totals.Income).Mul(decimal.NewFromInt(100)).Float64()
	c.Score = saturate(rate, 0, savingsRateTarget)
	return c
}

func (s *Service) debtToIncome(ctx context.Context, ownerID string, monthlyIncome decimal.Decimal) Component {
	c := Component{Name: "debt_to_income", Weight: weightDebtToIncome}
	defs, err := s.definitions.ListActive(ctx, ownerID)
	if err != nil {
		s.logger.Warn("health: debt component unavailable", "owner_id", ownerID, "error", err)
		c.Score = 50
		return c
	}
	debt := decimal.Zero
	for _, d := range defs {
		if d.Kind == recurring.KindDebt {
			debt = debt.Add(monthlyObligation(d))
		}
	}
	if debt.IsZero() {
		c.Score = 100
		return c
	}
	if monthlyIncome.IsZero() {
		return c
	}
	ratio, _ := debt.Div(monthlyIncome).Mul(decimal.NewFromInt(100)).Float64()
	// Lower is better, so invert the scale.
	c.Score = 100 - saturate(ratio, 0, debtToIncomeCeiling)
	return c
}

func (s *Service) emergencyFund(ctx context.Context, ownerID string, monthlyExpenses decimal.Decimal) Component {
	c := Component{Name: "emergency_fund", Weight: weightEmergencyFund}
	balance, err := s.investments.LiquidBalance(ctx, ownerID)
	if err != nil {
		s.logger.Warn("health: emergency fund component unavailable", "owner_id", ownerID, "error", err)
		c.Score = 50
		return c
	}
	if monthlyExpenses.IsZero() {
		if balance.IsPositive() {
			c.Score = 100
		}
		return c
	}
	months, _ := balance.Div(monthlyExpenses).Float64()
	c.Score = saturate(months, 0, emergencyFundTarget)
	return c
}

func (s *Service) budgetVariance(ctx context.Context, ownerID string) Component {
	c := Component{Name: "budget_variance", Weight: weightBudgetVariance}
	variance, err := s.budgets.AverageVariancePct(ctx, ownerID)
	if err != nil {
		s.logger.Warn("health: budget component unavailable", "owner_id", ownerID, "error", err)
		c.Score = 50
		return c
	}
	if variance < 0 {
		variance = -variance
	}
	c.Score = 100 - saturate(variance, 0, budgetVarianceFloor)
	return c
}

func (s *Service) goalProgress(ctx context.Context, ownerID string) Component {
	c := Component{Name: "goal_progress", Weight: weightGoalProgress}
	progress, err := s.goals.AverageProgressPct(ctx, ownerID)
	if err != nil {
		s.logger.Warn("health: goal component unavailable", "owner_id", ownerID, "error", err)
		c.Score = 50
		return c
	}
	c.Score = saturate(progress, 0, 100)
	return c
}

func (s *Service) diversification(ctx context.Context, ownerID string) Component {
	c := Component{Name: "investment_diversification", Weight: weightDiversification}
	classes, err := s.investments.AssetClassCount(ctx, ownerID)
	if err != nil {
		s.logger.Warn("health: diversification component unavailable", "owner_id", ownerID, "error", err)
		c.Score = 50
		return c
	}
	c.Score = saturate(float64(classes), 0, assetClassTarget)
	return c
}

func (s *Service) cashFlowTrend(ctx context.Context, ownerID string, today time.Time, monthlyIncome decimal.Decimal) Component {
	c := Component{Name: "cash_flow_trend", Weight: weightCashFlowTrend, Score: 50}
	days, err := s.projections.GetProjections(ctx, ownerID, today, today.AddDate(0, 0, 30))
	if err != nil {
		s.logger.Warn("health: trend component unavailable", "owner_id", ownerID, "error", err)
		return c
	}
	if len(days) == 0 || monthlyIncome.IsZero() {
		return c
	}
	net := decimal.Zero
	for _, d := range days {
		net = net.Add(d.ProjectedBalance)
	}
	avg := net.DivRound(decimal.NewFromInt(int64(len(days))), 6)
	dailyIncome := monthlyIncome.DivRound(decimal.NewFromInt(30), 6)
	ratio, _ := avg.Div(dailyIncome).Mul(decimal.NewFromInt(100)).Float64()
	c.Score = saturate(ratio, -trendSpreadPct, trendSpreadPct)
	return c
}

// monthlyObligation converts a recurring amount to a per-month figure
// for ratio purposes.
func monthlyObligation(d recurring.Definition) decimal.Decimal {
	interval := int64(d.Interval)
	if interval < 1 {
		interval = 1
	}
	per := d.Amount.DivRound(decimal.NewFromInt(interval), 4)
	switch d.Frequency {
	case recurring.FrequencyDaily:
		return per.Mul(decimal.NewFromInt(30))
	case recurring.FrequencyWeekly:
		return per.Mul(decimal.RequireFromString("4.33"))
	case recurring.FrequencyYearly:
		return per.DivRound(decimal.NewFromInt(12), 4)
	default:
		return per
	}
}

// saturate maps v linearly from [lo, hi] onto [0, 100], clamping at
// both ends.
func saturate(v, lo, hi float64) float64 {
	if v <= lo {
		return 0
	}
	if v >= hi {
		return 100
	}
	return (v - lo) / (hi - lo) * 100
}

func tierFor(overall float64) RiskTier {
	switch {
	case overall >= 70:
		return RiskLow
	case overall >= 40:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func recommendations(components []Component) []string {
	recs := make([]string, 0, 3)
	for _, c := range components {
		if c.Score >= 50 {
			continue
		}
		switch c.Name {
		case "savings_rate":
			recs = append(recs, "Increase your savings rate; aim for at least 20% of income.")
		case "debt_to_income":
			recs = append(recs, "Reduce recurring debt payments relative to income.")
		case "emergency_fund":
			recs = append(recs, "Build an emergency fund covering 6 months of expenses.")
		case "budget_variance":
			recs = append(recs, "Spending is drifting from budget; review category budgets.")
		case "goal_progress":
			recs = append(recs, "Savings goals are behind schedule; consider automatic transfers.")
		case "investment_diversification":
			recs = append(recs, "Diversify holdings across more asset classes.")
		case "cash_flow_trend":
			recs = append(recs, "Projected cash flow is negative; trim upcoming expenses.")
		}
	}
	return recs
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
