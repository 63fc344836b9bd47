package bills

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency enumerates bill cadences. The set differs from recurring
// definitions (no daily, adds quarterly) and the two are kept separate
// on purpose.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// ValidFrequency reports whether f is a supported bill frequency.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Bill describes a recurring obligation with a reminder lead time.
type Bill struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Payee        string          `json:"payee"`
	Amount       decimal.Decimal `json:"amount"`
	Frequency    Frequency       `json:"frequency"`
	ReminderDays int             `json:"reminder_days"`
	IsPaid       bool            `json:"is_paid"`
	LastPaidDate *time.Time      `json:"last_paid_date,omitempty"`
	NextDueDate  time.Time       `json:"next_due_date"`
	Active       bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Status classifies a bill relative to a reference day.
type Status struct {
	DaysUntilDue int  `json:"days_until_due"`
	IsOverdue    bool `json:"is_overdue"`
	ShouldRemind bool `json:"should_remind"`
}

// Summary aggregates an owner's bills. Monetary totals cover active
// bills normalized to a monthly basis.
type Summary struct {
	TotalBills         int             `json:"total_bills"`
	ActiveBills        int             `json:"active_bills"`
	PaidBills          int             `json:"paid_bills"`
	OverdueBills       int             `json:"overdue_bills"`
	DueSoonBills       int             `json:"due_soon_bills"`
	TotalMonthlyAmount decimal.Decimal `json:"total_monthly_amount"`
	TotalYearlyAmount  decimal.Decimal `json:"total_yearly_amount"`
	AverageBillAmount  decimal.Decimal `json:"average_bill_amount"`
}

// CreateBillInput captures bill creation input.
type CreateBillInput struct {
	OwnerID      string
	Payee        string
	Amount       decimal.Decimal
	Frequency    Frequency
	ReminderDays int
	FirstDueDate time.Time
}

// ErrValidation wraps all validation violations found in an input.
var ErrValidation = errors.New("bills: validation failed")

// Validate collects every violation into a single composite error.
func (in CreateBillInput) Validate() error {
	var violations []string
	if strings.TrimSpace(in.OwnerID) == "" {
		violations = append(violations, "owner id is required")
	}
	if strings.TrimSpace(in.Payee) == "" {
		violations = append(violations, "payee is required")
	}
	if !in.Amount.IsPositive() {
		violations = append(violations, "amount must be positive")
	}
	if !ValidFrequency(in.Frequency) {
		violations = append(violations, fmt.Sprintf("frequency %q is not one of weekly, monthly, quarterly, yearly", in.Frequency))
	}
	if in.ReminderDays < 0 {
		violations = append(violations, "reminder days must not be negative")
	}
	if in.FirstDueDate.IsZero() {
		violations = append(violations, "first due date is required")
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(violations, "; "))
	}
	return nil
}

// UpdateBillInput captures mutable bill fields.
type UpdateBillInput struct {
	Payee        *string
	Amount       *decimal.Decimal
	ReminderDays *int
	Active       *bool
}

// Validate checks the supplied fields.
func (in UpdateBillInput) Validate() error {
	var violations []string
	if in.Payee != nil && strings.TrimSpace(*in.Payee) == "" {
		violations = append(violations, "payee must not be empty")
	}
	if in.Amount != nil && !in.Amount.IsPositive() {
		violations = append(violations, "amount must be positive")
	}
	if in.ReminderDays != nil && *in.ReminderDays < 0 {
		violations = append(violations, "reminder days must not be negative")
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(violations, "; "))
	}
	return nil
}

// ErrBillNotFound occurs when a bill id does not exist for the calling
// owner.
var ErrBillNotFound = errors.New("bills: bill not found")

var (
	weeksPerMonth = decimal.RequireFromString("4.33")
	three         = decimal.NewFromInt(3)
	twelve        = decimal.NewFromInt(12)
)

// MonthlyEquivalent normalizes a bill amount to a monthly basis. The
// weekly factor of 4.33 is the average-weeks-per-month approximation and
// is fixed; reporting parity depends on these exact factors.
func MonthlyEquivalent(amount decimal.Decimal, freq Frequency) decimal.Decimal {
	switch freq {
	case FrequencyWeekly:
		return amount.Mul(weeksPerMonth)
	case FrequencyQuarterly:
		return amount.DivRound(three, 4)
	case FrequencyYearly:
		return amount.DivRound(twelve, 4)
	default:
		return amount
	}
}
