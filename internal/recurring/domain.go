package recurring

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency enumerates supported recurrence frequencies.
type Frequency string

const (
	// FrequencyDaily repeats every interval days.
	FrequencyDaily Frequency = "daily"
	// FrequencyWeekly repeats every interval weeks.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyMonthly repeats every interval calendar months.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyYearly repeats every interval years.
	FrequencyYearly Frequency = "yearly"
)

// ValidFrequency reports whether f is a supported frequency.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// EventKind enumerates the financial nature of a recurring event.
type EventKind string

const (
	KindIncome     EventKind = "income"
	KindExpense    EventKind = "expense"
	KindDebt       EventKind = "debt"
	KindReceivable EventKind = "receivable"
)

// ValidKind reports whether k is a supported event kind.
func ValidKind(k EventKind) bool {
	switch k {
	case KindIncome, KindExpense, KindDebt, KindReceivable:
		return true
	}
	return false
}

// Definition is a template describing a periodic financial event and its
// next due date. NextDueDate never moves backward; it only advances when
// an occurrence is materialized or skipped.
type Definition struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Kind        EventKind       `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Frequency   Frequency       `json:"frequency"`
	Interval    int             `json:"interval"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	NextDueDate time.Time       `json:"next_due_date"`
	Active      bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DueItem annotates a due definition for callers.
type DueItem struct {
	Definition     Definition `json:"definition"`
	DaysUntilDue   int        `json:"days_until_due"`
	IsOverdue      bool       `json:"is_overdue"`
	NextOccurrence time.Time  `json:"next_occurrence"`
}

// CreateDefinitionInput captures definition creation input.
type CreateDefinitionInput struct {
	OwnerID     string
	Kind        EventKind
	Amount      decimal.Decimal
	Currency    string
	Description string
	Category    string
	Frequency   Frequency
	Interval    int
	StartDate   time.Time
	EndDate     *time.Time
}

// ErrValidation wraps all validation violations found in an input.
var ErrValidation = errors.New("recurring: validation failed")

// Validate collects every violation into a single composite error.
func (in CreateDefinitionInput) Validate() error {
	var violations []string
	if strings.TrimSpace(in.OwnerID) == "" {
		violations = append(violations, "owner id is required")
	}
	if !ValidKind(in.Kind) {
		violations = append(violations, fmt.Sprintf("kind %q is not one of income, expense, debt, receivable", in.Kind))
	}
	if !in.Amount.IsPositive() {
		violations = append(violations, "amount must be positive")
	}
	if strings.TrimSpace(in.Description) == "" {
		violations = append(violations, "description is required")
	}
	if !ValidFrequency(in.Frequency) {
		violations = append(violations, fmt.Sprintf("frequency %q is not one of daily, weekly, monthly, yearly", in.Frequency))
	}
	if in.Interval < 1 {
		violations = append(violations, "interval must be at least 1")
	}
	if in.StartDate.IsZero() {
		violations = append(violations, "start date is required")
	}
	if in.EndDate != nil && !in.StartDate.IsZero() && in.EndDate.Before(in.StartDate) {
		violations = append(violations, "end date must not precede start date")
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(violations, "; "))
	}
	return nil
}

// UpdateDefinitionInput captures mutable definition fields. Nil pointers
// leave the current value in place.
type UpdateDefinitionInput struct {
	Amount      *decimal.Decimal
	Description *string
	Category    *string
	EndDate     *time.Time
}

// Validate checks the supplied fields.
func (in UpdateDefinitionInput) Validate() error {
	var violations []string
	if in.Amount != nil && !in.Amount.IsPositive() {
		violations = append(violations, "amount must be positive")
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		violations = append(violations, "description must not be empty")
	}
	if len(violations) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(violations, "; "))
	}
	return nil
}

// ErrDefinitionNotFound occurs when a definition id does not exist for
// the calling owner.
var ErrDefinitionNotFound = errors.New("recurring: definition not found")
