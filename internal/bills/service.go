package bills

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/centbook/centbook/internal/shared"
)

// Service tracks bills: due-soon and overdue classification, payment
// marking and monthly-equivalent aggregation.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the tracker. The notifier may be nil; reminder scans
// then only log.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

// Create validates and persists a bill.
func (s *Service) Create(ctx context.Context, input CreateBillInput) (Bill, error) {
	if err := input.Validate(); err != nil {
		return Bill{}, err
	}
	now := s.now().UTC()
	bill := Bill{
		ID:           uuid.NewString(),
		OwnerID:      input.OwnerID,
		Payee:        input.Payee,
		Amount:       input.Amount,
		Frequency:    input.Frequency,
		ReminderDays: input.ReminderDays,
		NextDueDate:  shared.Day(input.FirstDueDate),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, bill); err != nil {
		return Bill{}, fmt.Errorf("bills: create bill: %w", err)
	}
	return bill, nil
}

// Update applies mutable fields.
func (s *Service) Update(ctx context.Context, ownerID, id string, input UpdateBillInput) (Bill, error) {
	if err := input.Validate(); err != nil {
		return Bill{}, err
	}
	bill, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Bill{}, err
	}
	if input.Payee != nil {
		bill.Payee = *input.Payee
	}
	if input.Amount != nil {
		bill.Amount = *input.Amount
	}
	if input.ReminderDays != nil {
		bill.ReminderDays = *input.ReminderDays
	}
	if input.Active != nil {
		bill.Active = *input.Active
	}
	bill.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, bill); err != nil {
		return Bill{}, err
	}
	return bill, nil
}

// Delete removes a bill owned by the caller.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// Get returns a single bill.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Bill, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns the owner's bills.
func (s *Service) List(ctx context.Context, ownerID string, activeOnly bool) ([]Bill, error) {
	return s.repo.List(ctx, ownerID, activeOnly)
}

// UpcomingBill pairs a bill with its status.
type UpcomingBill struct {
	Bill   Bill   `json:"bill"`
	Status Status `json:"status"`
}

// GetUpcoming returns active bills that are overdue or inside their
// reminder window as of asOf.
func (s *Service) GetUpcoming(ctx context.Context, ownerID string, asOf time.Time) ([]UpcomingBill, error) {
	if ownerID == "" {
		return nil, shared.ErrOwnerRequired
	}
	billsList, err := s.repo.List(ctx, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("bills: list: %w", err)
	}
	asOf = shared.Day(asOf)
	var out []UpcomingBill
	for _, bill := range billsList {
		status := GetStatus(bill, asOf)
		if status.ShouldRemind || status.IsOverdue {
			out = append(out, UpcomingBill{Bill: bill, Status: status})
		}
	}
	return out, nil
}

// MarkPaid records a payment and rolls the due date forward one cycle.
func (s *Service) MarkPaid(ctx context.Context, ownerID, id string, paidDate time.Time) (Bill, error) {
	bill, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Bill{}, err
	}
	paid := shared.Day(paidDate)
	next := Advance(bill.NextDueDate, bill.Frequency)
	if err := s.repo.SetPayment(ctx, PaymentUpdate{
		OwnerID:      ownerID,
		BillID:       id,
		IsPaid:       true,
		LastPaidDate: &paid,
		NextDueDate:  &next,
	}); err != nil {
		return Bill{}, err
	}
	bill.IsPaid = true
	bill.LastPaidDate = &paid
	bill.NextDueDate = next
	return bill, nil
}

// MarkUnpaid reverses the paid flag only; the due date stays where the
// payment advanced it.
func (s *Service) MarkUnpaid(ctx context.Context, ownerID, id string) (Bill, error) {
	bill, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Bill{}, err
	}
	if err := s.repo.SetPayment(ctx, PaymentUpdate{
		OwnerID: ownerID,
		BillID:  id,
		IsPaid:  false,
	}); err != nil {
		return Bill{}, err
	}
	bill.IsPaid = false
	return bill, nil
}

// GetSummary aggregates the owner's bills using the fixed
// monthly-equivalent factors.
func (s *Service) GetSummary(ctx context.Context, ownerID string) (Summary, error) {
	if ownerID == "" {
		return Summary{}, shared.ErrOwnerRequired
	}
	all, err := s.repo.List(ctx, ownerID, false)
	if err != nil {
		return Summary{}, fmt.Errorf("bills: list: %w", err)
	}
	today := shared.Day(s.now())
	summary := Summary{
		TotalBills:         len(all),
		TotalMonthlyAmount: decimal.Zero,
		TotalYearlyAmount:  decimal.Zero,
		AverageBillAmount:  decimal.Zero,
	}
	for _, bill := range all {
		if !bill.Active {
			continue
		}
		summary.ActiveBills++
		if bill.IsPaid {
			summary.PaidBills++
		}
		status := GetStatus(bill, today)
		if status.IsOverdue {
			summary.OverdueBills++
		}
		if status.ShouldRemind {
			summary.DueSoonBills++
		}
		summary.TotalMonthlyAmount = summary.TotalMonthlyAmount.Add(MonthlyEquivalent(bill.Amount, bill.Frequency))
	}
	summary.TotalYearlyAmount = summary.TotalMonthlyAmount.Mul(decimal.NewFromInt(12))
	if summary.ActiveBills > 0 {
		summary.AverageBillAmount = summary.TotalMonthlyAmount.DivRound(decimal.NewFromInt(int64(summary.ActiveBills)), 4)
	}
	return summary, nil
}

// ScanReminders walks every remindable bill and delivers a notification
// per bill. Per-bill failures are collected; the scan never fails
// because one notification failed.
func (s *Service) ScanReminders(ctx context.Context, asOf time.Time) (shared.BatchResult, error) {
	var result shared.BatchResult
	remindable, err := s.repo.ListRemindable(ctx, shared.Day(asOf))
	if err != nil {
		return result, fmt.Errorf("bills: list remindable: %w", err)
	}
	for _, bill := range remindable {
		status := GetStatus(bill, asOf)
		if !status.ShouldRemind && !status.IsOverdue {
			continue
		}
		notification := Notification{
			OwnerID:      bill.OwnerID,
			BillID:       bill.ID,
			Payee:        bill.Payee,
			Amount:       bill.Amount.String(),
			DueDate:      bill.NextDueDate,
			DaysUntilDue: status.DaysUntilDue,
			Overdue:      status.IsOverdue,
		}
		if s.notifier == nil {
			s.logger.Info("bill reminder",
				slog.String("owner_id", bill.OwnerID),
				slog.String("payee", bill.Payee),
				slog.Int("days_until_due", status.DaysUntilDue))
			result.Processed++
			continue
		}
		if err := s.notifier.Notify(ctx, notification); err != nil {
			s.logger.Error("deliver bill reminder", slog.String("bill_id", bill.ID), slog.Any("error", err))
			result.RecordFailure(bill.ID, err)
			continue
		}
		result.Processed++
	}
	return result, nil
}
