package bills

import (
	"context"
	"time"
)

// PaymentUpdate mutates a bill's payment state.
type PaymentUpdate struct {
	OwnerID      string
	BillID       string
	IsPaid       bool
	LastPaidDate *time.Time
	// NextDueDate is only written when non-nil (marking unpaid never
	// rolls the due date back).
	NextDueDate *time.Time
}

// Repository defines bill persistence.
type Repository interface {
	Create(ctx context.Context, bill Bill) error
	Update(ctx context.Context, bill Bill) error
	Delete(ctx context.Context, ownerID, id string) error
	Get(ctx context.Context, ownerID, id string) (Bill, error)
	List(ctx context.Context, ownerID string, activeOnly bool) ([]Bill, error)
	SetPayment(ctx context.Context, update PaymentUpdate) error
	// ListRemindable returns active unpaid bills across all owners whose
	// reminder window contains asOf, for the reminder scan job.
	ListRemindable(ctx context.Context, asOf time.Time) ([]Bill, error)
}

// Notification describes a reminder produced by the scan job.
type Notification struct {
	OwnerID      string    `json:"owner_id"`
	BillID       string    `json:"bill_id"`
	Payee        string    `json:"payee"`
	Amount       string    `json:"amount"`
	DueDate      time.Time `json:"due_date"`
	DaysUntilDue int       `json:"days_until_due"`
	Overdue      bool      `json:"overdue"`
}

// Notifier delivers reminder notifications. Delivery transport is
// outside this subsystem.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}
