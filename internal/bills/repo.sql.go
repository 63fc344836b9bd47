package bills

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centbook/centbook/internal/shared"
)

// PGRepository provides PostgreSQL backed bill persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const billColumns = `id, owner_id, payee, amount, frequency, reminder_days, is_paid, last_paid_date, next_due_date, is_active, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, bill Bill) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO bills
(`+billColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		bill.ID, bill.OwnerID, bill.Payee, bill.Amount, string(bill.Frequency),
		bill.ReminderDays, bill.IsPaid, bill.LastPaidDate, shared.Day(bill.NextDueDate),
		bill.Active, bill.CreatedAt, bill.UpdatedAt)
	return err
}

func (r *PGRepository) Update(ctx context.Context, bill Bill) error {
	tag, err := r.pool.Exec(ctx, `UPDATE bills
SET payee = $3, amount = $4, reminder_days = $5, is_active = $6, updated_at = $7
WHERE id = $1 AND owner_id = $2`,
		bill.ID, bill.OwnerID, bill.Payee, bill.Amount, bill.ReminderDays,
		bill.Active, bill.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bills WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, ownerID, id string) (Bill, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 AND owner_id = $2`, id, ownerID)
	bill, err := scanBill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, ErrBillNotFound
	}
	return bill, err
}

func (r *PGRepository) List(ctx context.Context, ownerID string, activeOnly bool) ([]Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE owner_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY next_due_date`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

func (r *PGRepository) SetPayment(ctx context.Context, update PaymentUpdate) error {
	var tag interface{ RowsAffected() int64 }
	var err error
	if update.NextDueDate != nil {
		tag, err = r.pool.Exec(ctx, `UPDATE bills
SET is_paid = $3, last_paid_date = $4, next_due_date = $5, updated_at = now()
WHERE id = $1 AND owner_id = $2`,
			update.BillID, update.OwnerID, update.IsPaid, update.LastPaidDate, shared.Day(*update.NextDueDate))
	} else {
		tag, err = r.pool.Exec(ctx, `UPDATE bills
SET is_paid = $3, updated_at = now()
WHERE id = $1 AND owner_id = $2`,
			update.BillID, update.OwnerID, update.IsPaid)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *PGRepository) ListRemindable(ctx context.Context, asOf time.Time) ([]Bill, error) {
	// reminder window: due date within reminder_days of asOf, or already
	// overdue and unpaid.
	rows, err := r.pool.Query(ctx, `SELECT `+billColumns+` FROM bills
WHERE is_active AND NOT is_paid AND next_due_date <= $1 + (reminder_days * INTERVAL '1 day')
ORDER BY owner_id, next_due_date`, shared.Day(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

func scanBill(row pgx.Row) (Bill, error) {
	var bill Bill
	var lastPaid *time.Time
	if err := row.Scan(&bill.ID, &bill.OwnerID, &bill.Payee, &bill.Amount,
		&bill.Frequency, &bill.ReminderDays, &bill.IsPaid, &lastPaid,
		&bill.NextDueDate, &bill.Active, &bill.CreatedAt, &bill.UpdatedAt); err != nil {
		return Bill{}, err
	}
	bill.LastPaidDate = lastPaid
	return bill, nil
}

func scanBills(rows pgx.Rows) ([]Bill, error) {
	var out []Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bill)
	}
	return out, rows.Err()
}
