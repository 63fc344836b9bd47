package projection

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/centbook/centbook/internal/shared"
)

// PGRepository provides PostgreSQL backed projection persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const recordColumns = `owner_id, projection_date, projected_income, projected_expenses, projected_balance, actual_income, actual_expenses, actual_balance, created_at, updated_at`

// UpsertProjection writes projected figures, preserving actuals.
func (r *PGRepository) UpsertProjection(ctx context.Context, rec Record) (Record, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO cashflow_projections
(owner_id, projection_date, projected_income, projected_expenses, projected_balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (owner_id, projection_date) DO UPDATE
SET projected_income = EXCLUDED.projected_income,
    projected_expenses = EXCLUDED.projected_expenses,
    projected_balance = EXCLUDED.projected_balance,
    updated_at = now()
RETURNING `+recordColumns,
		rec.OwnerID, shared.Day(rec.Date), rec.ProjectedIncome, rec.ProjectedExpenses, rec.ProjectedBalance)
	return scanRecord(row)
}

// UpsertActuals writes actual figures. A missing row is bootstrapped
// with the actuals doubling as the projected figures.
func (r *PGRepository) UpsertActuals(ctx context.Context, rec Record) (Record, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO cashflow_projections
(owner_id, projection_date, projected_income, projected_expenses, projected_balance, actual_income, actual_expenses, actual_balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $3, $4, $5, now(), now())
ON CONFLICT (owner_id, projection_date) DO UPDATE
SET actual_income = EXCLUDED.actual_income,
    actual_expenses = EXCLUDED.actual_expenses,
    actual_balance = EXCLUDED.actual_balance,
    updated_at = now()
RETURNING `+recordColumns,
		rec.OwnerID, shared.Day(rec.Date), derefOrZero(rec.ActualIncome), derefOrZero(rec.ActualExpenses), derefOrZero(rec.ActualBalance))
	return scanRecord(row)
}

func (r *PGRepository) Get(ctx context.Context, ownerID string, date time.Time) (Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM cashflow_projections
WHERE owner_id = $1 AND projection_date = $2`, ownerID, shared.Day(date))
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (r *PGRepository) List(ctx context.Context, ownerID string, from, to time.Time) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+` FROM cashflow_projections
WHERE owner_id = $1 AND projection_date BETWEEN $2 AND $3
ORDER BY projection_date`, ownerID, shared.Day(from), shared.Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	if err := row.Scan(&rec.OwnerID, &rec.Date,
		&rec.ProjectedIncome, &rec.ProjectedExpenses, &rec.ProjectedBalance,
		&rec.ActualIncome, &rec.ActualExpenses, &rec.ActualBalance,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func derefOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
