package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/centbook/centbook/internal/shared"
)

// Repository provides PostgreSQL backed ledger persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Reader = (*Repository)(nil)
var _ Writer = (*Repository)(nil)

// execer is satisfied by both pgxpool.Pool and pgx.Tx so the entry
// insert can run standalone or inside the scheduler's transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CreateEntry inserts a ledger entry.
func (r *Repository) CreateEntry(ctx context.Context, entry Entry) error {
	return createEntry(ctx, r.pool, entry)
}

// CreateEntryTx inserts a ledger entry inside an existing transaction.
// The scheduler uses it so materialization and the due-date advance
// commit or roll back together.
func CreateEntryTx(ctx context.Context, tx pgx.Tx, entry Entry) error {
	return createEntry(ctx, tx, entry)
}

func createEntry(ctx context.Context, q execer, entry Entry) error {
	_, err := q.Exec(ctx, `INSERT INTO ledger_entries
(id, owner_id, kind, amount, currency, description, category, transaction_date, status, source_definition_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)`,
		entry.ID, entry.OwnerID, entry.Kind, entry.Amount, entry.Currency,
		entry.Description, entry.Category, shared.Day(entry.TransactionDate),
		string(entry.Status), entry.SourceDefinitionID, entry.CreatedAt)
	return err
}

// TotalsBetween sums active entries over [from, to] inclusive.
func (r *Repository) TotalsBetween(ctx context.Context, ownerID string, from, to time.Time) (Totals, error) {
	row := r.pool.QueryRow(ctx, `SELECT
COALESCE(SUM(amount) FILTER (WHERE kind = 'income'), 0),
COALESCE(SUM(amount) FILTER (WHERE kind = 'expense'), 0)
FROM ledger_entries
WHERE owner_id = $1 AND status = 'active' AND transaction_date BETWEEN $2 AND $3`,
		ownerID, shared.Day(from), shared.Day(to))
	return scanTotals(row)
}

// DayTotals sums active entries for one calendar day.
func (r *Repository) DayTotals(ctx context.Context, ownerID string, date time.Time) (Totals, error) {
	day := shared.Day(date)
	return r.TotalsBetween(ctx, ownerID, day, day)
}

func scanTotals(row pgx.Row) (Totals, error) {
	var income, expenses decimal.Decimal
	if err := row.Scan(&income, &expenses); err != nil {
		return Totals{}, err
	}
	return Totals{Income: income, Expenses: expenses}, nil
}
