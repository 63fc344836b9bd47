package recurring

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/centbook/centbook/internal/ledger"
	"github.com/centbook/centbook/internal/platform/db"
	"github.com/centbook/centbook/internal/shared"
)

// PGRepository provides PostgreSQL backed persistence for recurring
// definitions.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)
var _ DefinitionSource = (*PGRepository)(nil)

const definitionColumns = `id, owner_id, kind, amount, currency, description, category, frequency, recur_interval, start_date, end_date, next_due_date, is_active, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, def Definition) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO recurring_definitions
(`+definitionColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		def.ID, def.OwnerID, string(def.Kind), def.Amount, def.Currency,
		def.Description, def.Category, string(def.Frequency), def.Interval,
		shared.Day(def.StartDate), dayPtr(def.EndDate), shared.Day(def.NextDueDate),
		def.Active, def.CreatedAt, def.UpdatedAt)
	return err
}

func (r *PGRepository) Update(ctx context.Context, def Definition) error {
	tag, err := r.pool.Exec(ctx, `UPDATE recurring_definitions
SET amount = $3, description = $4, category = $5, end_date = $6, updated_at = $7
WHERE id = $1 AND owner_id = $2`,
		def.ID, def.OwnerID, def.Amount, def.Description, def.Category,
		dayPtr(def.EndDate), def.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDefinitionNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recurring_definitions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDefinitionNotFound
	}
	return nil
}

func (r *PGRepository) Get(ctx context.Context, ownerID, id string) (Definition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+definitionColumns+` FROM recurring_definitions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	def, err := scanDefinition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Definition{}, ErrDefinitionNotFound
	}
	return def, err
}

func (r *PGRepository) List(ctx context.Context, ownerID string, activeOnly bool) ([]Definition, error) {
	query := `SELECT ` + definitionColumns + ` FROM recurring_definitions WHERE owner_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY next_due_date`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDefinitions(rows)
}

// ListActive satisfies the projection engine's DefinitionSource port.
func (r *PGRepository) ListActive(ctx context.Context, ownerID string) ([]Definition, error) {
	return r.List(ctx, ownerID, true)
}

func (r *PGRepository) ListDue(ctx context.Context, ownerID string, asOf time.Time) ([]Definition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+definitionColumns+` FROM recurring_definitions
WHERE owner_id = $1 AND is_active AND next_due_date <= $2
ORDER BY next_due_date`, ownerID, shared.Day(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDefinitions(rows)
}

func (r *PGRepository) ListOwnersDue(ctx context.Context, asOf time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT owner_id FROM recurring_definitions
WHERE is_active AND next_due_date <= $1 ORDER BY owner_id`, shared.Day(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

// ListActiveOwners returns every owner with at least one active
// definition, used by the projection refresh job.
func (r *PGRepository) ListActiveOwners(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT owner_id FROM recurring_definitions WHERE is_active ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func (r *PGRepository) SetActive(ctx context.Context, ownerID, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE recurring_definitions SET is_active = $3, updated_at = now() WHERE id = $1 AND owner_id = $2`, id, ownerID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDefinitionNotFound
	}
	return nil
}

// Materialize inserts the entry and advances the definition in one
// transaction. The advance is conditional on next_due_date still holding
// the value the scheduler read; losing the race rolls the insert back.
func (r *PGRepository) Materialize(ctx context.Context, params MaterializeParams) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := advanceTx(ctx, tx, AdvanceParams{
			OwnerID:      params.OwnerID,
			DefinitionID: params.DefinitionID,
			ExpectedDue:  params.ExpectedDue,
			NextDue:      params.NextDue,
			Deactivate:   params.Deactivate,
		}); err != nil {
			return err
		}
		return ledger.CreateEntryTx(ctx, tx, params.Entry)
	})
}

// Advance applies the conditional advance without materializing.
func (r *PGRepository) Advance(ctx context.Context, params AdvanceParams) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return advanceTx(ctx, tx, params)
	})
}

func advanceTx(ctx context.Context, tx pgx.Tx, params AdvanceParams) error {
	var (
		tag interface{ RowsAffected() int64 }
		err error
	)
	if params.Deactivate {
		tag, err = tx.Exec(ctx, `UPDATE recurring_definitions
SET is_active = false, updated_at = now()
WHERE id = $1 AND owner_id = $2 AND next_due_date = $3`,
			params.DefinitionID, params.OwnerID, shared.Day(params.ExpectedDue))
	} else {
		tag, err = tx.Exec(ctx, `UPDATE recurring_definitions
SET next_due_date = $4, updated_at = now()
WHERE id = $1 AND owner_id = $2 AND next_due_date = $3`,
			params.DefinitionID, params.OwnerID, shared.Day(params.ExpectedDue), shared.Day(params.NextDue))
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConcurrentUpdate
	}
	return nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	day := shared.Day(*t)
	return &day
}

func scanDefinition(row pgx.Row) (Definition, error) {
	var def Definition
	var endDate *time.Time
	if err := row.Scan(&def.ID, &def.OwnerID, &def.Kind, &def.Amount, &def.Currency,
		&def.Description, &def.Category, &def.Frequency, &def.Interval,
		&def.StartDate, &endDate, &def.NextDueDate, &def.Active,
		&def.CreatedAt, &def.UpdatedAt); err != nil {
		return Definition{}, err
	}
	def.EndDate = endDate
	return def, nil
}

func scanDefinitions(rows pgx.Rows) ([]Definition, error) {
	var defs []Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
