package recurring

import (
	"context"
	"time"

	"github.com/centbook/centbook/internal/ledger"
)

// MaterializeParams is the atomic unit of due processing: insert the
// materialized entry and advance (or deactivate) the definition in one
// transaction, guarded by the expected previous due date.
type MaterializeParams struct {
	OwnerID      string
	DefinitionID string
	// ExpectedDue is the optimistic concurrency token: the advance only
	// commits while next_due_date still equals the value read.
	ExpectedDue time.Time
	NextDue     time.Time
	Deactivate  bool
	Entry       ledger.Entry
}

// AdvanceParams advances a definition without materializing, used to
// intentionally skip one occurrence.
type AdvanceParams struct {
	OwnerID      string
	DefinitionID string
	ExpectedDue  time.Time
	NextDue      time.Time
	Deactivate   bool
}

// Repository defines recurring definition persistence.
type Repository interface {
	Create(ctx context.Context, def Definition) error
	Update(ctx context.Context, def Definition) error
	Delete(ctx context.Context, ownerID, id string) error
	Get(ctx context.Context, ownerID, id string) (Definition, error)
	List(ctx context.Context, ownerID string, activeOnly bool) ([]Definition, error)
	// ListDue returns active definitions with next_due_date <= asOf,
	// ordered by ascending due date.
	ListDue(ctx context.Context, ownerID string, asOf time.Time) ([]Definition, error)
	// ListOwnersDue returns the distinct owners with at least one due
	// definition, for batch job fan-out.
	ListOwnersDue(ctx context.Context, asOf time.Time) ([]string, error)
	SetActive(ctx context.Context, ownerID, id string, active bool) error
	// Materialize applies the entry insert and conditional advance as a
	// single transaction. Returns shared.ErrConcurrentUpdate when the
	// token no longer matches.
	Materialize(ctx context.Context, params MaterializeParams) error
	// Advance applies a conditional advance without an entry.
	Advance(ctx context.Context, params AdvanceParams) error
}

// DefinitionSource is the narrow read view the projection engine
// consumes.
type DefinitionSource interface {
	ListActive(ctx context.Context, ownerID string) ([]Definition, error)
}
