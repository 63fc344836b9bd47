package projection

import (
	"context"
	"time"
)

// Repository defines projection record persistence. The (owner, date)
// pair is the unique key; both upserts return the resulting row so
// callers see preserved fields.
type Repository interface {
	// UpsertProjection writes the projected figures for a day, leaving
	// any existing actuals untouched.
	UpsertProjection(ctx context.Context, rec Record) (Record, error)
	// UpsertActuals writes the actual figures for a day. When no record
	// exists one is created using the actuals as the projected figures
	// too (self-consistent bootstrap).
	UpsertActuals(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, ownerID string, date time.Time) (Record, error)
	List(ctx context.Context, ownerID string, from, to time.Time) ([]Record, error)
}
