package ledger

import (
	"context"
	"time"
)

// Reader exposes the ledger aggregates the projection engine consumes.
type Reader interface {
	// TotalsBetween sums active income and expense entries with a
	// transaction date in [from, to] inclusive.
	TotalsBetween(ctx context.Context, ownerID string, from, to time.Time) (Totals, error)
	// DayTotals sums active entries for a single calendar day.
	DayTotals(ctx context.Context, ownerID string, date time.Time) (Totals, error)
}

// Writer persists materialized entries.
type Writer interface {
	CreateEntry(ctx context.Context, entry Entry) error
}
