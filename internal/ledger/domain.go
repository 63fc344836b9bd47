package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus enumerates ledger entry lifecycle values.
type EntryStatus string

const (
	// StatusActive marks a live entry that counts toward totals.
	StatusActive EntryStatus = "active"
	// StatusVoid marks an entry excluded from totals.
	StatusVoid EntryStatus = "void"
)

// Entry is an immutable ledger record. Entries materialized from a
// recurring definition carry the originating definition id but are
// otherwise independent: later edits to the definition never touch
// entries already written.
type Entry struct {
	ID                 string          `json:"id"`
	OwnerID            string          `json:"owner_id"`
	Kind               string          `json:"kind"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	TransactionDate    time.Time       `json:"transaction_date"`
	Status             EntryStatus     `json:"status"`
	SourceDefinitionID string          `json:"source_definition_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Totals aggregates income and expense amounts over a date range.
type Totals struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}
