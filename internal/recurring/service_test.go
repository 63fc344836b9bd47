package recurring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/centbook/centbook/internal/ledger"
	"github.com/centbook/centbook/internal/shared"
)

type memoryRepo struct {
	defs    map[string]Definition
	entries []ledger.Entry

	failMaterialize map[string]error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{defs: make(map[string]Definition), failMaterialize: make(map[string]error)}
}

func (r *memoryRepo) Create(ctx context.Context, def Definition) error {
	r.defs[def.ID] = def
	return nil
}

func (r *memoryRepo) Update(ctx context.Context, def Definition) error {
	if _, ok := r.defs[def.ID]; !ok {
		return ErrDefinitionNotFound
	}
	r.defs[def.ID] = def
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, ownerID, id string) error {
	def, ok := r.defs[id]
	if !ok || def.OwnerID != ownerID {
		return ErrDefinitionNotFound
	}
	delete(r.defs, id)
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, ownerID, id string) (Definition, error) {
	def, ok := r.defs[id]
	if !ok || def.OwnerID != ownerID {
		return Definition{}, ErrDefinitionNotFound
	}
	return def, nil
}

func (r *memoryRepo) List(ctx context.Context, ownerID string, activeOnly bool) ([]Definition, error) {
	var out []Definition
	for _, def := range r.defs {
		if def.OwnerID != ownerID {
			continue
		}
		if activeOnly && !def.Active {
			continue
		}
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) ListDue(ctx context.Context, ownerID string, asOf time.Time) ([]Definition, error) {
	var out []Definition
	for _, def := range r.defs {
		if def.OwnerID == ownerID && def.Active && !def.NextDueDate.After(asOf) {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextDueDate.Before(out[j].NextDueDate) })
	return out, nil
}

func (r *memoryRepo) ListOwnersDue(ctx context.Context, asOf time.Time) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, def := range r.defs {
		if def.Active && !def.NextDueDate.After(asOf) && !seen[def.OwnerID] {
			seen[def.OwnerID] = true
			out = append(out, def.OwnerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memoryRepo) SetActive(ctx context.Context, ownerID, id string, active bool) error {
	def, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	def.Active = active
	r.defs[id] = def
	return nil
}

func (r *memoryRepo) Materialize(ctx context.Context, params MaterializeParams) error {
	if err := r.failMaterialize[params.DefinitionID]; err != nil {
		return err
	}
	if err := r.applyAdvance(params.OwnerID, params.DefinitionID, params.ExpectedDue, params.NextDue, params.Deactivate); err != nil {
		return err
	}
	r.entries = append(r.entries, params.Entry)
	return nil
}

func (r *memoryRepo) Advance(ctx context.Context, params AdvanceParams) error {
	return r.applyAdvance(params.OwnerID, params.DefinitionID, params.ExpectedDue, params.NextDue, params.Deactivate)
}

func (r *memoryRepo) applyAdvance(ownerID, id string, expected, next time.Time, deactivate bool) error {
	def, ok := r.defs[id]
	if !ok || def.OwnerID != ownerID {
		return ErrDefinitionNotFound
	}
	if !def.NextDueDate.Equal(expected) {
		return shared.ErrConcurrentUpdate
	}
	if deactivate {
		def.Active = false
	} else {
		def.NextDueDate = next
	}
	r.defs[id] = def
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return day(2024, time.June, 15) }
	return svc
}

func seedDefinition(t *testing.T, svc *Service, owner string, kind EventKind, freq Frequency, start time.Time) Definition {
	t.Helper()
	def, err := svc.Create(context.Background(), CreateDefinitionInput{
		OwnerID:     owner,
		Kind:        kind,
		Amount:      decimal.RequireFromString("150.00"),
		Currency:    "USD",
		Description: "test definition",
		Category:    "misc",
		Frequency:   freq,
		Interval:    1,
		StartDate:   start,
	})
	require.NoError(t, err)
	return def
}

func TestCreateSeedsNextDueAtStart(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	start := day(2024, time.July, 1)
	def := seedDefinition(t, svc, "owner-1", KindExpense, FrequencyMonthly, start)

	require.Equal(t, start, def.NextDueDate)
	require.True(t, def.Active)
	require.NotEmpty(t, def.ID)
}

func TestCreateValidationIsComposite(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateDefinitionInput{
		Kind:      EventKind("loot"),
		Amount:    decimal.NewFromInt(-5),
		Frequency: Frequency("fortnightly"),
	})
	require.ErrorIs(t, err, ErrValidation)
	msg := err.Error()
	for _, fragment := range []string{"owner id", "kind", "amount", "description", "frequency", "interval", "start date"} {
		require.Contains(t, msg, fragment)
	}
}

func TestGetDueAnnotations(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := "owner-1"

	overdue := seedDefinition(t, svc, owner, KindExpense, FrequencyMonthly, day(2024, time.June, 1))
	dueToday := seedDefinition(t, svc, owner, KindIncome, FrequencyWeekly, day(2024, time.June, 15))
	seedDefinition(t, svc, owner, KindExpense, FrequencyMonthly, day(2024, time.July, 1))

	items, err := svc.GetDue(context.Background(), owner, day(2024, time.June, 15))
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, overdue.ID, items[0].Definition.ID)
	require.True(t, items[0].IsOverdue)
	require.Equal(t, -14, items[0].DaysUntilDue)
	require.Equal(t, day(2024, time.July, 1), items[0].NextOccurrence)

	require.Equal(t, dueToday.ID, items[1].Definition.ID)
	require.False(t, items[1].IsOverdue)
	require.Equal(t, 0, items[1].DaysUntilDue)
	require.Equal(t, day(2024, time.June, 22), items[1].NextOccurrence)
}

func TestGetDueRequiresOwner(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.GetDue(context.Background(), "", day(2024, time.June, 15))
	require.ErrorIs(t, err, shared.ErrOwnerRequired)
}

func TestProcessMaterializesAndAdvances(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := "owner-1"

	def := seedDefinition(t, svc, owner, KindExpense, FrequencyMonthly, day(2024, time.June, 1))

	result, err := svc.Process(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Empty(t, result.Failures)

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	require.Equal(t, day(2024, time.June, 1), entry.TransactionDate)
	require.Equal(t, def.ID, entry.SourceDefinitionID)
	require.Equal(t, "expense", entry.Kind)
	require.True(t, entry.Amount.Equal(decimal.RequireFromString("150.00")))

	stored := repo.defs[def.ID]
	require.Equal(t, day(2024, time.July, 1), stored.NextDueDate)
	require.True(t, stored.Active)
}

func TestProcessIsIdempotentAcrossRuns(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := "owner-1"

	seedDefinition(t, svc, owner, KindExpense, FrequencyMonthly, day(2024, time.June, 1))

	first, err := svc.Process(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, 1, first.Processed)

	// Nothing is due anymore; a second run must not duplicate entries.
	second, err := svc.Process(context.Background(), owner)
	require.NoError(t, err)
	require.Zero(t, second.Processed)
	require.Len(t, repo.entries, 1)
}

func TestProcessSkipsConcurrentlyTakenOccurrence(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := "owner-1"

	def := seedDefinition(t, svc, owner, KindExpense, FrequencyMonthly, day(2024, time.June, 1))
	repo.failMaterialize[def.ID] = shared.ErrConcurrentUpdate

	result, err := svc.Process(context.Background(), owner)
	require.NoError(t, err)
	// A concurrent take is not a failure, just no work left.
	require.Zero(t, result.Processed)
	require.Empty(t, result.Failures)
}

func TestProcessRecordsFailuresIndependently(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := "owner-1"

	broken := seedDefinition(t, svc, owner, KindExpense, FrequencyMonthly, day(2024, time.June, 1))
	seedDefinition(t, svc, owner, KindIncome, FrequencyMonthly, day(2024, time.June, 2))
	repo.failMaterialize[broken.ID] = errors.New("insert failed")

	result, err := svc.Process(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Len(t, result.Failures, 1)
	require.Equal(t, broken.ID, result.Failures[0].ID)
	require.Contains(t, result.Failures[0].Reason, "insert failed")
}

func TestProcessDeactivatesPastEndDate(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := "owner-1"

	end := day(2024, time.June, 20)
	def, err := svc.Create(context.Background(), CreateDefinitionInput{
		OwnerID:     owner,
		Kind:        KindExpense,
		Amount:      decimal.NewFromInt(75),
		Currency:    "USD",
		Description: "short-lived",
		Frequency:   FrequencyMonthly,
		Interval:    1,
		StartDate:   day(2024, time.June, 1),
		EndDate:     &end,
	})
	require.NoError(t, err)

	result, err := svc.Process(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)

	// The entry for June 1 exists but the July 1 advance crosses the
	// end date, so the definition deactivates.
	require.Len(t, repo.entries, 1)
	stored := repo.defs[def.ID]
	require.False(t, stored.Active)
	require.Equal(t, day(2024, time.June, 1), stored.NextDueDate)
}

func TestProcessAllDueFansOut(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	seedDefinition(t, svc, "owner-a", KindExpense, FrequencyMonthly, day(2024, time.June, 1))
	seedDefinition(t, svc, "owner-b", KindIncome, FrequencyWeekly, day(2024, time.June, 10))

	result, err := svc.ProcessAllDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Empty(t, result.Failures)
}

func TestSkipNextAdvancesWithoutEntry(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := "owner-1"

	def := seedDefinition(t, svc, owner, KindExpense, FrequencyMonthly, day(2024, time.June, 1))

	updated, err := svc.SkipNext(context.Background(), owner, def.ID)
	require.NoError(t, err)
	require.Equal(t, day(2024, time.July, 1), updated.NextDueDate)
	require.Empty(t, repo.entries)
}

func TestSkipNextRejectsInactive(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := "owner-1"

	def := seedDefinition(t, svc, owner, KindExpense, FrequencyMonthly, day(2024, time.June, 1))
	_, err := svc.ToggleActive(context.Background(), owner, def.ID)
	require.NoError(t, err)

	_, err = svc.SkipNext(context.Background(), owner, def.ID)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateRejectsEndBeforeStart(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	owner := "owner-1"

	def := seedDefinition(t, svc, owner, KindExpense, FrequencyMonthly, day(2024, time.June, 1))

	bad := day(2024, time.May, 1)
	_, err := svc.Update(context.Background(), owner, def.ID, UpdateDefinitionInput{EndDate: &bad})
	require.ErrorIs(t, err, ErrValidation)
}
