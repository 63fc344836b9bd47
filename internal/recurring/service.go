package recurring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/centbook/centbook/internal/ledger"
	"github.com/centbook/centbook/internal/shared"
)

// Service owns the recurring definition lifecycle: finding due
// definitions, materializing ledger entries and advancing schedules.
type Service struct {
	repo   Repository
	locker *shared.OwnerLocker
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the scheduler. The locker may be nil; the conditional
// advance in the repository already prevents double materialization, the
// lock only avoids wasted work when runs overlap.
func NewService(repo Repository, locker *shared.OwnerLocker, logger *slog.Logger) *Service {
	return &Service{repo: repo, locker: locker, logger: logger, now: time.Now}
}

// Create validates and persists a definition. NextDueDate starts at the
// start date, the first occurrence.
func (s *Service) Create(ctx context.Context, input CreateDefinitionInput) (Definition, error) {
	if err := input.Validate(); err != nil {
		return Definition{}, err
	}
	now := s.now().UTC()
	def := Definition{
		ID:          uuid.NewString(),
		OwnerID:     input.OwnerID,
		Kind:        input.Kind,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
		Category:    input.Category,
		Frequency:   input.Frequency,
		Interval:    input.Interval,
		StartDate:   shared.Day(input.StartDate),
		EndDate:     input.EndDate,
		NextDueDate: shared.Day(input.StartDate),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, def); err != nil {
		return Definition{}, fmt.Errorf("recurring: create definition: %w", err)
	}
	return def, nil
}

// Update applies mutable fields. Past materialized entries are never
// touched.
func (s *Service) Update(ctx context.Context, ownerID, id string, input UpdateDefinitionInput) (Definition, error) {
	if err := input.Validate(); err != nil {
		return Definition{}, err
	}
	def, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Definition{}, err
	}
	if input.Amount != nil {
		def.Amount = *input.Amount
	}
	if input.Description != nil {
		def.Description = *input.Description
	}
	if input.Category != nil {
		def.Category = *input.Category
	}
	if input.EndDate != nil {
		if input.EndDate.Before(def.StartDate) {
			return Definition{}, fmt.Errorf("%w: end date must not precede start date", ErrValidation)
		}
		def.EndDate = input.EndDate
	}
	def.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, def); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Delete removes a definition owned by the caller.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// Get returns a single definition.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Definition, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns the owner's definitions.
func (s *Service) List(ctx context.Context, ownerID string, activeOnly bool) ([]Definition, error) {
	return s.repo.List(ctx, ownerID, activeOnly)
}

// GetDue returns active definitions due on or before asOf, annotated and
// ordered by ascending due date.
func (s *Service) GetDue(ctx context.Context, ownerID string, asOf time.Time) ([]DueItem, error) {
	if ownerID == "" {
		return nil, shared.ErrOwnerRequired
	}
	asOf = shared.Day(asOf)
	defs, err := s.repo.ListDue(ctx, ownerID, asOf)
	if err != nil {
		return nil, fmt.Errorf("recurring: list due: %w", err)
	}
	items := make([]DueItem, 0, len(defs))
	for _, def := range defs {
		items = append(items, DueItem{
			Definition:     def,
			DaysUntilDue:   shared.DaysBetween(asOf, def.NextDueDate),
			IsOverdue:      def.NextDueDate.Before(asOf),
			NextOccurrence: Advance(def.NextDueDate, def.Frequency, def.Interval),
		})
	}
	return items, nil
}

// Process materializes every due definition for the owner. Definitions
// are processed independently: one failure is recorded and does not
// block the rest. The batch itself only fails when the due list cannot
// be read or the owner lock is held by another run.
func (s *Service) Process(ctx context.Context, ownerID string) (shared.BatchResult, error) {
	var result shared.BatchResult
	if ownerID == "" {
		return result, shared.ErrOwnerRequired
	}
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, ownerID)
		if err != nil {
			return result, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release owner lock", slog.String("owner_id", ownerID), slog.Any("error", err))
			}
		}()
	}

	due, err := s.repo.ListDue(ctx, ownerID, shared.Day(s.now()))
	if err != nil {
		return result, fmt.Errorf("recurring: list due: %w", err)
	}
	for _, def := range due {
		if err := s.materialize(ctx, def); err != nil {
			if errors.Is(err, shared.ErrConcurrentUpdate) {
				// Another invocation already took this occurrence.
				s.logger.Debug("skip occurrence taken concurrently",
					slog.String("definition_id", def.ID), slog.String("owner_id", ownerID))
				continue
			}
			s.logger.Error("materialize recurring definition",
				slog.String("definition_id", def.ID), slog.Any("error", err))
			result.RecordFailure(def.ID, err)
			continue
		}
		result.Processed++
	}
	return result, nil
}

// ProcessAllDue fans out Process across every owner with a due
// definition. Used by the nightly job.
func (s *Service) ProcessAllDue(ctx context.Context) (shared.BatchResult, error) {
	var total shared.BatchResult
	owners, err := s.repo.ListOwnersDue(ctx, shared.Day(s.now()))
	if err != nil {
		return total, fmt.Errorf("recurring: list owners due: %w", err)
	}
	for _, ownerID := range owners {
		result, err := s.Process(ctx, ownerID)
		if errors.Is(err, shared.ErrLockHeld) {
			continue
		}
		if err != nil {
			total.RecordFailure(ownerID, err)
			continue
		}
		total.Processed += result.Processed
		total.Failures = append(total.Failures, result.Failures...)
	}
	return total, nil
}

// ToggleActive flips the active flag.
func (s *Service) ToggleActive(ctx context.Context, ownerID, id string) (Definition, error) {
	def, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Definition{}, err
	}
	if err := s.repo.SetActive(ctx, ownerID, id, !def.Active); err != nil {
		return Definition{}, err
	}
	def.Active = !def.Active
	return def, nil
}

// SkipNext advances the due date without materializing, intentionally
// missing one occurrence.
func (s *Service) SkipNext(ctx context.Context, ownerID, id string) (Definition, error) {
	def, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Definition{}, err
	}
	if !def.Active {
		return Definition{}, fmt.Errorf("%w: definition is inactive", ErrValidation)
	}
	next := Advance(def.NextDueDate, def.Frequency, def.Interval)
	deactivate := def.EndDate != nil && next.After(shared.Day(*def.EndDate))
	if err := s.repo.Advance(ctx, AdvanceParams{
		OwnerID:      ownerID,
		DefinitionID: id,
		ExpectedDue:  def.NextDueDate,
		NextDue:      next,
		Deactivate:   deactivate,
	}); err != nil {
		return Definition{}, err
	}
	if deactivate {
		def.Active = false
	} else {
		def.NextDueDate = next
	}
	return def, nil
}

func (s *Service) materialize(ctx context.Context, def Definition) error {
	next := Advance(def.NextDueDate, def.Frequency, def.Interval)
	deactivate := def.EndDate != nil && next.After(shared.Day(*def.EndDate))
	return s.repo.Materialize(ctx, MaterializeParams{
		OwnerID:      def.OwnerID,
		DefinitionID: def.ID,
		ExpectedDue:  def.NextDueDate,
		NextDue:      next,
		Deactivate:   deactivate,
		Entry: ledger.Entry{
			ID:                 uuid.NewString(),
			OwnerID:            def.OwnerID,
			Kind:               string(def.Kind),
			Amount:             def.Amount,
			Currency:           def.Currency,
			Description:        def.Description,
			Category:           def.Category,
			TransactionDate:    shared.Day(def.NextDueDate),
			Status:             ledger.StatusActive,
			SourceDefinitionID: def.ID,
			CreatedAt:          s.now().UTC(),
		},
	})
}
