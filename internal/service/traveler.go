// Package service contains the business logic for the Travel Watch API.
// TravelerService owns the status workflow; CountryService owns the country
// aggregation. Services validate inputs, apply the workflow table from the
// domain package and orchestrate repo calls. No SQL lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pkordes/travelwatch/internal/domain"
	"github.com/pkordes/travelwatch/internal/metrics"
	"github.com/pkordes/travelwatch/internal/repo"
)

var tracer = otel.Tracer("github.com/pkordes/travelwatch/internal/service")

// Invalidator is notified after every successful write so derived read
// models (the country summary cache) can be dropped.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// TravelerService implements the traveler lifecycle: submission, edits,
// approval decisions, archival and deletion, plus the read projections.
type TravelerService struct {
	repo        repo.TravelerRepo
	metrics     *metrics.Metrics
	invalidator Invalidator
	log         *slog.Logger
}

// Option configures optional TravelerService and CountryService collaborators.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
	cache   SummaryCache
	log     *slog.Logger
}

// WithMetrics records workflow and aggregation metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithSummaryCache enables the country summary cache. TravelerService uses
// it only to invalidate; CountryService reads and fills it.
func WithSummaryCache(c SummaryCache) Option {
	return func(o *options) { o.cache = c }
}

// WithLogger overrides slog.Default for warnings the services log and swallow.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// NewTravelerService constructs a TravelerService backed by the provided TravelerRepo.
func NewTravelerService(r repo.TravelerRepo, opts ...Option) *TravelerService {
	o := buildOptions(opts)
	s := &TravelerService{repo: r, metrics: o.metrics, log: o.log}
	if o.cache != nil {
		s.invalidator = o.cache
	}
	return s
}

// Create validates and persists a new traveler.
// Status is forced to pending whatever the caller supplied; travel_approved
// is stored as given. Returns domain.ErrValidation naming every missing field.
func (s *TravelerService) Create(ctx context.Context, t domain.Traveler) (_ domain.Traveler, err error) {
	ctx, span := tracer.Start(ctx, "TravelerService.Create")
	defer func() { endSpan(span, err) }()

	if err := t.Validate(); err != nil {
		return domain.Traveler{}, fmt.Errorf("service.TravelerService.Create: %w", err)
	}
	t.ID = uuid.Nil
	t.Status = domain.StatusPending

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("service.TravelerService.Create: %w", err)
	}
	span.SetAttributes(attribute.String("traveler.id", created.ID.String()))
	s.changed(ctx)
	return created, nil
}

// GetByID returns a single traveler by ID.
// Returns domain.ErrNotFound if it does not exist.
func (s *TravelerService) GetByID(ctx context.Context, id uuid.UUID) (_ domain.Traveler, err error) {
	ctx, span := tracer.Start(ctx, "TravelerService.GetByID", trace.WithAttributes(attribute.String("traveler.id", id.String())))
	defer func() { endSpan(span, err) }()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("service.TravelerService.GetByID: %w", err)
	}
	return t, nil
}

// ListActive returns active travelers ordered by travel_start ascending.
func (s *TravelerService) ListActive(ctx context.Context) ([]domain.Traveler, error) {
	return s.listByStatus(ctx, "ListActive", domain.StatusActive)
}

// ListPending returns travelers awaiting a decision, ordered by travel_start ascending.
func (s *TravelerService) ListPending(ctx context.Context) ([]domain.Traveler, error) {
	return s.listByStatus(ctx, "ListPending", domain.StatusPending)
}

// ListHistoric returns archived travelers ordered by travel_end descending.
func (s *TravelerService) ListHistoric(ctx context.Context) ([]domain.Traveler, error) {
	return s.listByStatus(ctx, "ListHistoric", domain.StatusHistoric)
}

func (s *TravelerService) listByStatus(ctx context.Context, op string, status domain.Status) (_ []domain.Traveler, err error) {
	ctx, span := tracer.Start(ctx, "TravelerService."+op)
	defer func() { endSpan(span, err) }()

	travelers, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("service.TravelerService.%s: %w", op, err)
	}
	return nonNil(travelers), nil
}

// ListByCountry returns the active travelers whose country matches exactly.
// No case folding is applied: "France" and "france" are different countries.
func (s *TravelerService) ListByCountry(ctx context.Context, country string) (_ []domain.Traveler, err error) {
	ctx, span := tracer.Start(ctx, "TravelerService.ListByCountry", trace.WithAttributes(attribute.String("traveler.country", country)))
	defer func() { endSpan(span, err) }()

	travelers, err := s.repo.ListActiveByCountry(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("service.TravelerService.ListByCountry: %w", err)
	}
	return nonNil(travelers), nil
}

// Update validates and overwrites every field of an existing traveler except
// its status. Returns domain.ErrValidation for missing fields and
// domain.ErrNotFound if the traveler does not exist.
func (s *TravelerService) Update(ctx context.Context, t domain.Traveler) (_ domain.Traveler, err error) {
	ctx, span := tracer.Start(ctx, "TravelerService.Update", trace.WithAttributes(attribute.String("traveler.id", t.ID.String())))
	defer func() { endSpan(span, err) }()

	if err := t.Validate(); err != nil {
		return domain.Traveler{}, fmt.Errorf("service.TravelerService.Update: %w", err)
	}
	updated, err := s.repo.Update(ctx, t)
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("service.TravelerService.Update: %w", err)
	}
	s.changed(ctx)
	return updated, nil
}

// Approve records a positive decision: status becomes active and
// travel_approved true. It is accepted from any status.
func (s *TravelerService) Approve(ctx context.Context, id uuid.UUID) (domain.Traveler, error) {
	return s.fire(ctx, "Approve", id, domain.TriggerApprove)
}

// Deny records a negative decision. The status still becomes active; only
// travel_approved differs from Approve, so a denied traveler keeps appearing
// in active listings and country counts.
func (s *TravelerService) Deny(ctx context.Context, id uuid.UUID) (domain.Traveler, error) {
	return s.fire(ctx, "Deny", id, domain.TriggerDeny)
}

// Archive moves an active traveler to historic. Archiving a historic
// traveler is a no-op transition; archiving a pending one returns
// domain.ErrInvalidState.
func (s *TravelerService) Archive(ctx context.Context, id uuid.UUID) (domain.Traveler, error) {
	return s.fire(ctx, "Archive", id, domain.TriggerArchive)
}

// fire looks up the current status, resolves the workflow change and writes it.
// The read and the write are separate statements; a concurrent write between
// them is resolved last-writer-wins.
func (s *TravelerService) fire(ctx context.Context, op string, id uuid.UUID, trigger domain.Trigger) (_ domain.Traveler, err error) {
	ctx, span := tracer.Start(ctx, "TravelerService."+op, trace.WithAttributes(
		attribute.String("traveler.id", id.String()),
		attribute.String("workflow.trigger", string(trigger)),
	))
	defer func() { endSpan(span, err) }()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("service.TravelerService.%s: %w", op, err)
	}
	change, err := domain.Next(current.Status, trigger)
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("service.TravelerService.%s: %w", op, err)
	}
	updated, err := s.repo.SetStatus(ctx, id, change)
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("service.TravelerService.%s: %w", op, err)
	}

	s.metrics.IncrementTransition(string(trigger), string(current.Status), string(updated.Status))
	s.changed(ctx)
	return updated, nil
}

// Delete permanently removes a traveler.
// Returns domain.ErrNotFound if it does not exist.
func (s *TravelerService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := tracer.Start(ctx, "TravelerService.Delete", trace.WithAttributes(attribute.String("traveler.id", id.String())))
	defer func() { endSpan(span, err) }()

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TravelerService.Delete: %w", err)
	}
	s.changed(ctx)
	return nil
}

// ArchiveExpired archives every active traveler whose travel_end is strictly
// before today, one Archive call per record. It is the entry point for the
// external archival sweeper.
//
// A record deleted or already moved between the listing and its archive is
// skipped. Other failures do not stop the sweep; they are joined into the
// returned error alongside the count of records archived.
func (s *TravelerService) ArchiveExpired(ctx context.Context, today time.Time) (archived int, err error) {
	ctx, span := tracer.Start(ctx, "TravelerService.ArchiveExpired", trace.WithAttributes(
		attribute.String("workflow.today", domain.Day(today).Format(domain.DateLayout)),
	))
	defer func() {
		span.SetAttributes(attribute.Int("workflow.archived", archived))
		endSpan(span, err)
	}()

	expired, err := s.repo.ListActiveEndedBefore(ctx, domain.Day(today))
	if err != nil {
		return 0, fmt.Errorf("service.TravelerService.ArchiveExpired: %w", err)
	}

	var errs []error
	for _, t := range expired {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Archive(ctx, t.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidState) {
				continue
			}
			errs = append(errs, fmt.Errorf("archive %s: %w", t.ID, err))
			continue
		}
		archived++
	}

	s.metrics.AddArchived(archived)
	if len(errs) > 0 {
		return archived, fmt.Errorf("service.TravelerService.ArchiveExpired: %w", errors.Join(errs...))
	}
	return archived, nil
}

// changed drops derived read models after a successful write. A failed
// invalidation is logged, not returned: the write itself has committed.
func (s *TravelerService) changed(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.log.WarnContext(ctx, "summary cache invalidation failed", "error", err)
	}
}

func nonNil(travelers []domain.Traveler) []domain.Traveler {
	if travelers == nil {
		return []domain.Traveler{}
	}
	return travelers
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
