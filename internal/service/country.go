package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pkordes/travelwatch/internal/domain"
	"github.com/pkordes/travelwatch/internal/metrics"
	"github.com/pkordes/travelwatch/internal/repo"
)

// SummaryCache stores computed country summaries per reference date.
// Key is resolved once per aggregation, before the store is read, and the
// same key is passed to Set; an Invalidate in between must leave that key
// unreachable. Implementations must treat a nil slice and an empty slice alike.
type SummaryCache interface {
	Key(ctx context.Context, today time.Time) (string, error)
	Get(ctx context.Context, key string) ([]domain.CountrySummary, bool, error)
	Set(ctx context.Context, key string, summaries []domain.CountrySummary) error
	Invalidator
}

// CountryService computes the per-country current/planned counts.
type CountryService struct {
	repo    repo.TravelerRepo
	cache   SummaryCache
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewCountryService constructs a CountryService backed by the provided TravelerRepo.
func NewCountryService(r repo.TravelerRepo, opts ...Option) *CountryService {
	o := buildOptions(opts)
	return &CountryService{repo: r, cache: o.cache, metrics: o.metrics, log: o.log, now: time.Now}
}

// Aggregate returns one row per country with at least one active traveler,
// sorted by country. today is truncated to its calendar date; the result does
// not depend on time of day.
//
// The cache is best effort: lookup and store failures are logged and the
// summary is computed from the store.
func (s *CountryService) Aggregate(ctx context.Context, today time.Time) (_ []domain.CountrySummary, err error) {
	day := domain.Day(today)
	ctx, span := tracer.Start(ctx, "CountryService.Aggregate", trace.WithAttributes(
		attribute.String("aggregate.today", day.Format(domain.DateLayout)),
	))
	defer func() { endSpan(span, err) }()

	start := s.now()

	key := s.cacheKey(ctx, day)
	if key != "" {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.metrics.IncrementCacheLookup("error")
			s.log.WarnContext(ctx, "summary cache lookup failed", "error", err)
		case ok:
			s.metrics.IncrementCacheLookup("hit")
			s.metrics.ObserveAggregate("cache", s.now().Sub(start))
			span.SetAttributes(attribute.Bool("aggregate.cached", true))
			if cached == nil {
				cached = []domain.CountrySummary{}
			}
			return cached, nil
		default:
			s.metrics.IncrementCacheLookup("miss")
		}
	}

	active, err := s.repo.ListByStatus(ctx, domain.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("service.CountryService.Aggregate: %w", err)
	}
	summaries := domain.Aggregate(active, day)

	s.metrics.ObserveAggregate("store", s.now().Sub(start))
	span.SetAttributes(attribute.Int("aggregate.countries", len(summaries)))

	if key != "" {
		if err := s.cache.Set(ctx, key, summaries); err != nil {
			s.log.WarnContext(ctx, "summary cache store failed", "error", err)
		}
	}
	return summaries, nil
}

// cacheKey resolves the cache entry key for day, or "" when the cache is
// disabled or unreachable.
func (s *CountryService) cacheKey(ctx context.Context, day time.Time) string {
	if s.cache == nil {
		return ""
	}
	key, err := s.cache.Key(ctx, day)
	if err != nil {
		s.metrics.IncrementCacheLookup("error")
		s.log.WarnContext(ctx, "summary cache lookup failed", "error", err)
		return ""
	}
	return key
}
