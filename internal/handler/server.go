// Package handler implements the HTTP handlers for the Travel Watch API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, traveler.go, country.go) but share the same Server struct
// so they can access its dependencies. Routes wires them into a chi router.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/travelwatch/internal/domain"
	"github.com/pkordes/travelwatch/spec"
)

// TravelerServicer defines the business operations the traveler handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TravelerServicer interface {
	Create(ctx context.Context, t domain.Traveler) (domain.Traveler, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Traveler, error)
	ListActive(ctx context.Context) ([]domain.Traveler, error)
	ListPending(ctx context.Context) ([]domain.Traveler, error)
	ListHistoric(ctx context.Context) ([]domain.Traveler, error)
	ListByCountry(ctx context.Context, country string) ([]domain.Traveler, error)
	Update(ctx context.Context, t domain.Traveler) (domain.Traveler, error)
	Approve(ctx context.Context, id uuid.UUID) (domain.Traveler, error)
	Deny(ctx context.Context, id uuid.UUID) (domain.Traveler, error)
	Archive(ctx context.Context, id uuid.UUID) (domain.Traveler, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CountryAggregator defines the country summary operation.
type CountryAggregator interface {
	Aggregate(ctx context.Context, today time.Time) ([]domain.CountrySummary, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	travelers TravelerServicer
	countries CountryAggregator
	now       func() time.Time
}

// NewServer constructs the Server with all its dependencies.
func NewServer(travelers TravelerServicer, countries CountryAggregator) *Server {
	return &Server{travelers: travelers, countries: countries, now: time.Now}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil)
}

// WithClock overrides the clock used to default ?today= on GET /countries.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

// Routes returns a chi router with every API route registered.
// Middleware is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", serveSpec)

	r.Route("/travelers", func(r chi.Router) {
		r.Post("/", s.CreateTraveler)
		r.Get("/active", s.ListActiveTravelers)
		r.Get("/pending", s.ListPendingTravelers)
		r.Get("/historic", s.ListHistoricTravelers)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetTraveler)
			r.Put("/", s.UpdateTraveler)
			r.Delete("/", s.DeleteTraveler)
			r.Post("/approve", s.ApproveTraveler)
			r.Post("/deny", s.DenyTraveler)
			r.Post("/archive", s.ArchiveTraveler)
		})
	})

	r.Get("/countries", s.ListCountrySummaries)
	r.Get("/countries/{country}/travelers", s.ListCountryTravelers)

	return r
}

func serveSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec.OpenAPI)
}
