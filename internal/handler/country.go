package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travelwatch/internal/domain"
)

// ListCountrySummaries handles GET /countries.
// ?today=YYYY-MM-DD sets the reference date; it defaults to the server's
// current calendar date.
func (s *Server) ListCountrySummaries(w http.ResponseWriter, r *http.Request) {
	var today *openapi_types.Date
	if err := runtime.BindQueryParameter("form", true, false, "today", r.URL.Query(), &today); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid today: want YYYY-MM-DD"))
		return
	}

	ref := s.now()
	if today != nil {
		ref = today.Time
	}

	summaries, err := s.countries.Aggregate(r.Context(), domain.Day(ref))
	if err != nil {
		writeServiceError(w, r, err, "country not found")
		return
	}
	if summaries == nil {
		summaries = []domain.CountrySummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// ListCountryTravelers handles GET /countries/{country}/travelers.
// The country is matched exactly, without case folding.
func (s *Server) ListCountryTravelers(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	if r.URL.RawPath != "" {
		// chi routes on the escaped path when one is present.
		unescaped, err := url.PathUnescape(country)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid country"))
			return
		}
		country = unescaped
	}

	writeTravelerList(w, r)(s.travelers.ListByCountry(r.Context(), country))
}
