package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/travelwatch/internal/domain"
)

const travelerNotFound = "traveler not found"

// TravelerRequest is the body of POST /travelers and PUT /travelers/{id}.
// Pointer fields distinguish "absent" from the zero value.
type TravelerRequest struct {
	FirstName      string              `json:"first_name"`
	LastName       string              `json:"last_name"`
	Country        string              `json:"country"`
	TravelStart    *openapi_types.Date `json:"travel_start"`
	TravelEnd      *openapi_types.Date `json:"travel_end"`
	PassportNumber string              `json:"passport_number"`
	TravelApproved *bool               `json:"travel_approved"`
	ItineraryLink  *string             `json:"itinerary_link,omitempty"`
	Contacts       domain.Contacts     `json:"contacts"`
}

// Traveler is the JSON representation of a traveler record.
type Traveler struct {
	Id             uuid.UUID          `json:"id"`
	FirstName      string             `json:"first_name"`
	LastName       string             `json:"last_name"`
	Country        string             `json:"country"`
	TravelStart    openapi_types.Date `json:"travel_start"`
	TravelEnd      openapi_types.Date `json:"travel_end"`
	PassportNumber string             `json:"passport_number"`
	TravelApproved bool               `json:"travel_approved"`
	ItineraryLink  string             `json:"itinerary_link"`
	Status         domain.Status      `json:"status"`
	Contacts       domain.Contacts    `json:"contacts"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// CreateTraveler handles POST /travelers.
func (s *Server) CreateTraveler(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeTravelerRequest(w, r)
	if !ok {
		return
	}
	t, err := requestToTraveler(uuid.Nil, body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return
	}

	created, err := s.travelers.Create(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err, travelerNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, travelerToResponse(created))
}

// GetTraveler handles GET /travelers/{id}.
func (s *Server) GetTraveler(w http.ResponseWriter, r *http.Request) {
	id, ok := travelerID(w, r)
	if !ok {
		return
	}
	t, err := s.travelers.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, travelerNotFound)
		return
	}
	writeJSON(w, http.StatusOK, travelerToResponse(t))
}

// UpdateTraveler handles PUT /travelers/{id}.
// Every editable field is replaced; status is never changed by an edit.
func (s *Server) UpdateTraveler(w http.ResponseWriter, r *http.Request) {
	id, ok := travelerID(w, r)
	if !ok {
		return
	}
	body, ok := decodeTravelerRequest(w, r)
	if !ok {
		return
	}
	t, err := requestToTraveler(id, body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return
	}

	updated, err := s.travelers.Update(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err, travelerNotFound)
		return
	}
	writeJSON(w, http.StatusOK, travelerToResponse(updated))
}

// DeleteTraveler handles DELETE /travelers/{id}.
func (s *Server) DeleteTraveler(w http.ResponseWriter, r *http.Request) {
	id, ok := travelerID(w, r)
	if !ok {
		return
	}
	if err := s.travelers.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err, travelerNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveTraveler handles POST /travelers/{id}/approve.
func (s *Server) ApproveTraveler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.travelers.Approve)
}

// DenyTraveler handles POST /travelers/{id}/deny.
func (s *Server) DenyTraveler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.travelers.Deny)
}

// ArchiveTraveler handles POST /travelers/{id}/archive.
func (s *Server) ArchiveTraveler(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.travelers.Archive)
}

// transition runs one workflow trigger against the {id} traveler.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, fire func(context.Context, uuid.UUID) (domain.Traveler, error)) {
	id, ok := travelerID(w, r)
	if !ok {
		return
	}
	t, err := fire(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, travelerNotFound)
		return
	}
	writeJSON(w, http.StatusOK, travelerToResponse(t))
}

// ListActiveTravelers handles GET /travelers/active.
func (s *Server) ListActiveTravelers(w http.ResponseWriter, r *http.Request) {
	writeTravelerList(w, r)(s.travelers.ListActive(r.Context()))
}

// ListPendingTravelers handles GET /travelers/pending.
func (s *Server) ListPendingTravelers(w http.ResponseWriter, r *http.Request) {
	writeTravelerList(w, r)(s.travelers.ListPending(r.Context()))
}

// ListHistoricTravelers handles GET /travelers/historic.
func (s *Server) ListHistoricTravelers(w http.ResponseWriter, r *http.Request) {
	writeTravelerList(w, r)(s.travelers.ListHistoric(r.Context()))
}

// writeTravelerList returns a writer for a listing result so call sites can
// pass a service call's two return values straight through.
// ?format=csv switches the body to CSV; JSON is the default.
func writeTravelerList(w http.ResponseWriter, r *http.Request) func([]domain.Traveler, error) {
	return func(travelers []domain.Traveler, err error) {
		if err != nil {
			writeServiceError(w, r, err, travelerNotFound)
			return
		}
		if wantsCSV(r) {
			writeTravelerCSV(w, travelers)
			return
		}
		out := make([]Traveler, 0, len(travelers))
		for _, t := range travelers {
			out = append(out, travelerToResponse(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// --- request helpers --------------------------------------------------------

// travelerID binds the {id} path parameter, writing a 422 if it is not a UUID.
func travelerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(fmt.Sprintf("invalid traveler id %q", chi.URLParam(r, "id"))))
		return uuid.Nil, false
	}
	return id, true
}

// decodeTravelerRequest reads the JSON body. It writes 413 when the body
// exceeds the configured limit and 422 for a missing or malformed body.
func decodeTravelerRequest(w http.ResponseWriter, r *http.Request) (TravelerRequest, bool) {
	var body TravelerRequest
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&body)
	if err == nil {
		err = expectEOF(dec)
	}
	if err == nil {
		return body, true
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrorDetail{
			Code:    "payload_too_large",
			Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		}})
	case errors.Is(err, io.EOF):
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("request body is required"))
	default:
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid request body: "+err.Error()))
	}
	return TravelerRequest{}, false
}

// expectEOF fails when anything but whitespace follows the first JSON value.
func expectEOF(dec *json.Decoder) error {
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errors.New("unexpected data after the JSON object")
	}
}

// requestToTraveler converts a request body into a domain.Traveler.
// Presence of every required field is checked here so that a single 422
// names all of them, including travel_approved which has no zero-value
// representation in the domain type.
func requestToTraveler(id uuid.UUID, body TravelerRequest) (domain.Traveler, error) {
	t := domain.Traveler{
		ID:             id,
		FirstName:      body.FirstName,
		LastName:       body.LastName,
		Country:        body.Country,
		PassportNumber: body.PassportNumber,
		Contacts:       body.Contacts,
	}
	if body.TravelStart != nil {
		t.TravelStart = body.TravelStart.Time
	}
	if body.TravelEnd != nil {
		t.TravelEnd = body.TravelEnd.Time
	}
	if body.TravelApproved != nil {
		t.TravelApproved = *body.TravelApproved
	}
	if body.ItineraryLink != nil {
		t.ItineraryLink = *body.ItineraryLink
	}

	err := t.Validate()
	switch {
	case body.TravelApproved != nil:
		return t, err
	case err != nil:
		return t, fmt.Errorf("%w, travel_approved", err)
	default:
		return t, fmt.Errorf("%w: missing required fields: travel_approved", domain.ErrValidation)
	}
}

// travelerToResponse converts a domain.Traveler into its JSON representation.
func travelerToResponse(t domain.Traveler) Traveler {
	return Traveler{
		Id:             t.ID,
		FirstName:      t.FirstName,
		LastName:       t.LastName,
		Country:        t.Country,
		TravelStart:    openapi_types.Date{Time: t.TravelStart},
		TravelEnd:      openapi_types.Date{Time: t.TravelEnd},
		PassportNumber: t.PassportNumber,
		TravelApproved: t.TravelApproved,
		ItineraryLink:  t.ItineraryLink,
		Status:         t.Status,
		Contacts:       t.Contacts,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}
