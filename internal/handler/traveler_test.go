package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travelwatch/internal/domain"
	"github.com/pkordes/travelwatch/internal/handler"
)

// mockTravelerServicer is a test double for handler.TravelerServicer.
// Set only the method fields your test needs.
type mockTravelerServicer struct {
	create        func(ctx context.Context, t domain.Traveler) (domain.Traveler, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.Traveler, error)
	listActive    func(ctx context.Context) ([]domain.Traveler, error)
	listPending   func(ctx context.Context) ([]domain.Traveler, error)
	listHistoric  func(ctx context.Context) ([]domain.Traveler, error)
	listByCountry func(ctx context.Context, country string) ([]domain.Traveler, error)
	update        func(ctx context.Context, t domain.Traveler) (domain.Traveler, error)
	approve       func(ctx context.Context, id uuid.UUID) (domain.Traveler, error)
	deny          func(ctx context.Context, id uuid.UUID) (domain.Traveler, error)
	archive       func(ctx context.Context, id uuid.UUID) (domain.Traveler, error)
	delete        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTravelerServicer) Create(ctx context.Context, t domain.Traveler) (domain.Traveler, error) {
	return m.create(ctx, t)
}
func (m *mockTravelerServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Traveler, error) {
	return m.getByID(ctx, id)
}
func (m *mockTravelerServicer) ListActive(ctx context.Context) ([]domain.Traveler, error) {
	return m.listActive(ctx)
}
func (m *mockTravelerServicer) ListPending(ctx context.Context) ([]domain.Traveler, error) {
	return m.listPending(ctx)
}
func (m *mockTravelerServicer) ListHistoric(ctx context.Context) ([]domain.Traveler, error) {
	return m.listHistoric(ctx)
}
func (m *mockTravelerServicer) ListByCountry(ctx context.Context, country string) ([]domain.Traveler, error) {
	return m.listByCountry(ctx, country)
}
func (m *mockTravelerServicer) Update(ctx context.Context, t domain.Traveler) (domain.Traveler, error) {
	return m.update(ctx, t)
}
func (m *mockTravelerServicer) Approve(ctx context.Context, id uuid.UUID) (domain.Traveler, error) {
	return m.approve(ctx, id)
}
func (m *mockTravelerServicer) Deny(ctx context.Context, id uuid.UUID) (domain.Traveler, error) {
	return m.deny(ctx, id)
}
func (m *mockTravelerServicer) Archive(ctx context.Context, id uuid.UUID) (domain.Traveler, error) {
	return m.archive(ctx, id)
}
func (m *mockTravelerServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockTravelerServicer must satisfy handler.TravelerServicer.
var _ handler.TravelerServicer = (*mockTravelerServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks into the chi router.
// This mirrors how main.go wires it in production, minus middleware.
func newHTTPHandler(travelers handler.TravelerServicer, countries handler.CountryAggregator) http.Handler {
	return handler.NewServer(travelers, countries).Routes()
}

func travelerFixture() domain.Traveler {
	return domain.Traveler{
		ID:             uuid.New(),
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Country:        "France",
		TravelStart:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		TravelEnd:      time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		PassportNumber: "X1234567",
		Status:         domain.StatusPending,
		Contacts: domain.Contacts{
			Primary:   domain.PrimaryContact{Label: "email", Value: "ada@example.com"},
			Secondary: domain.PersonContact{Name: "Charles", Phone: "555-0100", Relationship: "colleague"},
			Emergency: domain.PersonContact{Name: "Annabella", Phone: "555-0199", Relationship: "mother"},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func requestFixture() map[string]any {
	return map[string]any{
		"first_name":      "Ada",
		"last_name":       "Lovelace",
		"country":         "France",
		"travel_start":    "2026-03-01",
		"travel_end":      "2026-03-20",
		"passport_number": "X1234567",
		"travel_approved": false,
		"itinerary_link":  "https://example.com/itinerary",
		"contacts": map[string]any{
			"primary":   map[string]any{"label": "email", "value": "ada@example.com"},
			"secondary": map[string]any{"name": "Charles", "phone": "555-0100", "relationship": "colleague"},
			"emergency": map[string]any{"name": "Annabella", "phone": "555-0199", "relationship": "mother"},
		},
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func serve(h http.Handler, method, target string, body *bytes.Buffer) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// ---- POST /travelers -------------------------------------------------------

func TestCreateTraveler_201(t *testing.T) {
	fixture := travelerFixture()
	var received domain.Traveler
	svc := &mockTravelerServicer{
		create: func(_ context.Context, tr domain.Traveler) (domain.Traveler, error) {
			received = tr
			return fixture, nil
		},
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers", jsonBody(t, requestFixture()))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://example.com/itinerary", received.ItineraryLink)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), received.TravelStart)
	assert.Equal(t, "Annabella", received.Contacts.Emergency.Name)

	var resp handler.Traveler
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.ID, resp.Id)
	assert.Equal(t, domain.StatusPending, resp.Status)
	assert.Equal(t, "2026-03-01", resp.TravelStart.Format("2006-01-02"))
}

func TestCreateTraveler_ResponseUsesCalendarDates(t *testing.T) {
	svc := &mockTravelerServicer{
		create: func(context.Context, domain.Traveler) (domain.Traveler, error) { return travelerFixture(), nil },
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers", jsonBody(t, requestFixture()))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"travel_start":"2026-03-01"`)
	assert.Contains(t, rec.Body.String(), `"travel_end":"2026-03-20"`)
}

func TestCreateTraveler_422_MissingFieldsListed(t *testing.T) {
	svc := &mockTravelerServicer{
		create: func(context.Context, domain.Traveler) (domain.Traveler, error) {
			t.Fatal("service must not be called for an incomplete body")
			return domain.Traveler{}, nil
		},
	}
	body := requestFixture()
	delete(body, "country")
	delete(body, "travel_approved")

	rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers", jsonBody(t, body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "validation_error", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "country")
	assert.Contains(t, resp.Error.Message, "travel_approved")
}

func TestCreateTraveler_422_OnlyApprovalMissing(t *testing.T) {
	body := requestFixture()
	delete(body, "travel_approved")

	rec := serve(newHTTPHandler(&mockTravelerServicer{}, nil), http.MethodPost, "/travelers", jsonBody(t, body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "missing required fields: travel_approved", decodeError(t, rec).Error.Message)
}

func TestCreateTraveler_ItineraryIsOptional(t *testing.T) {
	svc := &mockTravelerServicer{
		create: func(_ context.Context, tr domain.Traveler) (domain.Traveler, error) { return tr, nil },
	}
	body := requestFixture()
	delete(body, "itinerary_link")

	rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers", jsonBody(t, body))

	require.Equal(t, http.StatusCreated, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	link, present := got["itinerary_link"]
	assert.True(t, present, "itinerary_link is always emitted")
	assert.Equal(t, "", link)
}

func TestCreateTraveler_422_MalformedDate(t *testing.T) {
	body := requestFixture()
	body["travel_start"] = "01/03/2026"

	rec := serve(newHTTPHandler(&mockTravelerServicer{}, nil), http.MethodPost, "/travelers", jsonBody(t, body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateTraveler_422_EmptyBody(t *testing.T) {
	rec := serve(newHTTPHandler(&mockTravelerServicer{}, nil), http.MethodPost, "/travelers", bytes.NewBufferString(""))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "request body is required", decodeError(t, rec).Error.Message)
}

func TestCreateTraveler_422_TrailingData(t *testing.T) {
	svc := &mockTravelerServicer{
		create: func(context.Context, domain.Traveler) (domain.Traveler, error) {
			t.Fatal("service must not be called")
			return domain.Traveler{}, nil
		},
	}
	one := jsonBody(t, requestFixture()).String()

	for name, body := range map[string]string{
		"second object": one + one,
		"garbage":       one + "x",
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers", bytes.NewBufferString(body))

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, decodeError(t, rec).Error.Message, "invalid request body")
		})
	}
}

func TestCreateTraveler_TrailingWhitespaceAccepted(t *testing.T) {
	svc := &mockTravelerServicer{
		create: func(_ context.Context, tr domain.Traveler) (domain.Traveler, error) { return tr, nil },
	}
	body := jsonBody(t, requestFixture()).String() + "\n\t "

	rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers", bytes.NewBufferString(body))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateTraveler_422_ServiceValidation(t *testing.T) {
	svc := &mockTravelerServicer{
		create: func(context.Context, domain.Traveler) (domain.Traveler, error) {
			return domain.Traveler{}, fmt.Errorf("service.TravelerService.Create: %w: missing required fields: last_name", domain.ErrValidation)
		},
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers", jsonBody(t, requestFixture()))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "missing required fields: last_name", decodeError(t, rec).Error.Message)
}

func TestCreateTraveler_500_StoreFailureHidesDetail(t *testing.T) {
	svc := &mockTravelerServicer{
		create: func(context.Context, domain.Traveler) (domain.Traveler, error) {
			return domain.Traveler{}, fmt.Errorf("%w: dial tcp 10.0.0.1:5432", domain.ErrStore)
		},
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers", jsonBody(t, requestFixture()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
	assert.Equal(t, "internal_error", decodeError(t, rec).Error.Code)
}

// ---- GET /travelers/{id} ---------------------------------------------------

func TestGetTraveler_200(t *testing.T) {
	fixture := travelerFixture()
	svc := &mockTravelerServicer{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Traveler, error) {
			assert.Equal(t, fixture.ID, id)
			return fixture, nil
		},
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodGet, "/travelers/"+fixture.ID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp handler.Traveler
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.Contacts, resp.Contacts)
}

func TestGetTraveler_404(t *testing.T) {
	svc := &mockTravelerServicer{
		getByID: func(context.Context, uuid.UUID) (domain.Traveler, error) {
			return domain.Traveler{}, domain.ErrNotFound
		},
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodGet, "/travelers/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Code)
}

func TestGetTraveler_422_BadID(t *testing.T) {
	rec := serve(newHTTPHandler(&mockTravelerServicer{}, nil), http.MethodGet, "/travelers/not-a-uuid", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- PUT /travelers/{id} ---------------------------------------------------

func TestUpdateTraveler_200_UsesPathID(t *testing.T) {
	id := uuid.New()
	var received domain.Traveler
	svc := &mockTravelerServicer{
		update: func(_ context.Context, tr domain.Traveler) (domain.Traveler, error) {
			received = tr
			tr.Status = domain.StatusActive
			return tr, nil
		},
	}
	body := requestFixture()
	body["id"] = uuid.NewString() // ignored
	body["status"] = "historic"  // ignored

	rec := serve(newHTTPHandler(svc, nil), http.MethodPut, "/travelers/"+id.String(), jsonBody(t, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, received.ID)
	assert.Equal(t, domain.Status(""), received.Status, "status is not editable")
}

func TestUpdateTraveler_404(t *testing.T) {
	svc := &mockTravelerServicer{
		update: func(context.Context, domain.Traveler) (domain.Traveler, error) {
			return domain.Traveler{}, domain.ErrNotFound
		},
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodPut, "/travelers/"+uuid.NewString(), jsonBody(t, requestFixture()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTraveler_413_BodyTooLarge(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 16)
		newHTTPHandler(&mockTravelerServicer{}, nil).ServeHTTP(w, r)
	})

	rec := serve(h, http.MethodPut, "/travelers/"+uuid.NewString(), jsonBody(t, requestFixture()))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// ---- DELETE /travelers/{id} ------------------------------------------------

func TestDeleteTraveler_204(t *testing.T) {
	svc := &mockTravelerServicer{
		delete: func(context.Context, uuid.UUID) error { return nil },
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodDelete, "/travelers/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDeleteTraveler_404(t *testing.T) {
	svc := &mockTravelerServicer{
		delete: func(context.Context, uuid.UUID) error { return domain.ErrNotFound },
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodDelete, "/travelers/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- Workflow triggers -----------------------------------------------------

func TestTransitions_200(t *testing.T) {
	fixture := travelerFixture()
	cases := []struct {
		path   string
		status domain.Status
	}{
		{"approve", domain.StatusActive},
		{"deny", domain.StatusActive},
		{"archive", domain.StatusHistoric},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			var called string
			fire := func(name string) func(context.Context, uuid.UUID) (domain.Traveler, error) {
				return func(_ context.Context, id uuid.UUID) (domain.Traveler, error) {
					called = name
					out := fixture
					out.ID = id
					out.Status = tc.status
					return out, nil
				}
			}
			svc := &mockTravelerServicer{approve: fire("approve"), deny: fire("deny"), archive: fire("archive")}

			rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers/"+fixture.ID.String()+"/"+tc.path, nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.path, called)
			var resp handler.Traveler
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.status, resp.Status)
		})
	}
}

func TestArchiveTraveler_409_FromPending(t *testing.T) {
	svc := &mockTravelerServicer{
		archive: func(context.Context, uuid.UUID) (domain.Traveler, error) {
			return domain.Traveler{}, fmt.Errorf("service.TravelerService.Archive: %w: cannot archive a pending traveler", domain.ErrInvalidState)
		},
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers/"+uuid.NewString()+"/archive", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "invalid_state", resp.Error.Code)
	assert.Equal(t, "cannot archive a pending traveler", resp.Error.Message)
}

func TestApproveTraveler_404(t *testing.T) {
	svc := &mockTravelerServicer{
		approve: func(context.Context, uuid.UUID) (domain.Traveler, error) {
			return domain.Traveler{}, domain.ErrNotFound
		},
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodPost, "/travelers/"+uuid.NewString()+"/approve", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- Listings --------------------------------------------------------------

func TestListTravelers_RoutesToProjection(t *testing.T) {
	fixture := travelerFixture()
	one := func(context.Context) ([]domain.Traveler, error) { return []domain.Traveler{fixture}, nil }
	none := func(context.Context) ([]domain.Traveler, error) { return nil, nil }

	cases := map[string]*mockTravelerServicer{
		"/travelers/active":   {listActive: one, listPending: none, listHistoric: none},
		"/travelers/pending":  {listActive: none, listPending: one, listHistoric: none},
		"/travelers/historic": {listActive: none, listPending: none, listHistoric: one},
	}

	for path, svc := range cases {
		t.Run(path, func(t *testing.T) {
			rec := serve(newHTTPHandler(svc, nil), http.MethodGet, path, nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			var resp []handler.Traveler
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.Len(t, resp, 1)
			assert.Equal(t, fixture.ID, resp[0].Id)
		})
	}
}

func TestListTravelers_EmptyIsArray(t *testing.T) {
	svc := &mockTravelerServicer{
		listPending: func(context.Context) ([]domain.Traveler, error) { return nil, nil },
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodGet, "/travelers/pending", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListTravelers_500(t *testing.T) {
	svc := &mockTravelerServicer{
		listHistoric: func(context.Context) ([]domain.Traveler, error) { return nil, domain.ErrStore },
	}

	rec := serve(newHTTPHandler(svc, nil), http.MethodGet, "/travelers/historic", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
