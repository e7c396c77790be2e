package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/pkordes/travelwatch/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV listing.
// Contacts are flattened one column per field.
var csvHeaders = []string{
	"id", "status", "first_name", "last_name", "country",
	"travel_start", "travel_end", "passport_number", "travel_approved", "itinerary_link",
	"primary_contact_label", "primary_contact_value",
	"secondary_contact_name", "secondary_contact_phone", "secondary_contact_relationship",
	"emergency_contact_name", "emergency_contact_phone", "emergency_contact_relationship",
	"created_at", "updated_at",
}

// wantsCSV reports whether the caller asked for ?format=csv.
func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

// writeTravelerCSV encodes travelers as CSV in listing order.
func writeTravelerCSV(w http.ResponseWriter, travelers []domain.Traveler) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, t := range travelers {
		//nolint:errcheck
		cw.Write(travelerToCSVRecord(t))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// travelerToCSVRecord encodes a domain.Traveler as a flat string slice in
// csvHeaders order.
func travelerToCSVRecord(t domain.Traveler) []string {
	return []string{
		t.ID.String(),
		string(t.Status),
		t.FirstName,
		t.LastName,
		t.Country,
		t.TravelStart.Format(domain.DateLayout),
		t.TravelEnd.Format(domain.DateLayout),
		t.PassportNumber,
		strconv.FormatBool(t.TravelApproved),
		t.ItineraryLink,
		t.Contacts.Primary.Label,
		t.Contacts.Primary.Value,
		t.Contacts.Secondary.Name,
		t.Contacts.Secondary.Phone,
		t.Contacts.Secondary.Relationship,
		t.Contacts.Emergency.Name,
		t.Contacts.Emergency.Phone,
		t.Contacts.Emergency.Relationship,
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
