// Package domain contains the core data types for the Travel Watch application.
// It holds the traveler entity, the status workflow table and the country
// aggregation rules. Every other internal package (repo, service, handler)
// imports it; it imports nothing from them.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date wire and storage format for travel windows.
const DateLayout = "2006-01-02"

// Status is the lifecycle state of a traveler record.
type Status string

const (
	// StatusPending is the initial state of every newly submitted record.
	StatusPending Status = "pending"
	// StatusActive is reached by either an approval or a denial decision.
	StatusActive Status = "active"
	// StatusHistoric is reached by archival once travel has concluded.
	StatusHistoric Status = "historic"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusHistoric:
		return true
	}
	return false
}

// PrimaryContact is a single flexible contact channel; Label names the
// channel type (e.g. "phone", "email") and Value holds the address or number.
type PrimaryContact struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// PersonContact is a named person reachable by phone.
type PersonContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

// Contacts groups the three fixed contact tiers of a traveler.
type Contacts struct {
	Primary   PrimaryContact `json:"primary"`
	Secondary PersonContact  `json:"secondary"`
	Emergency PersonContact  `json:"emergency"`
}

// Traveler is the sole entity of the system: one person travelling to one
// country during one date window.
//
// TravelStart and TravelEnd are calendar dates held at midnight UTC.
// TravelStart <= TravelEnd is not enforced; a reversed window is stored as-is.
// TravelApproved is independent of Status: a denied traveler is still active.
type Traveler struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Country        string    `json:"country"`
	TravelStart    time.Time `json:"travel_start"`
	TravelEnd      time.Time `json:"travel_end"`
	PassportNumber string    `json:"passport_number"`
	TravelApproved bool      `json:"travel_approved"`
	ItineraryLink  string    `json:"itinerary_link"`
	Status         Status    `json:"status"`
	Contacts       Contacts  `json:"contacts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Day truncates t to its calendar date at midnight UTC.
// The year, month and day are taken in t's own location before conversion.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a "2006-01-02" calendar date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrValidation, s)
	}
	return t, nil
}

// Validate checks that every required field is present.
// Only presence is checked: passport numbers, phone numbers and links are
// free text, and a reversed travel window is accepted.
// The returned error wraps ErrValidation and names every missing field.
func (t Traveler) Validate() error {
	var missing []string
	require := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}

	require("first_name", t.FirstName)
	require("last_name", t.LastName)
	require("country", t.Country)
	if t.TravelStart.IsZero() {
		missing = append(missing, "travel_start")
	}
	if t.TravelEnd.IsZero() {
		missing = append(missing, "travel_end")
	}
	require("passport_number", t.PassportNumber)
	require("contacts.primary.label", t.Contacts.Primary.Label)
	require("contacts.primary.value", t.Contacts.Primary.Value)
	require("contacts.secondary.name", t.Contacts.Secondary.Name)
	require("contacts.secondary.phone", t.Contacts.Secondary.Phone)
	require("contacts.secondary.relationship", t.Contacts.Secondary.Relationship)
	require("contacts.emergency.name", t.Contacts.Emergency.Name)
	require("contacts.emergency.phone", t.Contacts.Emergency.Phone)
	require("contacts.emergency.relationship", t.Contacts.Emergency.Relationship)

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}
