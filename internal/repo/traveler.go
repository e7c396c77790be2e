// Package repo contains all database access logic for the Travel Watch API.
// TravelerRepo is the persistence contract; there is a Postgres implementation
// (this file) and an embedded SQLite implementation (sqlite.go).
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/travelwatch/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TravelerRepo defines the persistence operations for Travelers.
// The service layer depends on this interface, not a concrete store,
// which allows the service to be unit-tested with a mock.
//
// Every failure other than a missing row wraps domain.ErrStore.
type TravelerRepo interface {
	// Create inserts a new traveler and returns the persisted record with the
	// store-generated id, created_at and updated_at populated.
	Create(ctx context.Context, t domain.Traveler) (domain.Traveler, error)

	// GetByID retrieves a single traveler by id.
	// Returns domain.ErrNotFound if no traveler with that id exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Traveler, error)

	// ListByStatus returns every traveler in status. Pending and active
	// records are ordered by travel_start ascending, historic records by
	// travel_end descending.
	ListByStatus(ctx context.Context, status domain.Status) ([]domain.Traveler, error)

	// ListActiveByCountry returns active travelers whose country equals
	// country exactly, ordered by travel_start ascending.
	ListActiveByCountry(ctx context.Context, country string) ([]domain.Traveler, error)

	// ListActiveEndedBefore returns active travelers whose travel_end is
	// strictly before day, ordered by travel_end ascending.
	ListActiveEndedBefore(ctx context.Context, day time.Time) ([]domain.Traveler, error)

	// Update overwrites every field except id, status and created_at.
	// Returns domain.ErrNotFound if no traveler with that id exists.
	Update(ctx context.Context, t domain.Traveler) (domain.Traveler, error)

	// SetStatus applies a workflow change in a single statement.
	// Returns domain.ErrNotFound if no traveler with that id exists.
	SetStatus(ctx context.Context, id uuid.UUID, change domain.Change) (domain.Traveler, error)

	// Delete removes a traveler by id. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// travelerColumns is the SELECT/RETURNING column list shared by every query.
// scanTraveler depends on this exact order.
const travelerColumns = `
	id, first_name, last_name, country, travel_start, travel_end,
	passport_number, travel_approved, itinerary_link, status,
	primary_contact_label, primary_contact_value,
	secondary_contact_name, secondary_contact_phone, secondary_contact_relationship,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
	created_at, updated_at`

// statusOrder holds the ORDER BY clause for each status projection.
var statusOrder = map[domain.Status]string{
	domain.StatusPending:  "travel_start ASC, created_at ASC",
	domain.StatusActive:   "travel_start ASC, created_at ASC",
	domain.StatusHistoric: "travel_end DESC, created_at DESC",
}

// pgTravelerRepo is the Postgres implementation of TravelerRepo.
type pgTravelerRepo struct {
	db db
}

// NewTravelerRepo constructs a TravelerRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTravelerRepo(db db) TravelerRepo {
	return &pgTravelerRepo{db: db}
}

// Create inserts a new traveler row and returns the full persisted record.
func (r *pgTravelerRepo) Create(ctx context.Context, t domain.Traveler) (domain.Traveler, error) {
	q := `
		INSERT INTO travelers (
			first_name, last_name, country, travel_start, travel_end,
			passport_number, travel_approved, itinerary_link, status,
			primary_contact_label, primary_contact_value,
			secondary_contact_name, secondary_contact_phone, secondary_contact_relationship,
			emergency_contact_name, emergency_contact_phone, emergency_contact_relationship
		) VALUES (
			@first_name, @last_name, @country, @travel_start, @travel_end,
			@passport_number, @travel_approved, @itinerary_link, @status,
			@primary_contact_label, @primary_contact_value,
			@secondary_contact_name, @secondary_contact_phone, @secondary_contact_relationship,
			@emergency_contact_name, @emergency_contact_phone, @emergency_contact_relationship
		)
		RETURNING` + travelerColumns

	args := travelerArgs(t)
	args["status"] = string(t.Status)

	result, err := scanTraveler(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("repo.TravelerRepo.Create: %w", storeErr(err))
	}
	return result, nil
}

// GetByID retrieves a traveler by primary key.
func (r *pgTravelerRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Traveler, error) {
	q := `SELECT` + travelerColumns + ` FROM travelers WHERE id = @id`

	result, err := scanTraveler(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("repo.TravelerRepo.GetByID: %w", storeErr(err))
	}
	return result, nil
}

// ListByStatus returns one status projection in its defined order.
func (r *pgTravelerRepo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Traveler, error) {
	order, ok := statusOrder[status]
	if !ok {
		return nil, fmt.Errorf("repo.TravelerRepo.ListByStatus: %w: unknown status %q", domain.ErrValidation, status)
	}
	q := `SELECT` + travelerColumns + `
		FROM travelers
		WHERE status = @status
		ORDER BY ` + order

	travelers, err := r.list(ctx, q, pgx.NamedArgs{"status": string(status)})
	if err != nil {
		return nil, fmt.Errorf("repo.TravelerRepo.ListByStatus: %w", err)
	}
	return travelers, nil
}

// ListActiveByCountry returns the active travelers for one destination.
func (r *pgTravelerRepo) ListActiveByCountry(ctx context.Context, country string) ([]domain.Traveler, error) {
	q := `SELECT` + travelerColumns + `
		FROM travelers
		WHERE status = 'active' AND country = @country
		ORDER BY travel_start ASC, created_at ASC`

	travelers, err := r.list(ctx, q, pgx.NamedArgs{"country": country})
	if err != nil {
		return nil, fmt.Errorf("repo.TravelerRepo.ListActiveByCountry: %w", err)
	}
	return travelers, nil
}

// ListActiveEndedBefore returns active travelers whose travel has concluded.
func (r *pgTravelerRepo) ListActiveEndedBefore(ctx context.Context, day time.Time) ([]domain.Traveler, error) {
	q := `SELECT` + travelerColumns + `
		FROM travelers
		WHERE status = 'active' AND travel_end < @day
		ORDER BY travel_end ASC, created_at ASC`

	travelers, err := r.list(ctx, q, pgx.NamedArgs{"day": domain.Day(day)})
	if err != nil {
		return nil, fmt.Errorf("repo.TravelerRepo.ListActiveEndedBefore: %w", err)
	}
	return travelers, nil
}

// Update overwrites the mutable fields of a traveler and returns the updated record.
// status is deliberately absent from the SET list.
func (r *pgTravelerRepo) Update(ctx context.Context, t domain.Traveler) (domain.Traveler, error) {
	q := `
		UPDATE travelers
		SET first_name                     = @first_name,
		    last_name                      = @last_name,
		    country                        = @country,
		    travel_start                   = @travel_start,
		    travel_end                     = @travel_end,
		    passport_number                = @passport_number,
		    travel_approved                = @travel_approved,
		    itinerary_link                 = @itinerary_link,
		    primary_contact_label          = @primary_contact_label,
		    primary_contact_value          = @primary_contact_value,
		    secondary_contact_name         = @secondary_contact_name,
		    secondary_contact_phone        = @secondary_contact_phone,
		    secondary_contact_relationship = @secondary_contact_relationship,
		    emergency_contact_name         = @emergency_contact_name,
		    emergency_contact_phone        = @emergency_contact_phone,
		    emergency_contact_relationship = @emergency_contact_relationship,
		    updated_at                     = now()
		WHERE id = @id
		RETURNING` + travelerColumns

	args := travelerArgs(t)
	args["id"] = t.ID

	result, err := scanTraveler(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("repo.TravelerRepo.Update: %w", storeErr(err))
	}
	return result, nil
}

// SetStatus writes the target status and, when the change carries one, the
// approval flag. COALESCE keeps the stored flag when Approved is nil.
func (r *pgTravelerRepo) SetStatus(ctx context.Context, id uuid.UUID, change domain.Change) (domain.Traveler, error) {
	q := `
		UPDATE travelers
		SET status          = @status,
		    travel_approved = COALESCE(@approved, travel_approved),
		    updated_at      = now()
		WHERE id = @id
		RETURNING` + travelerColumns

	args := pgx.NamedArgs{
		"id":       id,
		"status":   string(change.To),
		"approved": change.Approved, // nil becomes NULL
	}

	result, err := scanTraveler(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("repo.TravelerRepo.SetStatus: %w", storeErr(err))
	}
	return result, nil
}

// Delete removes a traveler by primary key.
func (r *pgTravelerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM travelers WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TravelerRepo.Delete: %w", storeErr(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TravelerRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// list runs a multi-row query and scans every row.
// It always returns a non-nil slice on success.
func (r *pgTravelerRepo) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Traveler, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	travelers := []domain.Traveler{}
	for rows.Next() {
		t, err := scanTraveler(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", storeErr(err))
		}
		travelers = append(travelers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", storeErr(err))
	}
	return travelers, nil
}

// travelerArgs binds the writable columns shared by Create and Update.
func travelerArgs(t domain.Traveler) pgx.NamedArgs {
	return pgx.NamedArgs{
		"first_name":                     t.FirstName,
		"last_name":                      t.LastName,
		"country":                        t.Country,
		"travel_start":                   domain.Day(t.TravelStart),
		"travel_end":                     domain.Day(t.TravelEnd),
		"passport_number":                t.PassportNumber,
		"travel_approved":                t.TravelApproved,
		"itinerary_link":                 t.ItineraryLink,
		"primary_contact_label":          t.Contacts.Primary.Label,
		"primary_contact_value":          t.Contacts.Primary.Value,
		"secondary_contact_name":         t.Contacts.Secondary.Name,
		"secondary_contact_phone":        t.Contacts.Secondary.Phone,
		"secondary_contact_relationship": t.Contacts.Secondary.Relationship,
		"emergency_contact_name":         t.Contacts.Emergency.Name,
		"emergency_contact_phone":        t.Contacts.Emergency.Phone,
		"emergency_contact_relationship": t.Contacts.Emergency.Relationship,
	}
}

// scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows, so the
// scan helpers can be reused for single and multi-row queries in both stores.
type scanner interface {
	Scan(dest ...any) error
}

// scanTraveler maps a single database row into a domain.Traveler.
// It handles the UUID and DATE conversions.
func scanTraveler(s scanner) (domain.Traveler, error) {
	var (
		t          domain.Traveler
		id         pgtype.UUID
		start, end pgtype.Date
		status     string
	)

	err := s.Scan(
		&id, &t.FirstName, &t.LastName, &t.Country, &start, &end,
		&t.PassportNumber, &t.TravelApproved, &t.ItineraryLink, &status,
		&t.Contacts.Primary.Label, &t.Contacts.Primary.Value,
		&t.Contacts.Secondary.Name, &t.Contacts.Secondary.Phone, &t.Contacts.Secondary.Relationship,
		&t.Contacts.Emergency.Name, &t.Contacts.Emergency.Phone, &t.Contacts.Emergency.Relationship,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Traveler{}, domain.ErrNotFound
		}
		return domain.Traveler{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.TravelStart = domain.Day(start.Time)
	t.TravelEnd = domain.Day(end.Time)
	t.Status = domain.Status(status)
	return t, nil
}

// storeErr marks err as a persistence failure unless it is a domain sentinel
// the caller must see unchanged.
func storeErr(err error) error {
	if err == nil ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrStore) ||
		errors.Is(err, domain.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStore, err)
}
