package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver for database/sql

	"github.com/pkordes/travelwatch/internal/domain"
	"github.com/pkordes/travelwatch/migrations"
)

// OpenSQLite opens (creating if needed) the SQLite database file at path and
// applies the embedded SQLite migrations.
// The caller owns the returned *sql.DB and must close it.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("repo.OpenSQLite: path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repo.OpenSQLite: open: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("repo.OpenSQLite: ping: %w", err)
	}
	if _, err := migrations.Up(ctx, goose.DialectSQLite3, sqlDB, migrations.SQLite); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("repo.OpenSQLite: %w", err)
	}
	return sqlDB, nil
}

// sqliteTravelerRepo is the SQLite implementation of TravelerRepo.
// Dates are stored as YYYY-MM-DD text and timestamps as Unix milliseconds;
// ids are generated here because SQLite has no UUID default.
type sqliteTravelerRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteTravelerRepo constructs a TravelerRepo backed by a database opened
// with OpenSQLite.
func NewSQLiteTravelerRepo(db *sql.DB) TravelerRepo {
	return &sqliteTravelerRepo{db: db, now: time.Now}
}

func (r *sqliteTravelerRepo) Create(ctx context.Context, t domain.Traveler) (domain.Traveler, error) {
	q := `
		INSERT INTO travelers (
			id, first_name, last_name, country, travel_start, travel_end,
			passport_number, travel_approved, itinerary_link, status,
			primary_contact_label, primary_contact_value,
			secondary_contact_name, secondary_contact_phone, secondary_contact_relationship,
			emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING` + travelerColumns

	now := toMillis(r.now())
	args := append([]any{uuid.New().String()}, sqliteArgs(t)[:8]...)
	args = append(args, string(t.Status))
	args = append(args, sqliteArgs(t)[8:]...)
	args = append(args, now, now)

	result, err := scanSQLiteTraveler(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("repo.TravelerRepo.Create: %w", storeErr(err))
	}
	return result, nil
}

func (r *sqliteTravelerRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Traveler, error) {
	q := `SELECT` + travelerColumns + ` FROM travelers WHERE id = ?`

	result, err := scanSQLiteTraveler(r.db.QueryRowContext(ctx, q, id.String()))
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("repo.TravelerRepo.GetByID: %w", storeErr(err))
	}
	return result, nil
}

func (r *sqliteTravelerRepo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Traveler, error) {
	order, ok := statusOrder[status]
	if !ok {
		return nil, fmt.Errorf("repo.TravelerRepo.ListByStatus: %w: unknown status %q", domain.ErrValidation, status)
	}
	q := `SELECT` + travelerColumns + ` FROM travelers WHERE status = ? ORDER BY ` + order

	travelers, err := r.list(ctx, q, string(status))
	if err != nil {
		return nil, fmt.Errorf("repo.TravelerRepo.ListByStatus: %w", err)
	}
	return travelers, nil
}

func (r *sqliteTravelerRepo) ListActiveByCountry(ctx context.Context, country string) ([]domain.Traveler, error) {
	q := `SELECT` + travelerColumns + `
		FROM travelers
		WHERE status = 'active' AND country = ?
		ORDER BY travel_start ASC, created_at ASC`

	travelers, err := r.list(ctx, q, country)
	if err != nil {
		return nil, fmt.Errorf("repo.TravelerRepo.ListActiveByCountry: %w", err)
	}
	return travelers, nil
}

// ListActiveEndedBefore relies on YYYY-MM-DD text comparing in calendar order.
func (r *sqliteTravelerRepo) ListActiveEndedBefore(ctx context.Context, day time.Time) ([]domain.Traveler, error) {
	q := `SELECT` + travelerColumns + `
		FROM travelers
		WHERE status = 'active' AND travel_end < ?
		ORDER BY travel_end ASC, created_at ASC`

	travelers, err := r.list(ctx, q, formatDay(day))
	if err != nil {
		return nil, fmt.Errorf("repo.TravelerRepo.ListActiveEndedBefore: %w", err)
	}
	return travelers, nil
}

func (r *sqliteTravelerRepo) Update(ctx context.Context, t domain.Traveler) (domain.Traveler, error) {
	q := `
		UPDATE travelers
		SET first_name                     = ?,
		    last_name                      = ?,
		    country                        = ?,
		    travel_start                   = ?,
		    travel_end                     = ?,
		    passport_number                = ?,
		    travel_approved                = ?,
		    itinerary_link                 = ?,
		    primary_contact_label          = ?,
		    primary_contact_value          = ?,
		    secondary_contact_name         = ?,
		    secondary_contact_phone        = ?,
		    secondary_contact_relationship = ?,
		    emergency_contact_name         = ?,
		    emergency_contact_phone        = ?,
		    emergency_contact_relationship = ?,
		    updated_at                     = ?
		WHERE id = ?
		RETURNING` + travelerColumns

	args := append(sqliteArgs(t), toMillis(r.now()), t.ID.String())

	result, err := scanSQLiteTraveler(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("repo.TravelerRepo.Update: %w", storeErr(err))
	}
	return result, nil
}

func (r *sqliteTravelerRepo) SetStatus(ctx context.Context, id uuid.UUID, change domain.Change) (domain.Traveler, error) {
	q := `
		UPDATE travelers
		SET status          = ?,
		    travel_approved = COALESCE(?, travel_approved),
		    updated_at      = ?
		WHERE id = ?
		RETURNING` + travelerColumns

	var approved sql.NullBool
	if change.Approved != nil {
		approved = sql.NullBool{Bool: *change.Approved, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, q, string(change.To), approved, toMillis(r.now()), id.String())
	result, err := scanSQLiteTraveler(row)
	if err != nil {
		return domain.Traveler{}, fmt.Errorf("repo.TravelerRepo.SetStatus: %w", storeErr(err))
	}
	return result, nil
}

func (r *sqliteTravelerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM travelers WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("repo.TravelerRepo.Delete: %w", storeErr(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repo.TravelerRepo.Delete: %w", storeErr(err))
	}
	if n == 0 {
		return fmt.Errorf("repo.TravelerRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *sqliteTravelerRepo) list(ctx context.Context, q string, args ...any) ([]domain.Traveler, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	travelers := []domain.Traveler{}
	for rows.Next() {
		t, err := scanSQLiteTraveler(rows)
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

// sqliteArgs binds the writable columns in travelerColumns order, minus id,
// status and the timestamps.
func sqliteArgs(t domain.Traveler) []any {
	return []any{
		t.FirstName,
		t.LastName,
		t.Country,
		formatDay(t.TravelStart),
		formatDay(t.TravelEnd),
		t.PassportNumber,
		t.TravelApproved,
		t.ItineraryLink,
		t.Contacts.Primary.Label,
		t.Contacts.Primary.Value,
		t.Contacts.Secondary.Name,
		t.Contacts.Secondary.Phone,
		t.Contacts.Secondary.Relationship,
		t.Contacts.Emergency.Name,
		t.Contacts.Emergency.Phone,
		t.Contacts.Emergency.Relationship,
	}
}

func scanSQLiteTraveler(s scanner) (domain.Traveler, error) {
	var (
		t                  domain.Traveler
		id, start, end     string
		status             string
		createdAt, updated int64
	)

	err := s.Scan(
		&id, &t.FirstName, &t.LastName, &t.Country, &start, &end,
		&t.PassportNumber, &t.TravelApproved, &t.ItineraryLink, &status,
		&t.Contacts.Primary.Label, &t.Contacts.Primary.Value,
		&t.Contacts.Secondary.Name, &t.Contacts.Secondary.Phone, &t.Contacts.Secondary.Relationship,
		&t.Contacts.Emergency.Name, &t.Contacts.Emergency.Phone, &t.Contacts.Emergency.Relationship,
		&createdAt, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Traveler{}, domain.ErrNotFound
		}
		return domain.Traveler{}, err
	}

	if t.ID, err = uuid.Parse(id); err != nil {
		return domain.Traveler{}, fmt.Errorf("parse id: %w", err)
	}
	if t.TravelStart, err = time.Parse(domain.DateLayout, start); err != nil {
		return domain.Traveler{}, fmt.Errorf("parse travel_start: %w", err)
	}
	if t.TravelEnd, err = time.Parse(domain.DateLayout, end); err != nil {
		return domain.Traveler{}, fmt.Errorf("parse travel_end: %w", err)
	}
	t.Status = domain.Status(status)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func formatDay(t time.Time) string {
	return domain.Day(t).Format(domain.DateLayout)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
