// ABOUTME: Visit record store over SQLite
// ABOUTME: Owns the durable visit list and the single-active-visit invariant
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/officelog/models"
)

// VisitStore is the durable store of presence intervals. All writes go
// through the presence machine's single-writer loop; readers may query
// snapshots concurrently.
type VisitStore struct {
	db *sql.DB
}

// NewVisitStore wraps an open database.
func NewVisitStore(database *sql.DB) *VisitStore {
	return &VisitStore{db: database}
}

// Insert stores a new visit. Inserting a second active visit violates
// the partial unique index and returns an error.
func (s *VisitStore) Insert(v models.Visit) error {
	var exit sql.NullTime
	if v.ExitTime != nil {
		exit = sql.NullTime{Time: *v.ExitTime, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO visits (id, date, entry_time, exit_time, latitude, longitude, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID.String(), v.Date, v.EntryTime, exit,
		v.Coordinate.Latitude, v.Coordinate.Longitude, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// Finalize records the exit time for a visit.
func (s *VisitStore) Finalize(id uuid.UUID, exitTime time.Time) error {
	res, err := s.db.Exec(`
		UPDATE visits SET exit_time = ?, updated_at = ? WHERE id = ?
	`, exitTime, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to finalize visit: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("visit %s not found", id)
	}
	return nil
}

// Delete removes a visit record.
func (s *VisitStore) Delete(id uuid.UUID) error {
	_, err := s.db.Exec(`DELETE FROM visits WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	return nil
}

// Active returns the one unterminated visit, or nil if away.
func (s *VisitStore) Active() (*models.Visit, error) {
	row := s.db.QueryRow(`
		SELECT id, date, entry_time, exit_time, latitude, longitude, created_at, updated_at
		FROM visits WHERE exit_time IS NULL
	`)

	v, err := scanVisit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active visit: %w", err)
	}
	return v, nil
}

// Get returns a visit by ID, or nil if absent.
func (s *VisitStore) Get(id uuid.UUID) (*models.Visit, error) {
	row := s.db.QueryRow(`
		SELECT id, date, entry_time, exit_time, latitude, longitude, created_at, updated_at
		FROM visits WHERE id = ?
	`, id.String())

	v, err := scanVisit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query visit: %w", err)
	}
	return v, nil
}

// ByDate returns all visits attributed to a day (YYYY-MM-DD), entry order.
func (s *VisitStore) ByDate(date string) ([]models.Visit, error) {
	return s.queryVisits(`
		SELECT id, date, entry_time, exit_time, latitude, longitude, created_at, updated_at
		FROM visits WHERE date = ? ORDER BY entry_time
	`, date)
}

// ByDateRange returns visits with from ≤ date ≤ to, entry order.
func (s *VisitStore) ByDateRange(from, to string) ([]models.Visit, error) {
	return s.queryVisits(`
		SELECT id, date, entry_time, exit_time, latitude, longitude, created_at, updated_at
		FROM visits WHERE date >= ? AND date <= ? ORDER BY entry_time
	`, from, to)
}

func (s *VisitStore) queryVisits(query string, args ...any) ([]models.Visit, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	defer rows.Close()

	var visits []models.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	return visits, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*models.Visit, error) {
	var v models.Visit
	var idStr string
	var exit sql.NullTime

	err := row.Scan(&idStr, &v.Date, &v.EntryTime, &exit,
		&v.Coordinate.Latitude, &v.Coordinate.Longitude, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid visit id %q: %w", idStr, err)
	}
	v.ID = id

	if exit.Valid {
		t := exit.Time
		v.ExitTime = &t
	}
	return &v, nil
}
