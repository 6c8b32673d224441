package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

// CreateTrip persists a new trip and its initial roster.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	// Generate ID if not set
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	if trip.CreatedAt == 0 {
		trip.CreatedAt = time.Now().Unix()
	}
	if trip.Name == "" {
		trip.Name = generateTripName(trip.Destination, trip.Members)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO trips (id, name, destination, start_date, end_date, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trip.ID, trip.Name, trip.Destination, trip.StartDate, trip.EndDate, trip.CreatedBy, trip.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	members, err := insertMembers(ctx, tx, trip.ID, 0, nil, trip.Members)
	if err != nil {
		return err
	}
	trip.Members = members

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// insertMembers appends members not in existing, starting at position next.
// It returns the resulting roster.
func insertMembers(ctx context.Context, tx *sql.Tx, tripID string, next int, existing, members []string) ([]string, error) {
	seen := make(map[string]bool, len(existing)+len(members))
	roster := append([]string(nil), existing...)
	for _, m := range existing {
		seen[m] = true
	}
	for _, m := range members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		_, err := tx.ExecContext(ctx,
			"INSERT INTO trip_members (trip_id, user_id, position) VALUES (?, ?, ?)",
			tripID, m, next,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert trip member: %w", err)
		}
		next++
		roster = append(roster, m)
	}
	return roster, nil
}

// GetTrip retrieves a trip by ID, including its members.
func (s *SQLiteStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip := &models.Trip{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, destination, start_date, end_date, created_by, created_at
		 FROM trips WHERE id = ?`,
		tripID,
	).Scan(&trip.ID, &trip.Name, &trip.Destination, &trip.StartDate, &trip.EndDate, &trip.CreatedBy, &trip.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("trip", tripID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	members, err := s.tripMembers(ctx, tripID)
	if err != nil {
		return nil, err
	}
	trip.Members = members

	return trip, nil
}

func (s *SQLiteStore) tripMembers(ctx context.Context, tripID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM trip_members WHERE trip_id = ? ORDER BY position",
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan trip member: %w", err)
		}
		members = append(members, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trip members: %w", err)
	}
	return members, nil
}

// ListTripsByMember retrieves all trips the user belongs to.
func (s *SQLiteStore) ListTripsByMember(ctx context.Context, userID string) ([]*models.Trip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.destination, t.start_date, t.end_date, t.created_by, t.created_at
		 FROM trips t
		 JOIN trip_members m ON m.trip_id = t.id
		 WHERE m.user_id = ?
		 ORDER BY t.created_at DESC, t.rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips by member: %w", err)
	}

	var trips []*models.Trip
	for rows.Next() {
		trip := &models.Trip{}
		if err := rows.Scan(&trip.ID, &trip.Name, &trip.Destination, &trip.StartDate, &trip.EndDate,
			&trip.CreatedBy, &trip.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}

	for _, trip := range trips {
		members, err := s.tripMembers(ctx, trip.ID)
		if err != nil {
			return nil, err
		}
		trip.Members = members
	}

	return trips, nil
}

// UpdateTrip updates trip details.
func (s *SQLiteStore) UpdateTrip(ctx context.Context, trip *models.Trip) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE trips SET name = ?, destination = ?, start_date = ?, end_date = ? WHERE id = ?`,
		trip.Name, trip.Destination, trip.StartDate, trip.EndDate, trip.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound("trip", trip.ID)
	}
	return nil
}

// DeleteTrip removes a trip by ID. Members and expenses are removed by cascade.
func (s *SQLiteStore) DeleteTrip(ctx context.Context, tripID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM trips WHERE id = ?", tripID)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound("trip", tripID)
	}
	return nil
}

// AddTripMembers appends new members to the end of the roster.
func (s *SQLiteStore) AddTripMembers(ctx context.Context, tripID string, members []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM trips WHERE id = ?", tripID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("trip", tripID)
	}
	if err != nil {
		return fmt.Errorf("failed to check trip existence: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT user_id, position FROM trip_members WHERE trip_id = ? ORDER BY position",
		tripID,
	)
	if err != nil {
		return fmt.Errorf("failed to get trip members: %w", err)
	}
	var existing []string
	next := 0
	for rows.Next() {
		var userID string
		var position int
		if err := rows.Scan(&userID, &position); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan trip member: %w", err)
		}
		existing = append(existing, userID)
		next = position + 1
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate trip members: %w", err)
	}

	if _, err := insertMembers(ctx, tx, tripID, next, existing, members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveTripMember removes a member from the roster unless an expense of the trip
// still references them. The check and the delete share one transaction.
func (s *SQLiteStore) RemoveTripMember(ctx context.Context, tripID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var inUse bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM expense_payers p JOIN expenses e ON e.id = p.expense_id
			WHERE e.trip_id = ? AND p.user_id = ?
		) OR EXISTS (
			SELECT 1 FROM expense_shares s JOIN expenses e ON e.id = s.expense_id
			WHERE e.trip_id = ? AND s.user_id = ?
		)`,
		tripID, userID, tripID, userID,
	).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("failed to check member expenses: %w", err)
	}
	if inUse {
		return fmt.Errorf("%w: %s", storage.ErrMemberInUse, userID)
	}

	result, err := tx.ExecContext(ctx,
		"DELETE FROM trip_members WHERE trip_id = ? AND user_id = ?",
		tripID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove trip member: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound("trip member", userID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
