package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/types"
)

// TripStore implements store.TripStore using PostgreSQL.
type TripStore struct {
	db DB
}

var _ store.TripStore = (*TripStore)(nil)

// NewTripStore creates a new TripStore instance.
func NewTripStore(db DB) *TripStore {
	return &TripStore{db: db}
}

const tripColumns = `id, name, destination, start_date, end_date, status, created_by, created_at, updated_at`

// CreateTrip inserts a new trip and returns its id.
func (s *TripStore) CreateTrip(ctx context.Context, trip *types.Trip) (string, error) {
	query := `
		INSERT INTO trips (name, destination, start_date, end_date, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	status := trip.Status
	if status == "" {
		status = types.TripStatusPlanning
	}

	var id string
	err := s.db.QueryRow(ctx, query,
		trip.Name,
		trip.Destination,
		trip.StartDate,
		trip.EndDate,
		status,
		trip.CreatedBy,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetTrip retrieves a trip by its id.
func (s *TripStore) GetTrip(ctx context.Context, id string) (*types.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = $1 AND deleted_at IS NULL`

	return s.scanOne(s.db.QueryRow(ctx, query, id))
}

// ListTripsByUser retrieves all trips created by a user, newest first.
func (s *TripStore) ListTripsByUser(ctx context.Context, userID string) ([]*types.Trip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE created_by = $1 AND deleted_at IS NULL
		ORDER BY start_date DESC`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*types.Trip
	for rows.Next() {
		trip := &types.Trip{}
		err := rows.Scan(
			&trip.ID,
			&trip.Name,
			&trip.Destination,
			&trip.StartDate,
			&trip.EndDate,
			&trip.Status,
			&trip.CreatedBy,
			&trip.CreatedAt,
			&trip.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trips, nil
}

// UpdateTrip updates an existing trip.
func (s *TripStore) UpdateTrip(ctx context.Context, id string, update *types.TripUpdate) (*types.Trip, error) {
	query := `
		UPDATE trips
		SET name = COALESCE($1, name),
			destination = COALESCE($2, destination),
			start_date = COALESCE($3, start_date),
			end_date = COALESCE($4, end_date),
			status = COALESCE($5, status),
			updated_at = NOW()
		WHERE id = $6 AND deleted_at IS NULL
		RETURNING ` + tripColumns

	return s.scanOne(s.db.QueryRow(ctx, query,
		update.Name,
		update.Destination,
		update.StartDate,
		update.EndDate,
		update.Status,
		id,
	))
}

// SoftDeleteTrip marks a trip deleted. The checklist items, reminder record,
// and shares go with it via FK cascade on hard delete; for soft delete the
// reminder job must be cancelled by the caller.
func (s *TripStore) SoftDeleteTrip(ctx context.Context, id string) error {
	query := `
		UPDATE trips
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *TripStore) scanOne(row pgx.Row) (*types.Trip, error) {
	trip := &types.Trip{}
	err := row.Scan(
		&trip.ID,
		&trip.Name,
		&trip.Destination,
		&trip.StartDate,
		&trip.EndDate,
		&trip.Status,
		&trip.CreatedBy,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}
