package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/types"
)

// ChecklistStore implements store.ChecklistStore using PostgreSQL.
type ChecklistStore struct {
	db DB
}

var _ store.ChecklistStore = (*ChecklistStore)(nil)

// NewChecklistStore creates a new ChecklistStore instance.
func NewChecklistStore(db DB) *ChecklistStore {
	return &ChecklistStore{db: db}
}

// CreateItem inserts a new packing item and returns its id.
func (s *ChecklistStore) CreateItem(ctx context.Context, item *types.PackingItem) (string, error) {
	query := `
		INSERT INTO packing_items (checklist_id, name, quantity, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	quantity := item.Quantity
	if quantity < 1 {
		quantity = 1
	}
	status := item.Status
	if status == "" {
		status = types.ItemStatusUnchecked
	}

	var id string
	err := s.db.QueryRow(ctx, query,
		item.ChecklistID,
		item.Name,
		quantity,
		status,
		item.CreatedBy,
	).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetItem retrieves a packing item by its id.
func (s *ChecklistStore) GetItem(ctx context.Context, id string) (*types.PackingItem, error) {
	query := `
		SELECT id, checklist_id, name, quantity, status, created_by, created_at, updated_at
		FROM packing_items
		WHERE id = $1`

	item := &types.PackingItem{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.ChecklistID,
		&item.Name,
		&item.Quantity,
		&item.Status,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return item, nil
}

// ListItems retrieves all items on a checklist, oldest first.
func (s *ChecklistStore) ListItems(ctx context.Context, checklistID string) ([]*types.PackingItem, error) {
	query := `
		SELECT id, checklist_id, name, quantity, status, created_by, created_at, updated_at
		FROM packing_items
		WHERE checklist_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*types.PackingItem
	for rows.Next() {
		item := &types.PackingItem{}
		err := rows.Scan(
			&item.ID,
			&item.ChecklistID,
			&item.Name,
			&item.Quantity,
			&item.Status,
			&item.CreatedBy,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// UpdateItem updates an existing packing item.
func (s *ChecklistStore) UpdateItem(ctx context.Context, id string, update *types.PackingItemUpdate) (*types.PackingItem, error) {
	query := `
		UPDATE packing_items
		SET name = COALESCE($1, name),
			quantity = COALESCE($2, quantity),
			status = COALESCE($3, status),
			updated_at = NOW()
		WHERE id = $4
		RETURNING id, checklist_id, name, quantity, status, created_by, created_at, updated_at`

	item := &types.PackingItem{}
	err := s.db.QueryRow(ctx, query,
		update.Name,
		update.Quantity,
		update.Status,
		id,
	).Scan(
		&item.ID,
		&item.ChecklistID,
		&item.Name,
		&item.Quantity,
		&item.Status,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return item, nil
}

// DeleteItem removes a packing item.
func (s *ChecklistStore) DeleteItem(ctx context.Context, id string) error {
	query := `DELETE FROM packing_items WHERE id = $1`

	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

// GetUncheckedItemNames returns the names of unchecked items for a
// checklist, oldest first. An empty checklist yields an empty slice, not an
// error.
func (s *ChecklistStore) GetUncheckedItemNames(ctx context.Context, checklistID string) ([]string, error) {
	query := `
		SELECT name
		FROM packing_items
		WHERE checklist_id = $1 AND status = 'UNCHECKED'
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return names, nil
}

// GetTripStartTime returns the start date of the trip owning a checklist.
func (s *ChecklistStore) GetTripStartTime(ctx context.Context, checklistID string) (*time.Time, error) {
	query := `
		SELECT start_date
		FROM trips
		WHERE id = $1 AND deleted_at IS NULL`

	var start time.Time
	err := s.db.QueryRow(ctx, query, checklistID).Scan(&start)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return &start, nil
}
