package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/types"
)

// ShareStore implements store.ShareStore using PostgreSQL.
type ShareStore struct {
	db DB
}

var _ store.ShareStore = (*ShareStore)(nil)

// NewShareStore creates a new ShareStore instance.
func NewShareStore(db DB) *ShareStore {
	return &ShareStore{db: db}
}

// CreateShare inserts a collaborator grant and returns its id.
func (s *ShareStore) CreateShare(ctx context.Context, share *types.ChecklistShare) (string, error) {
	query := `
		INSERT INTO checklist_shares (checklist_id, email, role, invited_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	role := share.Role
	if role == "" {
		role = types.ShareRoleEditor
	}

	var id string
	err := s.db.QueryRow(ctx, query,
		share.ChecklistID,
		share.Email,
		role,
		share.InvitedBy,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", store.ErrDuplicate
		}
		return "", err
	}

	return id, nil
}

// ListShares retrieves all collaborator grants for a checklist.
func (s *ShareStore) ListShares(ctx context.Context, checklistID string) ([]*types.ChecklistShare, error) {
	query := `
		SELECT id, checklist_id, email, role, invited_by, accepted_at, created_at
		FROM checklist_shares
		WHERE checklist_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []*types.ChecklistShare
	for rows.Next() {
		share := &types.ChecklistShare{}
		err := rows.Scan(
			&share.ID,
			&share.ChecklistID,
			&share.Email,
			&share.Role,
			&share.InvitedBy,
			&share.AcceptedAt,
			&share.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return shares, nil
}

// DeleteShare revokes a collaborator grant.
func (s *ShareStore) DeleteShare(ctx context.Context, id string) error {
	query := `DELETE FROM checklist_shares WHERE id = $1`

	result, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}
