package postgres

import (
	"context"

	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/types"
)

// PushTokenStore implements store.PushTokenStore using PostgreSQL.
type PushTokenStore struct {
	db DB
}

var _ store.PushTokenStore = (*PushTokenStore)(nil)

// NewPushTokenStore creates a new PushTokenStore instance.
func NewPushTokenStore(db DB) *PushTokenStore {
	return &PushTokenStore{db: db}
}

// RegisterToken records a device token, reactivating it if it was
// previously invalidated.
func (s *PushTokenStore) RegisterToken(ctx context.Context, token *types.PushToken) error {
	query := `
		INSERT INTO push_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			is_active = TRUE`

	_, err := s.db.Exec(ctx, query, token.UserID, token.Token, token.Platform)
	return err
}

// GetActiveTokensForChecklist returns the active device tokens for the
// owner of the trip behind a checklist.
func (s *PushTokenStore) GetActiveTokensForChecklist(ctx context.Context, checklistID string) ([]*types.PushToken, error) {
	query := `
		SELECT pt.id, pt.user_id, pt.token, pt.platform, pt.is_active, pt.last_used_at, pt.created_at
		FROM push_tokens pt
		JOIN trips t ON t.created_by = pt.user_id
		WHERE t.id = $1 AND t.deleted_at IS NULL AND pt.is_active`

	rows, err := s.db.Query(ctx, query, checklistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*types.PushToken
	for rows.Next() {
		token := &types.PushToken{}
		err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.Token,
			&token.Platform,
			&token.IsActive,
			&token.LastUsedAt,
			&token.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tokens, nil
}

// InvalidateToken deactivates a token the push provider reported as
// unregistered.
func (s *PushTokenStore) InvalidateToken(ctx context.Context, token string) error {
	query := `UPDATE push_tokens SET is_active = FALSE WHERE token = $1`

	_, err := s.db.Exec(ctx, query, token)
	return err
}

// UpdateTokenLastUsed stamps a token after a successful send.
func (s *PushTokenStore) UpdateTokenLastUsed(ctx context.Context, token string) error {
	query := `UPDATE push_tokens SET last_used_at = NOW() WHERE token = $1`

	_, err := s.db.Exec(ctx, query, token)
	return err
}
