package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/types"
)

// ReminderStore implements store.ReminderStore using PostgreSQL.
//
// The packing_reminders table carries a UNIQUE constraint on checklist_id,
// which is what makes Upsert's ON CONFLICT clause enforce the one-reminder-
// per-checklist invariant at the storage layer.
type ReminderStore struct {
	db DB
}

var _ store.ReminderStore = (*ReminderStore)(nil)

// NewReminderStore creates a new ReminderStore instance.
func NewReminderStore(db DB) *ReminderStore {
	return &ReminderStore{db: db}
}

const reminderColumns = `id, checklist_id, reminder_time, repeat_type, repeat_interval_days,
		is_enabled, stop_when_completed, stop_at_trip_start, created_at, updated_at`

// GetByChecklistID retrieves the reminder for a checklist regardless of its
// enabled flag.
func (s *ReminderStore) GetByChecklistID(ctx context.Context, checklistID string) (*types.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM packing_reminders
		WHERE checklist_id = $1`

	return s.scanOne(s.db.QueryRow(ctx, query, checklistID))
}

// GetEnabledByChecklistID retrieves the reminder only when it is enabled.
// A disabled reminder is indistinguishable from a missing one here, so a
// stale firing racing a cancellation sees ErrNotFound and no-ops.
func (s *ReminderStore) GetEnabledByChecklistID(ctx context.Context, checklistID string) (*types.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM packing_reminders
		WHERE checklist_id = $1 AND is_enabled = TRUE`

	return s.scanOne(s.db.QueryRow(ctx, query, checklistID))
}

// Upsert creates or replaces the reminder for its checklist. On conflict the
// existing row's id and created_at are preserved; everything else is
// replaced by the new configuration.
func (s *ReminderStore) Upsert(ctx context.Context, r *types.Reminder) (*types.Reminder, error) {
	query := `
		INSERT INTO packing_reminders
			(checklist_id, reminder_time, repeat_type, repeat_interval_days,
			 is_enabled, stop_when_completed, stop_at_trip_start)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (checklist_id) DO UPDATE SET
			reminder_time = EXCLUDED.reminder_time,
			repeat_type = EXCLUDED.repeat_type,
			repeat_interval_days = EXCLUDED.repeat_interval_days,
			is_enabled = EXCLUDED.is_enabled,
			stop_when_completed = EXCLUDED.stop_when_completed,
			stop_at_trip_start = EXCLUDED.stop_at_trip_start,
			updated_at = NOW()
		RETURNING ` + reminderColumns

	return s.scanOne(s.db.QueryRow(ctx, query,
		r.ChecklistID,
		r.ReminderTime,
		r.RepeatType,
		r.RepeatIntervalDays,
		r.IsEnabled,
		r.StopWhenCompleted,
		r.StopAtTripStart,
	))
}

// SetEnabled flips the enabled flag without touching the rest of the
// configuration.
func (s *ReminderStore) SetEnabled(ctx context.Context, checklistID string, enabled bool) error {
	query := `
		UPDATE packing_reminders
		SET is_enabled = $1, updated_at = NOW()
		WHERE checklist_id = $2`

	result, err := s.db.Exec(ctx, query, enabled, checklistID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

// DeleteByChecklistID removes the reminder record. A missing row is fine;
// this runs from cascading trip-deletion cleanup.
func (s *ReminderStore) DeleteByChecklistID(ctx context.Context, checklistID string) error {
	query := `DELETE FROM packing_reminders WHERE checklist_id = $1`

	_, err := s.db.Exec(ctx, query, checklistID)
	return err
}

func (s *ReminderStore) scanOne(row pgx.Row) (*types.Reminder, error) {
	r := &types.Reminder{}
	err := row.Scan(
		&r.ID,
		&r.ChecklistID,
		&r.ReminderTime,
		&r.RepeatType,
		&r.RepeatIntervalDays,
		&r.IsEnabled,
		&r.StopWhenCompleted,
		&r.StopAtTripStart,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	return r, nil
}
