// Package store defines the persistence interfaces consumed by the service
// layer. Implementations live in the postgres subpackage.
package store

import (
	"context"
	"time"

	"github.com/packlane/packlane-backend/types"
)

// ReminderStore handles packing-reminder records. A checklist has at most
// one reminder; upserts replace in place, preserving id and created_at.
type ReminderStore interface {
	// GetByChecklistID returns the reminder for a checklist regardless of
	// its enabled flag. Returns ErrNotFound when none exists.
	GetByChecklistID(ctx context.Context, checklistID string) (*types.Reminder, error)

	// GetEnabledByChecklistID returns the reminder only when it is enabled.
	// Returns ErrNotFound for missing or disabled reminders, so a firing
	// that raced a cancellation sees "no active reminder".
	GetEnabledByChecklistID(ctx context.Context, checklistID string) (*types.Reminder, error)

	// Upsert creates or replaces the reminder for its checklist, keeping the
	// existing id and created_at when a row already exists.
	Upsert(ctx context.Context, r *types.Reminder) (*types.Reminder, error)

	// SetEnabled flips the enabled flag in place. Setting it on a missing
	// reminder returns ErrNotFound.
	SetEnabled(ctx context.Context, checklistID string, enabled bool) error

	// DeleteByChecklistID removes the reminder record. Missing rows are not
	// an error; deletion is invoked from cascading cleanup paths.
	DeleteByChecklistID(ctx context.Context, checklistID string) error
}

// ChecklistStore handles packing items and the checklist-level reads the
// scheduler needs.
type ChecklistStore interface {
	CreateItem(ctx context.Context, item *types.PackingItem) (string, error)
	GetItem(ctx context.Context, id string) (*types.PackingItem, error)
	ListItems(ctx context.Context, checklistID string) ([]*types.PackingItem, error)
	UpdateItem(ctx context.Context, id string, update *types.PackingItemUpdate) (*types.PackingItem, error)
	DeleteItem(ctx context.Context, id string) error

	// GetUncheckedItemNames returns the names of unchecked items for a
	// checklist, oldest first.
	GetUncheckedItemNames(ctx context.Context, checklistID string) ([]string, error)

	// GetTripStartTime returns the trip's start date. The scheduler treats
	// this as a secondary data point only; the reminder's own time anchors
	// the trip-start stop condition.
	GetTripStartTime(ctx context.Context, checklistID string) (*time.Time, error)
}

// TripStore handles trip records.
type TripStore interface {
	CreateTrip(ctx context.Context, trip *types.Trip) (string, error)
	GetTrip(ctx context.Context, id string) (*types.Trip, error)
	ListTripsByUser(ctx context.Context, userID string) ([]*types.Trip, error)
	UpdateTrip(ctx context.Context, id string, update *types.TripUpdate) (*types.Trip, error)

	// SoftDeleteTrip marks a trip deleted. Items, reminder, and shares are
	// removed by FK cascade; the caller cancels the reminder job.
	SoftDeleteTrip(ctx context.Context, id string) error
}

// ShareStore handles checklist collaborator grants.
type ShareStore interface {
	CreateShare(ctx context.Context, share *types.ChecklistShare) (string, error)
	ListShares(ctx context.Context, checklistID string) ([]*types.ChecklistShare, error)
	DeleteShare(ctx context.Context, id string) error
}

// PushTokenStore handles Expo device tokens.
type PushTokenStore interface {
	RegisterToken(ctx context.Context, token *types.PushToken) error

	// GetActiveTokensForChecklist returns the active tokens of everyone who
	// should receive a packing reminder for a checklist (trip owner today;
	// collaborators once shared accounts carry user ids).
	GetActiveTokensForChecklist(ctx context.Context, checklistID string) ([]*types.PushToken, error)

	InvalidateToken(ctx context.Context, token string) error
	UpdateTokenLastUsed(ctx context.Context, token string) error
}
