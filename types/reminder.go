package types

import (
	"fmt"
	"time"
)

// RepeatType controls how a packing reminder recurs after a firing.
type RepeatType string

const (
	RepeatOnce      RepeatType = "ONCE"
	RepeatDaily     RepeatType = "DAILY"
	RepeatEveryXDay RepeatType = "EVERY_X_DAYS"
)

// Valid reports whether the repeat type is one of the known values.
func (r RepeatType) Valid() bool {
	switch r {
	case RepeatOnce, RepeatDaily, RepeatEveryXDay:
		return true
	}
	return false
}

// Reminder is the per-checklist packing-reminder configuration. At most one
// reminder exists per checklist; the checklist id doubles as the trip id.
//
// ReminderTime is the anchor: the user-configured absolute time the reminder
// targets. For repeating reminders every occurrence reuses its time of day.
type Reminder struct {
	ID                 string     `json:"id"`
	ChecklistID        string     `json:"checklistId"`
	ReminderTime       time.Time  `json:"reminderTime"`
	RepeatType         RepeatType `json:"repeatType"`
	RepeatIntervalDays int        `json:"repeatIntervalDays"`
	IsEnabled          bool       `json:"isEnabled"`
	StopWhenCompleted  bool       `json:"stopWhenCompleted"`
	StopAtTripStart    bool       `json:"stopAtTripStart"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// EffectiveInterval returns the repeat interval in days, clamped to at
// least 1. Non-positive intervals are a configuration error that is
// tolerated rather than rejected.
func (r *Reminder) EffectiveInterval() int {
	if r.RepeatIntervalDays < 1 {
		return 1
	}
	return r.RepeatIntervalDays
}

// SaveReminderInput carries everything needed to create or replace the
// reminder for a checklist.
type SaveReminderInput struct {
	ChecklistID        string     `json:"checklistId"`
	ReminderTime       time.Time  `json:"reminderTime" binding:"required"`
	RepeatType         RepeatType `json:"repeatType" binding:"required"`
	RepeatIntervalDays int        `json:"repeatIntervalDays,omitempty"`
	IsEnabled          bool       `json:"isEnabled"`
	StopWhenCompleted  bool       `json:"stopWhenCompleted"`
	StopAtTripStart    bool       `json:"stopAtTripStart"`
}

// Validate checks the fields that cannot be defaulted away.
func (in *SaveReminderInput) Validate() error {
	if in.ChecklistID == "" {
		return fmt.Errorf("checklistId is required")
	}
	if !in.RepeatType.Valid() {
		return fmt.Errorf("unknown repeat type %q", in.RepeatType)
	}
	if in.ReminderTime.IsZero() {
		return fmt.Errorf("reminderTime is required")
	}
	return nil
}
