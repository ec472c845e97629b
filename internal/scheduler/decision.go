package scheduler

import (
	"time"

	"github.com/packlane/packlane-backend/types"
)

// Stop reasons, used for logging and metric labels.
const (
	StopReasonTripStart = "trip_start"
	StopReasonCompleted = "completed"
	StopReasonOnce      = "once"
)

// Decision is the outcome of evaluating one reminder firing. It is computed
// purely from the reminder configuration, the checklist state, and the
// clock; the service shell performs the corresponding I/O.
type Decision struct {
	// Notify indicates a user-visible notification should be emitted.
	Notify bool
	// Disable indicates the reminder must be persisted as disabled and its
	// pending job cancelled.
	Disable bool
	// StopReason names why Disable was set; empty otherwise.
	StopReason string
	// NextTime is the advanced anchor for the next occurrence, nil when the
	// reminder does not reschedule.
	NextTime *time.Time
}

// Decide evaluates a single firing of a reminder.
//
// uncheckedKnown is false when the checklist state could not be read; the
// safe branch then skips both the notification and the completed-stop
// condition rather than treating an unreadable checklist as empty.
//
// Ordering is deliberate: the notification is decided before the stop
// conditions, so the occurrence that coincides with a stop condition is
// still delivered. A reminder firing exactly at the trip-start boundary
// notifies the user about that final occurrence, then disables itself.
func Decide(r types.Reminder, uncheckedCount int, uncheckedKnown bool, now time.Time) Decision {
	d := Decision{
		Notify: uncheckedKnown && uncheckedCount > 0,
	}

	// Stop condition A: trip start. The reminder's own time is the anchor,
	// never the trip's stored start date, which may reflect when the trip
	// was created rather than when the user wants to be done packing.
	if r.StopAtTripStart && !now.Before(r.ReminderTime) {
		d.Disable = true
		d.StopReason = StopReasonTripStart
		return d
	}

	// Stop condition B: checklist fully packed.
	if r.StopWhenCompleted && uncheckedKnown && uncheckedCount == 0 {
		d.Disable = true
		d.StopReason = StopReasonCompleted
		return d
	}

	switch r.RepeatType {
	case types.RepeatOnce:
		// Single-shot: never fires twice even absent other stop conditions.
		d.Disable = true
		d.StopReason = StopReasonOnce
	case types.RepeatDaily:
		next := NextOccurrence(r.ReminderTime, 1)
		d.NextTime = &next
	case types.RepeatEveryXDay:
		next := NextOccurrence(r.ReminderTime, r.EffectiveInterval())
		d.NextTime = &next
	default:
		// Unknown repeat type: treat like ONCE so a corrupt record cannot
		// reschedule forever.
		d.Disable = true
		d.StopReason = StopReasonOnce
	}

	return d
}

// NextOccurrence advances the anchor by intervalDays calendar days, with
// seconds and below normalized to zero so every occurrence lands on the
// anchor's original time of day. intervalDays below 1 is clamped to 1.
func NextOccurrence(anchor time.Time, intervalDays int) time.Time {
	if intervalDays < 1 {
		intervalDays = 1
	}

	normalized := time.Date(
		anchor.Year(), anchor.Month(), anchor.Day(),
		anchor.Hour(), anchor.Minute(), 0, 0,
		anchor.Location(),
	)

	return normalized.AddDate(0, 0, intervalDays)
}

// DelayUntil converts an absolute target into an enqueue delay, clamped to
// non-negative so a target already in the past fires immediately instead of
// being skipped (device clock changes, missed firings).
func DelayUntil(target time.Time, now time.Time) time.Duration {
	delay := target.Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}
