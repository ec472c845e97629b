// Package scheduler implements the packing-reminder scheduler: a passive
// state machine driven by the job queue that decides, per firing, whether to
// notify the user, whether to disable the reminder, and when to fire next.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/packlane/packlane-backend/config"
	"github.com/packlane/packlane-backend/internal/jobqueue"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// JobKeyPrefix namespaces reminder jobs in the shared queue.
const JobKeyPrefix = "packing_reminder_"

// JobKey returns the unique queue key for a checklist's reminder job.
func JobKey(checklistID string) string {
	return JobKeyPrefix + checklistID
}

// JobQueue is the slice of the job queue the scheduler uses.
type JobQueue interface {
	EnqueueUnique(ctx context.Context, key string, payload jobqueue.Payload, delay time.Duration) error
	CancelUnique(ctx context.Context, key string) error
}

// Notifier delivers a user-visible notification. Implementations are
// best-effort; duplicate keys replace the prior visible notification.
type Notifier interface {
	Notify(ctx context.Context, key string, title string, body string) error
}

type schedulerMetrics struct {
	firings       prometheus.Counter
	notifications prometheus.Counter
	stops         *prometheus.CounterVec
	reschedules   prometheus.Counter
}

// Singleton pattern for metrics (avoid double registration in tests).
var (
	sMetricsInstance *schedulerMetrics
	sMetricsOnce     sync.Once
	sDefaultRegistry = prometheus.DefaultRegisterer
)

func newSchedulerMetrics() *schedulerMetrics {
	sMetricsOnce.Do(func() {
		sMetricsInstance = &schedulerMetrics{
			firings: promauto.With(sDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "packlane_reminder_firings_total",
				Help: "Total number of reminder firings processed",
			}),
			notifications: promauto.With(sDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "packlane_reminder_notifications_total",
				Help: "Total number of packing notifications emitted",
			}),
			stops: promauto.With(sDefaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "packlane_reminder_stops_total",
				Help: "Total number of reminders disabled, by reason",
			}, []string{"reason"}),
			reschedules: promauto.With(sDefaultRegistry).NewCounter(prometheus.CounterOpts{
				Name: "packlane_reminder_reschedules_total",
				Help: "Total number of reminder reschedules",
			}),
		}
	})
	return sMetricsInstance
}

func resetSchedulerMetricsForTesting() {
	reg := prometheus.NewRegistry()
	sDefaultRegistry = reg
	sMetricsInstance = nil
	sMetricsOnce = sync.Once{}
}

// Service orchestrates recurring, self-rescheduling packing reminders.
type Service struct {
	reminders  store.ReminderStore
	checklists store.ChecklistStore
	queue      JobQueue
	notifier   Notifier
	cfg        config.SchedulerConfig
	log        *zap.SugaredLogger
	metrics    *schedulerMetrics

	// now is swapped in tests.
	now func() time.Time
}

// NewService creates the reminder scheduler.
func NewService(
	reminders store.ReminderStore,
	checklists store.ChecklistStore,
	queue JobQueue,
	notifier Notifier,
	cfg config.SchedulerConfig,
) *Service {
	if cfg.MaxNotifiedItems < 1 {
		cfg.MaxNotifiedItems = 10
	}
	return &Service{
		reminders:  reminders,
		checklists: checklists,
		queue:      queue,
		notifier:   notifier,
		cfg:        cfg,
		log:        logger.GetLogger().Named("reminder-scheduler"),
		metrics:    newSchedulerMetrics(),
		now:        time.Now,
	}
}

// Save upserts the reminder configuration for a checklist and replaces its
// scheduled job. A disabled save cancels the job but keeps the record, so
// the user's configuration survives toggling.
//
// Only store I/O failures are returned; queue failures are logged and
// absorbed so a degraded Redis never blocks saving the configuration.
func (s *Service) Save(ctx context.Context, input types.SaveReminderInput) (*types.Reminder, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	interval := input.RepeatIntervalDays
	if interval < 1 {
		// Tolerated misconfiguration, clamped rather than rejected.
		interval = 1
	}

	reminder := &types.Reminder{
		ChecklistID:        input.ChecklistID,
		ReminderTime:       input.ReminderTime,
		RepeatType:         input.RepeatType,
		RepeatIntervalDays: interval,
		IsEnabled:          input.IsEnabled,
		StopWhenCompleted:  input.StopWhenCompleted,
		StopAtTripStart:    input.StopAtTripStart,
	}

	saved, err := s.reminders.Upsert(ctx, reminder)
	if err != nil {
		s.log.Errorw("Failed to save reminder",
			"checklistId", input.ChecklistID,
			"error", err)
		return nil, err
	}

	if saved.IsEnabled && saved.StopAtTripStart {
		// Advisory only. A reminder anchored after the trip start fires at
		// most once before the stop condition disables it.
		if start, err := s.checklists.GetTripStartTime(ctx, saved.ChecklistID); err == nil && start != nil && saved.ReminderTime.After(*start) {
			s.log.Warnw("Reminder anchored after trip start, will fire at most once",
				"checklistId", saved.ChecklistID,
				"reminderTime", saved.ReminderTime,
				"tripStart", *start)
		}
	}

	key := JobKey(input.ChecklistID)
	if saved.IsEnabled {
		delay := DelayUntil(saved.ReminderTime, s.now())
		if err := s.queue.EnqueueUnique(ctx, key, jobqueue.Payload{ChecklistID: saved.ChecklistID}, delay); err != nil {
			s.log.Errorw("Failed to schedule reminder job",
				"checklistId", saved.ChecklistID,
				"error", err)
		} else {
			s.log.Infow("Reminder scheduled",
				"checklistId", saved.ChecklistID,
				"reminderTime", saved.ReminderTime,
				"repeatType", saved.RepeatType,
				"delay", delay)
		}
	} else {
		if err := s.queue.CancelUnique(ctx, key); err != nil {
			s.log.Warnw("Failed to cancel reminder job for disabled save",
				"checklistId", saved.ChecklistID,
				"error", err)
		}
	}

	return saved, nil
}

// Cancel stops future firings for a checklist: the pending job is removed
// and the stored reminder, if any, is flipped to disabled. Best-effort by
// contract — it runs from trip-deletion and stop-condition paths where the
// caller cannot react to a failure, so everything is swallowed and logged.
func (s *Service) Cancel(ctx context.Context, checklistID string) {
	if err := s.queue.CancelUnique(ctx, JobKey(checklistID)); err != nil {
		s.log.Warnw("Failed to cancel reminder job",
			"checklistId", checklistID,
			"error", err)
	}

	if err := s.reminders.SetEnabled(ctx, checklistID, false); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Warnw("Failed to disable reminder record",
			"checklistId", checklistID,
			"error", err)
	}
}

// HandleFire processes one firing of a checklist's reminder job. It is the
// job queue's handler: every internal error is absorbed here, because no
// caller can usefully react and a queue-level retry for business reasons is
// never wanted. Duplicate firings are safe — a reminder already disabled by
// an earlier firing short-circuits at the enabled-check.
func (s *Service) HandleFire(ctx context.Context, checklistID string) error {
	s.metrics.firings.Inc()
	now := s.now()

	reminder, err := s.reminders.GetEnabledByChecklistID(ctx, checklistID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted or already disabled; a stale firing racing a
			// cancellation lands here and must do nothing.
			s.log.Debugw("No active reminder at fire time", "checklistId", checklistID)
			return nil
		}
		// Unreadable reminder is treated as no active reminder.
		s.log.Errorw("Failed to load reminder at fire time",
			"checklistId", checklistID,
			"error", err)
		return nil
	}

	unchecked, err := s.checklists.GetUncheckedItemNames(ctx, checklistID)
	uncheckedKnown := err == nil
	if err != nil {
		s.log.Errorw("Failed to load unchecked items, skipping notification and completed-stop",
			"checklistId", checklistID,
			"error", err)
	}

	decision := Decide(*reminder, len(unchecked), uncheckedKnown, now)

	// Notify before evaluating stop side effects, so the occurrence that
	// coincides with a stop condition is still delivered.
	if decision.Notify {
		s.emitNotification(ctx, checklistID, unchecked)
	}

	if decision.Disable {
		s.stop(ctx, checklistID, decision.StopReason)
		return nil
	}

	if decision.NextTime != nil {
		s.reschedule(ctx, reminder, *decision.NextTime, now)
	}

	return nil
}

// emitNotification sends the packing notification. Delivery failures are
// logged and ignored; they must not affect stop evaluation or rescheduling.
func (s *Service) emitNotification(ctx context.Context, checklistID string, unchecked []string) {
	body := s.notificationBody(unchecked)

	if err := s.notifier.Notify(ctx, checklistID, "Time to pack!", body); err != nil {
		s.log.Warnw("Failed to deliver packing notification",
			"checklistId", checklistID,
			"error", err)
		return
	}

	s.metrics.notifications.Inc()
	s.log.Infow("Packing notification sent",
		"checklistId", checklistID,
		"uncheckedCount", len(unchecked))
}

func (s *Service) notificationBody(unchecked []string) string {
	if len(unchecked) == 0 {
		return "You still have items left to pack."
	}

	max := s.cfg.MaxNotifiedItems
	if len(unchecked) <= max {
		return "Still to pack: " + strings.Join(unchecked, ", ")
	}
	return "Still to pack: " + strings.Join(unchecked[:max], ", ") + ", ..."
}

// stop disables the reminder after a stop condition or a ONCE firing. The
// job cancel is best-effort, but the disable write happens synchronously
// before returning so a crash cannot lose a stop condition; at worst a
// retry re-sends one notification.
func (s *Service) stop(ctx context.Context, checklistID string, reason string) {
	if err := s.queue.CancelUnique(ctx, JobKey(checklistID)); err != nil {
		s.log.Warnw("Failed to cancel job while stopping reminder",
			"checklistId", checklistID,
			"reason", reason,
			"error", err)
	}

	if err := s.reminders.SetEnabled(ctx, checklistID, false); err != nil {
		// The record stays enabled until the next firing notices the stop
		// condition again — an acceptable self-healing inconsistency.
		s.log.Errorw("Failed to persist reminder stop",
			"checklistId", checklistID,
			"reason", reason,
			"error", err)
		return
	}

	s.metrics.stops.WithLabelValues(reason).Inc()
	s.log.Infow("Reminder stopped",
		"checklistId", checklistID,
		"reason", reason)
}

// reschedule advances the anchor and enqueues the next occurrence. The
// advanced anchor is persisted so the following firing computes from the
// right base; if that write fails the job still fires and self-corrects by
// advancing again.
func (s *Service) reschedule(ctx context.Context, reminder *types.Reminder, next time.Time, now time.Time) {
	updated := *reminder
	updated.ReminderTime = next

	if _, err := s.reminders.Upsert(ctx, &updated); err != nil {
		s.log.Errorw("Failed to persist advanced reminder time",
			"checklistId", reminder.ChecklistID,
			"next", next,
			"error", err)
	}

	delay := DelayUntil(next, now)
	key := JobKey(reminder.ChecklistID)
	if err := s.queue.EnqueueUnique(ctx, key, jobqueue.Payload{ChecklistID: reminder.ChecklistID}, delay); err != nil {
		s.log.Errorw("Failed to enqueue next reminder occurrence",
			"checklistId", reminder.ChecklistID,
			"next", next,
			"error", err)
		return
	}

	s.metrics.reschedules.Inc()
	s.log.Debugw("Reminder rescheduled",
		"checklistId", reminder.ChecklistID,
		"next", next,
		"delay", delay)
}
