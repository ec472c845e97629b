package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/packlane/packlane-backend/errors"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/middleware"
	"github.com/packlane/packlane-backend/types"
)

// ReminderScheduler is the slice of the scheduler the HTTP surface uses.
type ReminderScheduler interface {
	Save(ctx context.Context, input types.SaveReminderInput) (*types.Reminder, error)
	Cancel(ctx context.Context, checklistID string)
}

type ReminderHandler struct {
	reminders store.ReminderStore
	trips     store.TripStore
	scheduler ReminderScheduler
}

func NewReminderHandler(reminders store.ReminderStore, trips store.TripStore, scheduler ReminderScheduler) *ReminderHandler {
	return &ReminderHandler{reminders: reminders, trips: trips, scheduler: scheduler}
}

// GetReminder handles GET /v1/trips/:id/reminder.
func (h *ReminderHandler) GetReminder(c *gin.Context) {
	if !h.requireTripAccess(c) {
		return
	}

	reminder, err := h.reminders.GetByChecklistID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.ReminderNotFound(c.Param("id")))
			return
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, reminder)
}

// SaveReminder handles PUT /v1/trips/:id/reminder. The endpoint is a full
// replace: the body carries the complete reminder configuration and the
// scheduled job is rebuilt from it.
func (h *ReminderHandler) SaveReminder(c *gin.Context) {
	if !h.requireTripAccess(c) {
		return
	}

	var req types.SaveReminderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}
	req.ChecklistID = c.Param("id")

	if err := req.Validate(); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid reminder", err.Error()))
		return
	}

	saved, err := h.scheduler.Save(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	logger.GetLogger().Infow("Reminder saved",
		"checklistId", saved.ChecklistID,
		"enabled", saved.IsEnabled,
		"repeatType", saved.RepeatType)
	c.JSON(http.StatusOK, saved)
}

// DeleteReminder handles DELETE /v1/trips/:id/reminder. The job is cancelled
// first; the record removal is idempotent.
func (h *ReminderHandler) DeleteReminder(c *gin.Context) {
	if !h.requireTripAccess(c) {
		return
	}
	checklistID := c.Param("id")

	h.scheduler.Cancel(c.Request.Context(), checklistID)

	if err := h.reminders.DeleteByChecklistID(c.Request.Context(), checklistID); err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ReminderHandler) requireTripAccess(c *gin.Context) bool {
	tripID := c.Param("id")
	if tripID == "" {
		_ = c.Error(apperrors.ValidationFailed("Trip ID missing", "trip id is required"))
		return false
	}

	trip, err := h.trips.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.TripNotFound(tripID))
			return false
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return false
	}

	if trip.CreatedBy != middleware.GetUserID(c) {
		_ = c.Error(apperrors.Forbidden("Access denied", "you do not have access to this trip"))
		return false
	}
	return true
}
