// Package handlers contains the gin HTTP handlers for the PackLane API.
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

// ReminderCanceller is the slice of the scheduler trip deletion needs.
type ReminderCanceller interface {
	Cancel(ctx context.Context, checklistID string)
}

type TripHandler struct {
	trips     store.TripStore
	scheduler ReminderCanceller
}

func NewTripHandler(trips store.TripStore, scheduler ReminderCanceller) *TripHandler {
	return &TripHandler{trips: trips, scheduler: scheduler}
}

// CreateTrip handles POST /v1/trips.
func (h *TripHandler) CreateTrip(c *gin.Context) {
	log := logger.GetLogger()

	var req types.TripCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}
	if req.EndDate.Before(req.StartDate) {
		_ = c.Error(apperrors.ValidationFailed("Invalid trip dates", "endDate must not be before startDate"))
		return
	}

	trip := &types.Trip{
		Name:        req.Name,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      types.TripStatusPlanning,
		CreatedBy:   middleware.GetUserID(c),
	}

	id, err := h.trips.CreateTrip(c.Request.Context(), trip)
	if err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}
	trip.ID = id

	log.Infow("Trip created", "tripId", id, "destination", trip.Destination)
	c.JSON(http.StatusCreated, trip)
}

// GetTrip handles GET /v1/trips/:id.
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, ok := h.loadOwnedTrip(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, trip)
}

// ListTrips handles GET /v1/trips.
func (h *TripHandler) ListTrips(c *gin.Context) {
	trips, err := h.trips.ListTripsByUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

// UpdateTrip handles PATCH /v1/trips/:id.
func (h *TripHandler) UpdateTrip(c *gin.Context) {
	if _, ok := h.loadOwnedTrip(c); !ok {
		return
	}

	var req types.TripUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}
	if req.Status != nil {
		switch *req.Status {
		case types.TripStatusPlanning, types.TripStatusActive, types.TripStatusComplete:
		default:
			_ = c.Error(apperrors.ValidationFailed("Invalid trip status", string(*req.Status)))
			return
		}
	}

	updated, err := h.trips.UpdateTrip(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.TripNotFound(c.Param("id")))
			return
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteTrip handles DELETE /v1/trips/:id. The trip's reminder job is
// cancelled before the row is soft-deleted so a firing cannot race a
// half-deleted trip.
func (h *TripHandler) DeleteTrip(c *gin.Context) {
	if _, ok := h.loadOwnedTrip(c); !ok {
		return
	}
	tripID := c.Param("id")

	h.scheduler.Cancel(c.Request.Context(), tripID)

	if err := h.trips.SoftDeleteTrip(c.Request.Context(), tripID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.TripNotFound(tripID))
			return
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	logger.GetLogger().Infow("Trip deleted", "tripId", tripID)
	c.Status(http.StatusNoContent)
}

// loadOwnedTrip fetches the trip from the :id param and verifies the
// requester owns it. On failure it attaches the error and returns false.
func (h *TripHandler) loadOwnedTrip(c *gin.Context) (*types.Trip, bool) {
	tripID := c.Param("id")
	if tripID == "" {
		_ = c.Error(apperrors.ValidationFailed("Trip ID missing", "trip id is required"))
		return nil, false
	}

	trip, err := h.trips.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.TripNotFound(tripID))
			return nil, false
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return nil, false
	}

	if trip.CreatedBy != middleware.GetUserID(c) {
		_ = c.Error(apperrors.Forbidden("Access denied", "you do not have access to this trip"))
		return nil, false
	}
	return trip, true
}
