package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/packlane/packlane-backend/errors"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/middleware"
	"github.com/packlane/packlane-backend/types"
)

// Suggester generates packing-item suggestions for a destination and window.
type Suggester interface {
	Suggest(ctx context.Context, destination string, startDate, endDate time.Time) ([]string, error)
}

type SuggestionHandler struct {
	trips     store.TripStore
	suggester Suggester
}

func NewSuggestionHandler(trips store.TripStore, suggester Suggester) *SuggestionHandler {
	return &SuggestionHandler{trips: trips, suggester: suggester}
}

// GetSuggestions handles POST /v1/trips/:id/suggestions. The returned names
// are advisory; the client adds accepted ones through the bulk-items
// endpoint.
func (h *SuggestionHandler) GetSuggestions(c *gin.Context) {
	tripID := c.Param("id")
	trip, err := h.trips.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.TripNotFound(tripID))
			return
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	if trip.CreatedBy != middleware.GetUserID(c) {
		_ = c.Error(apperrors.Forbidden("Access denied", "you do not have access to this trip"))
		return
	}

	items, err := h.suggester.Suggest(c.Request.Context(), trip.Destination, trip.StartDate, trip.EndDate)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, types.SuggestionResponse{
		ChecklistID: tripID,
		Items:       items,
	})
}
