package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/packlane/packlane-backend/errors"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/middleware"
	"github.com/packlane/packlane-backend/types"
)

type ItemHandler struct {
	items store.ChecklistStore
	trips store.TripStore
}

func NewItemHandler(items store.ChecklistStore, trips store.TripStore) *ItemHandler {
	return &ItemHandler{items: items, trips: trips}
}

// CreateItem handles POST /v1/trips/:id/items.
func (h *ItemHandler) CreateItem(c *gin.Context) {
	if !h.requireTripAccess(c) {
		return
	}

	var req types.PackingItemCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	item := &types.PackingItem{
		ChecklistID: c.Param("id"),
		Name:        req.Name,
		Quantity:    quantity,
		Status:      types.ItemStatusUnchecked,
		CreatedBy:   middleware.GetUserID(c),
	}

	id, err := h.items.CreateItem(c.Request.Context(), item)
	if err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}
	item.ID = id

	c.JSON(http.StatusCreated, item)
}

// BulkCreateItems handles POST /v1/trips/:id/items/bulk. It is the landing
// spot for accepted AI suggestions; items land unchecked.
func (h *ItemHandler) BulkCreateItems(c *gin.Context) {
	if !h.requireTripAccess(c) {
		return
	}

	var req types.BulkItemsCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	userID := middleware.GetUserID(c)
	checklistID := c.Param("id")
	created := make([]*types.PackingItem, 0, len(req.Names))
	for _, name := range req.Names {
		if name == "" {
			continue
		}
		item := &types.PackingItem{
			ChecklistID: checklistID,
			Name:        name,
			Quantity:    1,
			Status:      types.ItemStatusUnchecked,
			CreatedBy:   userID,
		}
		id, err := h.items.CreateItem(c.Request.Context(), item)
		if err != nil {
			_ = c.Error(apperrors.NewDatabaseError(err))
			return
		}
		item.ID = id
		created = append(created, item)
	}

	logger.GetLogger().Infow("Bulk items created",
		"checklistId", checklistID,
		"count", len(created))
	c.JSON(http.StatusCreated, gin.H{"items": created})
}

// ListItems handles GET /v1/trips/:id/items.
func (h *ItemHandler) ListItems(c *gin.Context) {
	if !h.requireTripAccess(c) {
		return
	}

	items, err := h.items.ListItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// UpdateItem handles PATCH /v1/trips/:id/items/:itemId. Checking an item off
// is a plain status update; the reminder notices the change at its next
// firing rather than through any event.
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	if !h.requireTripAccess(c) {
		return
	}

	var req types.PackingItemUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}
	if req.Status != nil && *req.Status != types.ItemStatusChecked && *req.Status != types.ItemStatusUnchecked {
		_ = c.Error(apperrors.ValidationFailed("Invalid item status", string(*req.Status)))
		return
	}

	if !h.requireItemInTrip(c) {
		return
	}

	item, err := h.items.UpdateItem(c.Request.Context(), c.Param("itemId"), &req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.NotFound("Packing item", c.Param("itemId")))
			return
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /v1/trips/:id/items/:itemId.
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	if !h.requireTripAccess(c) {
		return
	}
	if !h.requireItemInTrip(c) {
		return
	}

	if err := h.items.DeleteItem(c.Request.Context(), c.Param("itemId")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.NotFound("Packing item", c.Param("itemId")))
			return
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.Status(http.StatusNoContent)
}

// requireItemInTrip verifies the item in the path belongs to the trip in the
// path. An item id from another trip reads as not found rather than leaking
// its existence.
func (h *ItemHandler) requireItemInTrip(c *gin.Context) bool {
	itemID := c.Param("itemId")
	item, err := h.items.GetItem(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.NotFound("Packing item", itemID))
			return false
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return false
	}

	if item.ChecklistID != c.Param("id") {
		_ = c.Error(apperrors.NotFound("Packing item", itemID))
		return false
	}
	return true
}

// requireTripAccess verifies the trip exists and the requester owns it.
func (h *ItemHandler) requireTripAccess(c *gin.Context) bool {
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
