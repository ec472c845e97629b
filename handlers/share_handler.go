package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/packlane/packlane-backend/errors"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/middleware"
	"github.com/packlane/packlane-backend/types"
)

// InvitationMailer sends the share-invitation email.
type InvitationMailer interface {
	SendShareInvitation(ctx context.Context, data types.ShareEmailData) error
}

type ShareHandler struct {
	shares      store.ShareStore
	trips       store.TripStore
	mailer      InvitationMailer
	frontendURL string
}

func NewShareHandler(shares store.ShareStore, trips store.TripStore, mailer InvitationMailer, frontendURL string) *ShareHandler {
	return &ShareHandler{
		shares:      shares,
		trips:       trips,
		mailer:      mailer,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

// CreateShare handles POST /v1/trips/:id/shares. The share row is written
// first; the invitation email is best-effort so mail-provider downtime
// cannot block sharing.
func (h *ShareHandler) CreateShare(c *gin.Context) {
	trip, ok := h.loadOwnedTrip(c)
	if !ok {
		return
	}

	var req types.ShareCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	role := req.Role
	if role == "" {
		role = types.ShareRoleViewer
	}
	if role != types.ShareRoleEditor && role != types.ShareRoleViewer {
		_ = c.Error(apperrors.ValidationFailed("Invalid share role", string(req.Role)))
		return
	}

	share := &types.ChecklistShare{
		ChecklistID: trip.ID,
		Email:       strings.ToLower(req.Email),
		Role:        role,
		InvitedBy:   middleware.GetUserID(c),
	}

	id, err := h.shares.CreateShare(c.Request.Context(), share)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			_ = c.Error(apperrors.NewConflictError("Checklist already shared with this email", share.Email))
			return
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}
	share.ID = id

	log := logger.GetLogger()
	if h.mailer != nil {
		emailData := types.ShareEmailData{
			To:      share.Email,
			Subject: fmt.Sprintf("You've been invited to pack for %s", trip.Name),
			TemplateData: map[string]interface{}{
				"InviterName":  share.InvitedBy,
				"TripName":     trip.Name,
				"ChecklistURL": fmt.Sprintf("%s/trips/%s", h.frontendURL, trip.ID),
			},
		}
		if err := h.mailer.SendShareInvitation(c.Request.Context(), emailData); err != nil {
			log.Warnw("Failed to send share-invitation email",
				"checklistId", trip.ID,
				"error", err)
		}
	}

	log.Infow("Checklist shared",
		"checklistId", trip.ID,
		"role", share.Role)
	c.JSON(http.StatusCreated, share)
}

// ListShares handles GET /v1/trips/:id/shares.
func (h *ShareHandler) ListShares(c *gin.Context) {
	trip, ok := h.loadOwnedTrip(c)
	if !ok {
		return
	}

	shares, err := h.shares.ListShares(c.Request.Context(), trip.ID)
	if err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"shares": shares})
}

// DeleteShare handles DELETE /v1/trips/:id/shares/:shareId.
func (h *ShareHandler) DeleteShare(c *gin.Context) {
	if _, ok := h.loadOwnedTrip(c); !ok {
		return
	}

	if err := h.shares.DeleteShare(c.Request.Context(), c.Param("shareId")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.NotFound("Share", c.Param("shareId")))
			return
		}
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ShareHandler) loadOwnedTrip(c *gin.Context) (*types.Trip, bool) {
	tripID := c.Param("id")
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
		_ = c.Error(apperrors.Forbidden("Access denied", "only the trip owner can manage shares"))
		return nil, false
	}
	return trip, true
}
