package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/packlane/packlane-backend/errors"
	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/logger"
	"github.com/packlane/packlane-backend/middleware"
	"github.com/packlane/packlane-backend/types"
)

type PushTokenHandler struct {
	tokens store.PushTokenStore
}

func NewPushTokenHandler(tokens store.PushTokenStore) *PushTokenHandler {
	return &PushTokenHandler{tokens: tokens}
}

// RegisterToken handles POST /v1/push-tokens. Re-registering an existing
// token reactivates it for the current user.
func (h *PushTokenHandler) RegisterToken(c *gin.Context) {
	var req types.PushTokenRegister
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	token := &types.PushToken{
		UserID:   middleware.GetUserID(c),
		Token:    req.Token,
		Platform: req.Platform,
		IsActive: true,
	}

	if err := h.tokens.RegisterToken(c.Request.Context(), token); err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	logger.GetLogger().Infow("Push token registered",
		"platform", req.Platform,
		"token", logger.MaskSensitiveString(req.Token, 8, 4))
	c.Status(http.StatusNoContent)
}

// UnregisterToken handles DELETE /v1/push-tokens.
func (h *PushTokenHandler) UnregisterToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	if err := h.tokens.InvalidateToken(c.Request.Context(), req.Token); err != nil {
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.Status(http.StatusNoContent)
}
