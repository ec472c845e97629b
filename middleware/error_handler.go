package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/packlane/packlane-backend/errors"
	"github.com/packlane/packlane-backend/logger"
)

// ErrorHandler converts errors attached to the gin context into JSON
// responses. Handlers call c.Error(err) and return; this middleware decides
// the status code and body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log := logger.GetLogger()

		var appError *apperrors.AppError
		if errors.As(err, &appError) {
			statusCode := appError.HTTPStatus
			if statusCode == 0 {
				statusCode = http.StatusInternalServerError
			}

			log.Warnw("Request failed",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"status", statusCode,
				"errorType", string(appError.Type),
				"error", appError.Message)

			response := gin.H{
				"type":    string(appError.Type),
				"message": appError.Message,
				"code":    strconv.Itoa(statusCode),
			}
			// Internal detail only surfaces for client-addressable errors.
			if appError.Detail != "" && (gin.IsDebugging() ||
				appError.Type == apperrors.ValidationError ||
				appError.Type == apperrors.NotFoundError ||
				appError.Type == apperrors.TripNotFoundError) {
				response["details"] = appError.Detail
			}

			c.JSON(statusCode, response)
			return
		}

		log.Errorw("Unhandled error",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"error", err)

		c.JSON(http.StatusInternalServerError, gin.H{
			"type":    string(apperrors.ServerError),
			"message": "Internal server error",
			"code":    strconv.Itoa(http.StatusInternalServerError),
		})
	}
}

// RecoveryHandler recovers from panics and converts them into 500 responses.
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.GetLogger().Errorw("Panic recovered",
			"path", c.Request.URL.Path,
			"panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"type":    string(apperrors.ServerError),
			"message": "Internal server error",
			"code":    strconv.Itoa(http.StatusInternalServerError),
		})
	})
}
