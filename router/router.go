// Package router wires the HTTP routes to their handlers.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/packlane/packlane-backend/config"
	"github.com/packlane/packlane-backend/handlers"
	"github.com/packlane/packlane-backend/middleware"
	"github.com/packlane/packlane-backend/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies holds everything needed to set up the routes.
type Dependencies struct {
	Config            *config.Config
	TripHandler       *handlers.TripHandler
	ItemHandler       *handlers.ItemHandler
	ReminderHandler   *handlers.ReminderHandler
	SuggestionHandler *handlers.SuggestionHandler
	ShareHandler      *handlers.ShareHandler
	PushTokenHandler  *handlers.PushTokenHandler
	HealthHandler     *handlers.HealthHandler
	RateLimiter       services.RateLimiter
}

// SetupRouter configures and returns the main gin engine with all routes.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RecoveryHandler())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Health and metrics routes stay unauthenticated.
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(&deps.Config.Server))
	if deps.RateLimiter != nil {
		v1.Use(middleware.APIRateLimiter(deps.RateLimiter, deps.Config.RateLimit))
	}
	{
		tripRoutes := v1.Group("/trips")
		{
			tripRoutes.POST("", deps.TripHandler.CreateTrip)
			tripRoutes.GET("", deps.TripHandler.ListTrips)
			tripRoutes.GET("/:id", deps.TripHandler.GetTrip)
			tripRoutes.PATCH("/:id", deps.TripHandler.UpdateTrip)
			tripRoutes.DELETE("/:id", deps.TripHandler.DeleteTrip)

			itemRoutes := tripRoutes.Group("/:id/items")
			{
				itemRoutes.POST("", deps.ItemHandler.CreateItem)
				itemRoutes.POST("/bulk", deps.ItemHandler.BulkCreateItems)
				itemRoutes.GET("", deps.ItemHandler.ListItems)
				itemRoutes.PATCH("/:itemId", deps.ItemHandler.UpdateItem)
				itemRoutes.DELETE("/:itemId", deps.ItemHandler.DeleteItem)
			}

			reminderRoutes := tripRoutes.Group("/:id/reminder")
			{
				reminderRoutes.GET("", deps.ReminderHandler.GetReminder)
				reminderRoutes.PUT("", deps.ReminderHandler.SaveReminder)
				reminderRoutes.DELETE("", deps.ReminderHandler.DeleteReminder)
			}

			tripRoutes.POST("/:id/suggestions", deps.SuggestionHandler.GetSuggestions)

			shareRoutes := tripRoutes.Group("/:id/shares")
			{
				shareRoutes.POST("", deps.ShareHandler.CreateShare)
				shareRoutes.GET("", deps.ShareHandler.ListShares)
				shareRoutes.DELETE("/:shareId", deps.ShareHandler.DeleteShare)
			}
		}

		v1.POST("/push-tokens", deps.PushTokenHandler.RegisterToken)
		v1.DELETE("/push-tokens", deps.PushTokenHandler.UnregisterToken)
	}

	return r
}
