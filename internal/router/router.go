package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/macrolog/backend/internal/api"
	"github.com/pageza/macrolog/backend/internal/middleware"
)

// Handlers groups everything the route table mounts.
type Handlers struct {
	Foods  *api.FoodHandler
	Diary  *api.DiaryHandler
	AI     *api.AIHandler
	Health *api.HealthHandler
}

// SetupRouter configures the application routes. auth identifies the caller of
// every /api/v1 route; aiLimiter, when set, guards the model-backed routes.
func SetupRouter(log logrus.FieldLogger, corsOrigins []string, auth gin.HandlerFunc, h Handlers, aiLimiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.RequestLogger(log), middleware.CORS(corsOrigins))

	router.GET("/health", h.Health.HealthCheck)
	router.GET("/api/health", h.Health.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(auth)
	{
		h.Foods.RegisterRoutes(v1)
		h.Diary.RegisterRoutes(v1)

		var limits []gin.HandlerFunc
		if aiLimiter != nil {
			limits = append(limits, aiLimiter.RateLimitMiddleware())
		}
		h.AI.RegisterRoutes(v1, limits...)
	}

	return router
}
