package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/macrolog/backend/config"
	"github.com/pageza/macrolog/backend/internal/api"
	"github.com/pageza/macrolog/backend/internal/middleware"
	"github.com/pageza/macrolog/backend/internal/router"
	"github.com/pageza/macrolog/backend/internal/service"
)

// Deps are the external collaborators of the server. Redis, Archive and
// Screener are optional.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Model    service.ModelClient
	Archive  service.PhotoArchive
	Screener service.ImageScreener
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	log    logrus.FieldLogger
}

// New wires services, handlers and routes.
func New(cfg *config.Config, log logrus.FieldLogger, deps Deps) *Server {
	if cfg.Environment.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if deps.Model == nil {
		log.Warn("no model endpoint configured, AI routes will fail")
		deps.Model = service.NoModel{}
	}

	foods := service.NewFoodService(deps.DB, log)
	diary := service.NewDiaryService(deps.DB, log)

	var opts []service.ExtractionOption
	if deps.Archive != nil {
		opts = append(opts, service.WithPhotoArchive(deps.Archive))
	}
	if deps.Screener != nil {
		opts = append(opts, service.WithScreener(deps.Screener))
	}
	extraction := service.NewExtractionService(deps.Model, foods, log, cfg.ExtractionModel, cfg.ModelTimeout, opts...)
	recommendation := service.NewRecommendationService(deps.Model, diary, foods, log, cfg.RecommendationModel, cfg.ModelTimeout)

	var auth gin.HandlerFunc
	if cfg.AuthMode == config.AuthModeDev {
		log.WithField("user_id", cfg.DevUserID).Warn("dev auth mode: every request acts as the dev user")
		auth = middleware.DevIdentity(cfg.DevUserID)
	} else {
		auth = middleware.AuthMiddleware(service.NewTokenService(cfg.JWTSecret, 0))
	}

	var limiter *middleware.RateLimiter
	if deps.Redis != nil {
		limiter = middleware.NewAIRateLimiter(deps.Redis, cfg.AIRateLimitPerHour, log)
	}

	engine := router.SetupRouter(log, cfg.CORSOrigins, auth, router.Handlers{
		Foods:  api.NewFoodHandler(foods),
		Diary:  api.NewDiaryHandler(diary),
		AI:     api.NewAIHandler(extraction, recommendation),
		Health: api.NewHealthHandler(deps.DB),
	}, limiter)

	return &Server{
		router: engine,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
