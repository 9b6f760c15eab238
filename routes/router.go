package routes

import (
	"errors"
	"net/http"
	"time"

	"awards-voting-backend/config"
	"awards-voting-backend/handlers"
	"awards-voting-backend/service"
	"awards-voting-backend/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server wraps the HTTP server
type Server struct {
	*http.Server
}

// Dependencies carries everything the routes are built from.
// Hub, Limiter and Queue are optional.
type Dependencies struct {
	Config  *config.Config
	Service service.VotingService
	DB      *gorm.DB
	Hub     *websocket.Hub
	Limiter *handlers.VoterRateLimiter
	Queue   handlers.QueueStatter
	Logger  *zap.Logger
}

// SetupRouter builds the gin engine with every voting route mounted under /api
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(corsConfig(deps.Config.Server.AllowOrigins)))

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	admin := handlers.NewAdminHandler(deps.Service, log)
	voter := handlers.NewVoterHandler(deps.Service, log)
	health := handlers.NewHealthHandler(deps.DB, deps.Queue)

	api := router.Group("/api")
	api.Use(handlers.Identity())
	{
		api.GET("/health", health.HealthCheck)
		api.GET("/status", health.SystemStatus)

		adminGroup := api.Group("/admin/voting", handlers.RequireAdmin())
		{
			adminGroup.GET("/sessions", admin.ListSessions)
			adminGroup.POST("/sessions", admin.CreateSession)
			adminGroup.GET("/sessions/:id", admin.GetSession)
			adminGroup.PUT("/sessions/:id", admin.UpdateSession)
			adminGroup.DELETE("/sessions/:id", admin.DeleteSession)
			adminGroup.POST("/sessions/:id/open", admin.OpenSession())
			adminGroup.POST("/sessions/:id/close", admin.CloseSession())
			adminGroup.POST("/sessions/:id/finalize", admin.FinalizeSession())
			adminGroup.POST("/sessions/:id/clone", admin.CloneSession)
			adminGroup.POST("/sessions/:id/seed-template", admin.SeedTemplate)
			adminGroup.GET("/sessions/:id/results", admin.Results)
			adminGroup.GET("/sessions/:id/preview", admin.Preview)
			adminGroup.GET("/templates", admin.Templates)

			adminGroup.POST("/categories", admin.CreateCategory)
			adminGroup.PUT("/categories/:id", admin.UpdateCategory)
			adminGroup.DELETE("/categories/:id", admin.DeleteCategory)

			adminGroup.POST("/questions", admin.CreateQuestion)
			adminGroup.PUT("/questions/:id", admin.UpdateQuestion)
			adminGroup.DELETE("/questions/:id", admin.DeleteQuestion)
			adminGroup.POST("/questions/:id/move", admin.MoveQuestion)

			if deps.Limiter != nil {
				adminGroup.GET("/rate-limit", deps.Limiter.GetStats)
			}
		}

		voting := api.Group("/voting")
		{
			voting.GET("/status", voter.Status)
			voting.GET("/results/:id", voter.Results)
			voting.GET("/sessions/active", handlers.RequireVoter(), voter.ActiveSession)
			voting.GET("/entity-search", handlers.RequireVoter(), voter.EntitySearch)

			respond := []gin.HandlerFunc{handlers.RequireVoter()}
			if deps.Limiter != nil {
				respond = append(respond, deps.Limiter.Middleware())
			}
			respond = append(respond, voter.Respond)
			voting.POST("/sessions/:id/respond", respond...)
			voting.GET("/sessions/:id/my-responses", handlers.RequireVoter(), voter.MyResponses)
			voting.GET("/sessions/:id/has-voted", handlers.RequireVoter(), voter.HasVoted)

			if deps.Hub != nil {
				voting.GET("/ws/:sessionId", handlers.RequireVoter(), websocket.NewHandler(deps.Hub, log).ServeSession)
			}
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", handlers.HeaderUserID, handlers.HeaderUserRole},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	// credentials cannot be combined with a wildcard origin
	if len(origins) == 0 || lo.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// StartServer runs the HTTP server in the background. Use Shutdown to stop it.
func StartServer(router *gin.Engine, cfg config.ServerConfig, log *zap.Logger) *Server {
	addr := ":" + cfg.Port

	srv := &Server{
		&http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	return srv
}
