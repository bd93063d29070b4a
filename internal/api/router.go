package api

import (
	"github.com/calvey/hauntex/internal/api/handler"
	"github.com/calvey/hauntex/internal/api/middleware"
	"github.com/calvey/hauntex/internal/config"
	"github.com/calvey/hauntex/internal/index"
	"github.com/calvey/hauntex/internal/logger"
	"github.com/calvey/hauntex/internal/repository"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	idx index.Index,
	records *repository.RecordRepository,
	jobs *repository.JobRepository,
	cfg *config.ServerConfig,
	log *logger.Logger,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler(idx)
	searchHandler := handler.NewSearchHandler(idx, records)
	recordHandler := handler.NewRecordHandler(records)
	jobHandler := handler.NewJobHandler(jobs)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Similarity search
		v1.POST("/search/similar", searchHandler.Similar)
		v1.POST("/search/image", searchHandler.SimilarImage)

		// Records
		v1.GET("/records/:id", recordHandler.GetRecord)

		// Jobs
		v1.GET("/jobs/:id", jobHandler.GetJob)
		v1.GET("/jobs/:id/outcomes", jobHandler.GetOutcomes)

		// Stats
		v1.GET("/stats", searchHandler.GetStats)
	}

	return r
}
