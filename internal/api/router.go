package api

import (
	"github.com/gin-gonic/gin"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/api/handler"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/api/middleware"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
)

// RouterConfig bundles the handlers and middleware settings for the router.
type RouterConfig struct {
	Mode         string
	CORS         middleware.CORSConfig
	Logger       *logger.Logger
	IndexHandler *handler.IndexHandler
	Studio       *handler.StudioHandler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg RouterConfig) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler()

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Index definitions and stored documents
		indexes := v1.Group("/indexes")
		{
			indexes.GET("", cfg.IndexHandler.ListIndexes)
			indexes.POST("", cfg.IndexHandler.CreateIndex)
			indexes.GET("/:id", cfg.IndexHandler.GetIndex)
			indexes.PUT("/:id", cfg.IndexHandler.UpdateIndex)
			indexes.DELETE("/:id", cfg.IndexHandler.DeleteIndex)
			indexes.GET("/:id/documents", cfg.IndexHandler.ListDocuments)
			indexes.GET("/:id/documents/count", cfg.IndexHandler.CountDocuments)
		}

		// Ingestion studio runs
		studio := v1.Group("/studio")
		{
			studio.GET("/runs", cfg.Studio.ListRuns)
			studio.POST("/runs", cfg.Studio.CreateRun)
			studio.GET("/runs/:id", cfg.Studio.GetRun)
			studio.DELETE("/runs/:id", cfg.Studio.DeleteRun)
			studio.GET("/runs/:id/archive", cfg.Studio.GetArchive)
			studio.POST("/runs/:id/upload", cfg.Studio.UploadBatch)
			studio.POST("/runs/:id/names", cfg.Studio.LoadNames)
			studio.POST("/runs/:id/validate", cfg.Studio.Validate)
			studio.POST("/runs/:id/autofix", cfg.Studio.AutoFix)
			studio.POST("/runs/:id/enrich", cfg.Studio.Enrich)
			studio.POST("/runs/:id/cancel", cfg.Studio.Cancel)
			studio.GET("/runs/:id/review", cfg.Studio.Review)
			studio.POST("/runs/:id/review/approve-all", cfg.Studio.ApproveAll)
			studio.POST("/runs/:id/review/:docId/approve", cfg.Studio.Approve)
			studio.POST("/runs/:id/review/:docId/reject", cfg.Studio.Reject)
			studio.POST("/runs/:id/continue", cfg.Studio.Continue)
			studio.POST("/runs/:id/ingest", cfg.Studio.Ingest)
			studio.POST("/runs/:id/back", cfg.Studio.Back)
			studio.POST("/runs/:id/reset", cfg.Studio.Reset)
		}
	}

	return r
}
