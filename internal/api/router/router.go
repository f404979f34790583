package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fioreale/PaperFlow/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes.
// apiKey enables X-API-Key authentication for the conversion endpoints
// when non-empty; the health check stays open either way.
func SetupRouter(deps *handler.Dependencies, apiKey string) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "paperflow",
		})
	})

	conversionHandler := handler.NewConversionHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(APIKeyMiddleware(apiKey))
	{
		// POST /api/v1/convert - Submit an article for background conversion
		v1.POST("/convert", conversionHandler.Convert)

		// POST /api/v1/convert-sync - Convert and wait for the terminal state
		v1.POST("/convert-sync", conversionHandler.ConvertSync)

		// GET /api/v1/status/:job_id - Get conversion job status
		v1.GET("/status/:job_id", conversionHandler.GetStatus)

		// GET /api/v1/jobs - List all tracked jobs (diagnostics)
		v1.GET("/jobs", conversionHandler.ListJobs)

		// DELETE /api/v1/jobs/:job_id - Delete a job record
		v1.DELETE("/jobs/:job_id", conversionHandler.DeleteJob)
	}

	return r
}
