package http

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/ww3-gridprep/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(gridUC *usecase.GridUseCase, refDir, outputRoot string) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Get allowed origins from environment variable.
	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	handler := NewHandler(gridUC, refDir, outputRoot)

	// API v1 routes.
	v1 := router.Group("/v1")
	grids := v1.Group("/grids")
	grids.POST("", handler.GenerateGrid)
	grids.POST("/nest", handler.NestGrid)
	grids.GET("/:key/:file", handler.GetArtifact)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
