package http

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/ww3-gridprep/internal/domain"
	"go.ngs.io/ww3-gridprep/internal/usecase"
)

var runName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Handler handles HTTP requests for grid generation.
type Handler struct {
	gridUC     *usecase.GridUseCase
	refDir     string
	outputRoot string
}

// NewHandler creates a new HTTP handler. Grids are generated from refDir
// into named directories under outputRoot.
func NewHandler(gridUC *usecase.GridUseCase, refDir, outputRoot string) *Handler {
	return &Handler{
		gridUC:     gridUC,
		refDir:     refDir,
		outputRoot: outputRoot,
	}
}

// GenerateGridRequest is the body of POST /v1/grids. The reference
// directory is fixed by the server.
type GenerateGridRequest struct {
	Name string `json:"name"`
	domain.GridRequest
}

// NestRequest is the body of POST /v1/grids/nest.
type NestRequest struct {
	Extent    domain.Extent         `json:"extent"`
	Scale     float64               `json:"scale"`
	Direction usecase.NestDirection `json:"direction"`
}

// GenerateGrid handles POST /v1/grids.
func (h *Handler) GenerateGrid(c *gin.Context) {
	var body GenerateGridRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if !runName.MatchString(body.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must be 1-128 characters of letters, digits, '.', '_' or '-'"})
		return
	}

	req := body.GridRequest
	req.RefDir = h.refDir
	outDir := filepath.Join(h.outputRoot, body.Name)

	started := time.Now()
	result, err := h.gridUC.GenerateGrid(c.Request.Context(), req, outDir)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":       body.Name,
		"key":        result.Key,
		"cache_hit":  result.CacheHit,
		"nx":         result.Nx,
		"ny":         result.Ny,
		"files":      result.Paths,
		"elapsed_ms": time.Since(started).Milliseconds(),
	})
}

// NestGrid handles POST /v1/grids/nest.
func (h *Handler) NestGrid(c *gin.Context) {
	var body NestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if body.Direction == "" {
		body.Direction = usecase.NestInner
	}

	nested, err := usecase.Nest(body.Extent, body.Scale, body.Direction)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	g, err := domain.NewGeometry(nested)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"direction": body.Direction,
		"scale":     body.Scale,
		"extent":    nested,
		"nx":        g.Nx,
		"ny":        g.Ny,
	})
}

// GetArtifact handles GET /v1/grids/:key/:file.
func (h *Handler) GetArtifact(c *gin.Context) {
	cache := h.gridUC.Cache()
	if cache == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "grid cache is disabled"})
		return
	}

	path, err := cache.ArtifactPath(c.Param("key"), c.Param("file"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.File(path)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrBboxEmpty):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrResampleFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRefDataMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
