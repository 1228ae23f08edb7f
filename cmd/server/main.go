// Package main provides the WW3 grid preparation HTTP server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	httpHandler "go.ngs.io/ww3-gridprep/internal/http"
	"go.ngs.io/ww3-gridprep/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("ww3-gridprep version %s\n", version)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load configuration from environment.
	port := getEnv("PORT", "8080")
	refDir := getEnv("REF_DIR", "./data/ref")
	cacheDir := getEnv("CACHE_DIR", "./data/cache")
	outputRoot := getEnv("OUTPUT_ROOT", "./data/grids")
	sweepAge, err := time.ParseDuration(getEnv("CACHE_SWEEP_AGE", "1h"))
	if err != nil {
		logger.Error("invalid CACHE_SWEEP_AGE", "error", err)
		os.Exit(1)
	}

	// Grid requests carry an absolute reference directory.
	if refDir, err = filepath.Abs(refDir); err != nil {
		logger.Error("invalid REF_DIR", "error", err)
		os.Exit(1)
	}

	logger.Info("starting grid preparation server", "version", version)
	logger.Info("config", "port", port)
	logger.Info("config", "ref_dir", refDir)
	logger.Info("config", "cache_dir", cacheDir)
	logger.Info("config", "output_root", outputRoot)

	// Initialize use case.
	gridUC, err := usecase.NewGridUseCase(usecase.Config{CacheDir: cacheDir}, logger)
	if err != nil {
		logger.Error("failed to initialize grid use case", "error", err)
		os.Exit(1)
	}
	defer func() { _ = gridUC.Close() }()

	if c := gridUC.Cache(); c != nil {
		removed, err := c.Sweep(sweepAge)
		if err != nil {
			logger.Warn("cache sweep failed", "error", err)
		} else {
			logger.Info("cache swept", "removed", removed, "max_age", sweepAge)
		}
	}

	// Setup router.
	router := httpHandler.SetupRouter(gridUC, refDir, outputRoot)

	// Start server.
	addr := fmt.Sprintf(":%s", port)
	logger.Info("server listening", "addr", addr)
	logger.Info("health check", "url", fmt.Sprintf("http://localhost:%s/health", port))

	if err := router.Run(addr); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("WW3 Grid Preparation Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  ww3-gridprep [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  REF_DIR                 GEBCO/ETOPO NetCDF and GSHHG directory (default: ./data/ref)")
	fmt.Println("  CACHE_DIR               Grid cache root (default: ./data/cache)")
	fmt.Println("  OUTPUT_ROOT             Directory receiving named grid runs (default: ./data/grids)")
	fmt.Println("  CACHE_SWEEP_AGE         Age after which orphaned cache staging dirs are removed (default: 1h)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  ww3-gridprep")
	fmt.Println()
	fmt.Println("  # Generate a grid")
	fmt.Println(`  curl -X POST localhost:8080/v1/grids -d '{"name":"s1","dx":0.05,"dy":0.05,`)
	fmt.Println(`    "lon_w":-140,"lon_e":-132,"lat_s":-40,"lat_n":-39.5,"ref_grid":"gebco","boundary":"full"}'`)
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health                   Health check")
	fmt.Println("  POST /v1/grids                 Generate grid.bot, grid.mask, grid.obst and grid.meta")
	fmt.Println("  POST /v1/grids/nest            Derive the inner or outer grid of a nested pair")
	fmt.Println("  GET  /v1/grids/:key/:file      Download a cached artifact")
	fmt.Println()
}
