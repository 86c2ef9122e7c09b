package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/macadmins/sofa-status/internal/api"
	"github.com/macadmins/sofa-status/internal/cache"
	"github.com/macadmins/sofa-status/internal/config"
	"github.com/macadmins/sofa-status/internal/health"
	"github.com/macadmins/sofa-status/internal/manifest"
)

func main() {
	healthCheck := flag.Bool("health-check", false, "Perform health check and exit")
	flag.Parse()

	if *healthCheck {
		performHealthCheck()
		return
	}

	setupLogger()

	log.Info().Msg("SOFA status server starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logStartupConfig(cfg)

	store := manifest.NewStore(cfg.Data.ManifestPath)

	// Fail fast on a corrupt document; an absent one is a normal bootstrap.
	if _, err := store.Load(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load status document")
	}

	feedCache := cache.NewFeedCache(cfg.Health.CacheSize)
	checker := health.NewChecker(store, feedCache, cfg.Data.FeedsDir, cfg.Pipeline.Platforms, cfg.Health.StaleAfter)

	routerConfig := api.RouterConfig{
		CORSOrigins:    cfg.Security.CORSOrigins,
		RateLimitRPS:   cfg.Security.RateLimitRPS,
		RateLimitBurst: cfg.Security.RateLimitBurst,
	}

	result := api.SetupRouter(store, checker, routerConfig)
	app := result.App

	app.Server().ReadTimeout = cfg.Server.ReadTimeout
	app.Server().WriteTimeout = cfg.Server.WriteTimeout

	setupGracefulShutdown(app, result.Cleanup)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().
		Int("port", cfg.Server.Port).
		Str("addr", serverAddr).
		Msg("Starting HTTP server")

	if err := app.Listen(serverAddr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

func setupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339

	level := os.Getenv("LOG_LEVEL")
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if os.Getenv("LOG_FORMAT") == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func logStartupConfig(cfg *config.Config) {
	log.Info().
		Int("server_port", cfg.Server.Port).
		Dur("server_read_timeout", cfg.Server.ReadTimeout).
		Dur("server_write_timeout", cfg.Server.WriteTimeout).
		Str("manifest_path", cfg.Data.ManifestPath).
		Str("feeds_dir", cfg.Data.FeedsDir).
		Dur("feed_stale_after", cfg.Health.StaleAfter).
		Strs("security_cors_origins", cfg.Security.CORSOrigins).
		Str("logging_level", cfg.Logging.Level).
		Str("logging_format", cfg.Logging.Format).
		Msg("Configuration loaded successfully")
}

func setupGracefulShutdown(app *fiber.App, cleanup func()) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		stop()

		log.Info().Msg("Received shutdown signal, initiating graceful shutdown")

		if cleanup != nil {
			cleanup()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Info().Msg("Stopping HTTP server...")
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during HTTP server shutdown")
		}

		log.Info().Msg("Graceful shutdown completed")
		os.Exit(0)
	}()
}

func performHealthCheck() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	client := &http.Client{
		Timeout: 3 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/health", port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
