package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"overlay-sync/core/config"
	"overlay-sync/core/loader"
	"overlay-sync/core/logger"
	"overlay-sync/core/metrics"
	"overlay-sync/core/middleware/auth"
	"overlay-sync/core/middleware/rayid"
	"overlay-sync/core/storage"
	"overlay-sync/feature/mirror"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "overlay-sync/docs/swagger"
)

// @title Overlay Sync API
// @version 1.0
// @description API for mirroring overlay items into an object storage bucket.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the overlay sync server",
	Long:  `Starts the HTTP server, loads the desired items from the configured source and keeps the bucket in line until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}

		source, err := buildSource(cfg, logg)
		if err != nil {
			logg.Fatal("Failed to configure mirror source", zap.Error(err))
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mirrorFeature := mirror.NewFeature(store, cfg.Storage.Bucket, cfg.Mirror, source, logg, metrics.NewMirror(prometheus.DefaultRegisterer))

		mgr := loader.NewManager()
		mgr.Register(mirrorFeature)

		// RayID first so everything after it is traceable
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Public routes
		app.Get("/swagger/*", swagger.HandlerDefault)
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
		app.Get("/health", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ok", "features": mgr.Loaded()})
		})

		app.Use(auth.New(auth.Config{
			ApiKey: cfg.Server.ApiKey,
			Skip:   []string{"/swagger", "/metrics", "/health"},
		}))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		if mirrorFeature.IsEnabled() {
			initCtx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout())
			svc := mirrorFeature.Service()
			if err := svc.Init(initCtx); err != nil {
				logg.Warn("Bucket check failed, writes will be retried on demand", zap.Error(err))
			}
			if source != nil {
				if _, err := svc.Refresh(initCtx); err != nil {
					logg.Warn("Initial mirror refresh failed", zap.Error(err))
				}
			}
			cancel()
		}

		go func() {
			logg.Info("Starting server", zap.String("address", cfg.Server.Address()))
			if err := app.Listen(cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logg.Warn("HTTP shutdown incomplete", zap.Error(err))
		}
		if err := mgr.CloseAll(shutdownCtx); err != nil {
			logg.Warn("Feature shutdown incomplete", zap.Error(err))
		}
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
