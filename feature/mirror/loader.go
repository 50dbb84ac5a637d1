package mirror

import (
	"context"

	"overlay-sync/core/metrics"
	"overlay-sync/core/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	enabled bool
	service *Service
	handler *Handler
}

// NewFeature creates the mirror feature.
func NewFeature(client storage.Client, bucket string, cfg Config, source Source, logger *zap.Logger, m *metrics.Mirror) *Feature {
	svc := NewService(client, bucket, cfg, source, logger, m)
	return &Feature{enabled: cfg.Enabled, service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "mirror"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service exposes the underlying service, for the initial refresh on start.
func (f *Feature) Service() *Service {
	return f.service
}

// Close tears the mirror down.
func (f *Feature) Close(ctx context.Context) error {
	return f.service.Close(ctx)
}
