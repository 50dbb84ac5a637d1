package cmd

import (
	"fmt"

	"overlay-sync/core/config"
	"overlay-sync/core/database"
	"overlay-sync/feature/mirror"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// buildSource builds the configured mirror source, connecting to the database only when
// the source reads from it.
func buildSource(cfg *config.Config, l *zap.Logger) (mirror.Source, error) {
	var db *gorm.DB
	if cfg.Mirror.Source == mirror.SourceDatabase {
		conn, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database source: %w", err)
		}
		if err := mirror.NewDBSource(conn, cfg.Mirror.Table).Validate(); err != nil {
			return nil, fmt.Errorf("database source: %w", err)
		}
		db = conn
		l.Info("Connected to database", zap.String("driver", cfg.Database.Driver), zap.String("table", cfg.Mirror.Table))
	}
	return mirror.NewSource(cfg.Mirror, db)
}
