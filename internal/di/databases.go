// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/qmusic/internal/config"
	"github.com/aristath/qmusic/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the artifact database and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	artifactsDB, err := database.New(database.Config{
		Path:    cfg.Artifacts.DBPath,
		Profile: database.ProfileCache,
		Name:    "artifacts",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifacts database: %w", err)
	}

	if err := artifactsDB.Migrate(); err != nil {
		artifactsDB.Close()
		return nil, fmt.Errorf("failed to migrate artifacts database: %w", err)
	}
	container.ArtifactsDB = artifactsDB

	log.Info().
		Str("path", artifactsDB.Path()).
		Str("profile", string(artifactsDB.Profile())).
		Msg("Artifacts database initialized")

	return container, nil
}
