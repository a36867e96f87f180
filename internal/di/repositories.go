// Package di provides dependency injection for repositories.
package di

import (
	"fmt"

	"github.com/aristath/qmusic/internal/modules/artifacts"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories on top of the initialized databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.ArtifactsDB == nil {
		return fmt.Errorf("artifacts database not initialized")
	}

	container.ArtifactRepo = artifacts.NewRepository(container.ArtifactsDB.Conn())

	log.Debug().Msg("Repositories initialized")
	return nil
}
