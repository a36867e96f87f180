// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/qmusic/internal/config"
	"github.com/aristath/qmusic/internal/metrics"
	"github.com/aristath/qmusic/internal/modules/artifacts"
	"github.com/aristath/qmusic/internal/modules/evolution"
	"github.com/aristath/qmusic/internal/modules/simulation"
	"github.com/rs/zerolog"
)

// InitializeServices creates the solver, driver, publisher and simulation service
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.ArtifactRepo == nil {
		return fmt.Errorf("repositories not initialized")
	}

	container.Metrics = metrics.NewCollector()

	container.Solver = evolution.NewSolver(evolution.Options{Substeps: cfg.SolverSubsteps}, log)
	container.Driver = evolution.NewDriver(container.Solver, log)

	// Publishing stays disabled when the uploader cannot be built
	var publisher simulation.Publisher
	if cfg.Artifacts.PublishingEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		uploader, err := artifacts.NewS3Uploader(ctx, artifacts.S3Config{
			Bucket:          cfg.Artifacts.Bucket,
			Endpoint:        cfg.Artifacts.Endpoint,
			Region:          cfg.Artifacts.Region,
			AccessKeyID:     cfg.Artifacts.AccessKeyID,
			SecretAccessKey: cfg.Artifacts.SecretAccessKey,
		})
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize artifact publisher - publishing disabled")
		} else {
			container.Publisher = artifacts.NewPublisher(uploader, cfg.Artifacts.Prefix, log)
			publisher = container.Publisher
			log.Info().Str("bucket", cfg.Artifacts.Bucket).Msg("Artifact publishing enabled")
		}
	}

	container.SimulationService = simulation.NewService(
		container.Driver,
		container.ArtifactRepo,
		publisher,
		container.Metrics,
		simulation.Config{
			MaxDuration: float64(cfg.MaxDuration),
			TTL:         cfg.Artifacts.TTL,
		},
		log,
	)

	log.Debug().Msg("Services initialized")
	return nil
}
