// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/qmusic/internal/config"
	"github.com/aristath/qmusic/internal/modules/artifacts"
	"github.com/aristath/qmusic/internal/scheduler"
	"github.com/rs/zerolog"
)

const (
	walCheckpointSchedule  = "0 */15 * * * *"
	integrityCheckSchedule = "0 0 * * * *"
)

// RegisterJobs creates the background jobs and registers them with the scheduler.
// The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{
		ArtifactCleanup: artifacts.NewCleanupJob(container.ArtifactRepo, log),
		IntegrityCheck:  scheduler.NewIntegrityCheckJob(log, container.ArtifactsDB),
		WALCheckpoint:   scheduler.NewWALCheckpointJob(log, container.ArtifactsDB),
	}

	if err := container.Scheduler.AddJob(cfg.Artifacts.CleanupSchedule, instances.ArtifactCleanup); err != nil {
		return nil, fmt.Errorf("failed to register artifact cleanup job: %w", err)
	}
	if err := container.Scheduler.AddJob(integrityCheckSchedule, instances.IntegrityCheck); err != nil {
		return nil, fmt.Errorf("failed to register integrity check job: %w", err)
	}
	if err := container.Scheduler.AddJob(walCheckpointSchedule, instances.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	return instances, nil
}
