/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/aristath/qmusic/internal/database"
	"github.com/aristath/qmusic/internal/metrics"
	"github.com/aristath/qmusic/internal/modules/artifacts"
	"github.com/aristath/qmusic/internal/modules/evolution"
	"github.com/aristath/qmusic/internal/modules/simulation"
	"github.com/aristath/qmusic/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	ArtifactsDB *database.DB

	// Repositories
	ArtifactRepo *artifacts.Repository

	// Services
	Metrics           *metrics.Collector
	Publisher         *artifacts.Publisher // nil when publishing is disabled
	Solver            *evolution.Solver
	Driver            *evolution.Driver
	SimulationService *simulation.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered background jobs for manual triggering
type JobInstances struct {
	ArtifactCleanup scheduler.Job
	IntegrityCheck  scheduler.Job
	WALCheckpoint   scheduler.Job
}

// Close releases the resources held by the container
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.ArtifactsDB != nil {
		return c.ArtifactsDB.Close()
	}
	return nil
}
