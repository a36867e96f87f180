package scheduler

import (
	"fmt"

	"github.com/aristath/qmusic/internal/database"
	"github.com/rs/zerolog"
)

// IntegrityCheckJob runs SQLite's integrity check against each database
type IntegrityCheckJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

// NewIntegrityCheckJob creates an integrity check job for the given databases
func NewIntegrityCheckJob(log zerolog.Logger, databases ...*database.DB) *IntegrityCheckJob {
	return &IntegrityCheckJob{
		log:       log.With().Str("job", "database_integrity").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *IntegrityCheckJob) Name() string {
	return "database_integrity"
}

// Run checks every database and fails on the first corrupted one
func (j *IntegrityCheckJob) Run() error {
	for _, db := range j.databases {
		if db == nil {
			j.log.Warn().Msg("Database not initialized, skipping")
			continue
		}

		var result string
		if err := db.Conn().QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Integrity check query failed")
			return fmt.Errorf("integrity check failed for %s: %w", db.Name(), err)
		}
		if result != "ok" {
			j.log.Error().Str("database", db.Name()).Str("result", result).Msg("Database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %s", db.Name(), result)
		}

		j.log.Debug().Str("database", db.Name()).Msg("Database integrity OK")
	}

	return nil
}
