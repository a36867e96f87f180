package scheduler

import (
	"github.com/aristath/qmusic/internal/database"
	"github.com/rs/zerolog"
)

// walTruncateFrames is the WAL size above which the log is truncated.
const walTruncateFrames = 1000

// WALCheckpointJob keeps the write-ahead log of file-backed databases small.
// In-memory databases are skipped.
type WALCheckpointJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

// NewWALCheckpointJob creates a checkpoint job for the given databases
func NewWALCheckpointJob(log zerolog.Logger, databases ...*database.DB) *WALCheckpointJob {
	return &WALCheckpointJob{
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checks every database and truncates large logs
func (j *WALCheckpointJob) Run() error {
	checked := 0
	for _, db := range j.databases {
		if db == nil || db.Profile() == database.ProfileMemory {
			continue
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, frames, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to check WAL checkpoint")
			continue
		}
		checked++

		if frames <= walTruncateFrames {
			j.log.Debug().Str("database", db.Name()).Int("wal_frames", frames).Msg("WAL checkpoint status OK")
			continue
		}

		if err := db.WALCheckpoint(); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to truncate WAL")
			continue
		}
		j.log.Info().Str("database", db.Name()).Int("wal_frames", frames).Msg("WAL truncated")
	}

	j.log.Debug().Int("checked", checked).Msg("WAL checkpoint completed")
	return nil
}
