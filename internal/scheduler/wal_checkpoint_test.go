package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/aristath/qmusic/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWALCheckpointJob_Name(t *testing.T) {
	job := NewWALCheckpointJob(zerolog.Nop())
	assert.Equal(t, "wal_checkpoint", job.Name())
}

func TestWALCheckpointJob_Run_NoDatabases(t *testing.T) {
	job := NewWALCheckpointJob(zerolog.New(nil).Level(zerolog.Disabled), nil)
	assert.NoError(t, job.Run())
}

func TestWALCheckpointJob_Run(t *testing.T) {
	fileDB, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "artifacts.db"),
		Name: "artifacts",
	})
	require.NoError(t, err)
	defer fileDB.Close()
	require.NoError(t, fileDB.Migrate())

	memDB, err := database.New(database.Config{Path: database.MemoryPath, Name: "memory"})
	require.NoError(t, err)
	defer memDB.Close()

	job := NewWALCheckpointJob(zerolog.Nop(), fileDB, memDB)
	assert.NoError(t, job.Run())
}
