package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aristath/qmusic/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabases(t *testing.T) {
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, err := InitializeDatabases(cfg, log)
	require.NoError(t, err)
	require.NotNil(t, container)
	t.Cleanup(func() { container.ArtifactsDB.Close() })

	assert.NotNil(t, container.ArtifactsDB)
	assert.Equal(t, "artifacts", container.ArtifactsDB.Name())
	assert.Equal(t, database.ProfileCache, container.ArtifactsDB.Profile())
	assert.FileExists(t, filepath.Join(cfg.DataDir, "artifacts.db"))

	// Schema applied
	var count int
	err = container.ArtifactsDB.Conn().QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.NoError(t, container.ArtifactsDB.HealthCheck(context.Background()))
}

func TestInitializeDatabases_Memory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Artifacts.DBPath = database.MemoryPath

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.ArtifactsDB.Close() })

	assert.Equal(t, database.ProfileMemory, container.ArtifactsDB.Profile())
}
