package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepositories(t *testing.T) *Container {
	t.Helper()
	cfg := testConfig(t)
	log := zerolog.Nop()

	container, err := InitializeDatabases(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { container.ArtifactsDB.Close() })

	require.NoError(t, InitializeRepositories(container, log))
	return container
}

func TestInitializeServices(t *testing.T) {
	container := setupRepositories(t)
	cfg := testConfig(t)

	err := InitializeServices(container, cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.NotNil(t, container.Metrics)
	assert.NotNil(t, container.Solver)
	assert.NotNil(t, container.Driver)
	assert.NotNil(t, container.SimulationService)
	assert.Nil(t, container.Publisher, "publishing is disabled without a bucket")
}

func TestInitializeServices_Publishing(t *testing.T) {
	container := setupRepositories(t)
	cfg := testConfig(t)
	cfg.Artifacts.Bucket = "qmusic-renders"
	cfg.Artifacts.Region = "eu-central-1"
	cfg.Artifacts.Endpoint = "http://127.0.0.1:9000"
	cfg.Artifacts.AccessKeyID = "key"
	cfg.Artifacts.SecretAccessKey = "secret"
	cfg.Artifacts.Prefix = "renders"

	err := InitializeServices(container, cfg, zerolog.Nop())
	require.NoError(t, err)

	require.NotNil(t, container.Publisher)
	assert.Equal(t, "renders/abc.wav", container.Publisher.Key("abc"))
}

func TestInitializeServices_RequiresRepositories(t *testing.T) {
	err := InitializeServices(&Container{}, testConfig(t), zerolog.Nop())
	assert.Error(t, err)
}
