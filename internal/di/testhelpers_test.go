package di

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/qmusic/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	return &config.Config{
		DataDir:          tmpDir,
		LogLevel:         "info",
		Port:             8001,
		MaxDuration:      5,
		SolverSubsteps:   1,
		HTTPWriteTimeout: time.Minute,
		Artifacts: &config.ArtifactConfig{
			DBPath:          filepath.Join(tmpDir, "artifacts.db"),
			TTL:             30 * time.Minute,
			CleanupSchedule: "@every 1m",
		},
	}
}
