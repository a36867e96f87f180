package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/qmusic/internal/config"
	"github.com/aristath/qmusic/internal/database"
	"github.com/aristath/qmusic/internal/modules/artifacts"
	"github.com/aristath/qmusic/internal/modules/audio"
	quantumhandlers "github.com/aristath/qmusic/internal/modules/quantum/handlers"
	"github.com/aristath/qmusic/internal/scheduler"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log          zerolog.Logger
	cfg          *config.Config
	startupTime  time.Time
	artifactsDB  *database.DB
	artifactRepo *artifacts.Repository
	scheduler    *scheduler.Scheduler
	publisher    *artifacts.Publisher
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	cfg *config.Config,
	artifactsDB *database.DB,
	artifactRepo *artifacts.Repository,
	sched *scheduler.Scheduler,
	publisher *artifacts.Publisher,
) *SystemHandlers {
	return &SystemHandlers{
		log:          log.With().Str("handler", "system").Logger(),
		cfg:          cfg,
		startupTime:  time.Now(),
		artifactsDB:  artifactsDB,
		artifactRepo: artifactRepo,
		scheduler:    sched,
		publisher:    publisher,
	}
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status        string                `json:"status"`
	Version       string                `json:"version"`
	StartupTime   string                `json:"startup_time"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	CPUPercent    float64               `json:"cpu_percent"`
	MemoryPercent float64               `json:"memory_percent"`
	Artifacts     ArtifactStatus        `json:"artifacts"`
	Limits        SimulationLimits      `json:"limits"`
	Jobs          []scheduler.JobStatus `json:"jobs"`
}

// ArtifactStatus describes the transient audio store
type ArtifactStatus struct {
	Count        int    `json:"count"`
	Database     string `json:"database"`
	Profile      string `json:"profile"`
	TTLSeconds   int64  `json:"ttl_seconds"`
	Publishing   bool   `json:"publishing"`
	BreakerState string `json:"breaker_state,omitempty"`
}

// SimulationLimits advertises the bounds the UI sliders should use
type SimulationLimits struct {
	MaxQubits   int `json:"max_qubits"`
	MaxDuration int `json:"max_duration"`
	SampleRate  int `json:"sample_rate"`
}

// JobsStatusResponse lists the registered background jobs
type JobsStatusResponse struct {
	Jobs []scheduler.JobStatus `json:"jobs"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := h.GetSystemStatusSnapshot()

	h.writeJSON(w, http.StatusOK, response)
}

// GetSystemStatusSnapshot collects the current system status
func (h *SystemHandlers) GetSystemStatusSnapshot() SystemStatusResponse {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Version:       Version,
		StartupTime:   h.startupTime.Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Limits: SimulationLimits{
			MaxQubits:   quantumhandlers.MaxQubits,
			MaxDuration: h.cfg.MaxDuration,
			SampleRate:  audio.SampleRate,
		},
		Jobs: []scheduler.JobStatus{},
	}

	if h.cfg.Artifacts != nil {
		response.Artifacts.TTLSeconds = int64(h.cfg.Artifacts.TTL.Seconds())
	}

	if h.artifactsDB != nil {
		response.Artifacts.Database = h.artifactsDB.Path()
		response.Artifacts.Profile = string(h.artifactsDB.Profile())
	}

	if h.artifactRepo != nil {
		count, err := h.artifactRepo.Count()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to count artifacts")
			response.Status = "degraded"
		}
		response.Artifacts.Count = count
	}

	if h.publisher != nil {
		response.Artifacts.Publishing = true
		response.Artifacts.BreakerState = h.publisher.State().String()
	}

	if h.scheduler != nil {
		response.Jobs = h.scheduler.Jobs()
	}

	return response
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}

	h.writeJSON(w, http.StatusOK, JobsStatusResponse{Jobs: jobs})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if h.scheduler == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not available"})
		return
	}

	if err := h.scheduler.Trigger(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Job " + name + " completed",
	})
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
