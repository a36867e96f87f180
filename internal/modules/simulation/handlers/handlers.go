// Package handlers provides HTTP handlers for producing and fetching simulations.
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/qmusic/internal/modules/audio"
	"github.com/aristath/qmusic/internal/modules/simulation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles simulation HTTP requests
type Handler struct {
	service *simulation.Service
	log     zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(service *simulation.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "simulation").Logger(),
	}
}

// HandleProduce handles POST /api/simulations
func (h *Handler) HandleProduce(w http.ResponseWriter, r *http.Request) {
	req := simulation.DefaultRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
		return
	}

	run, err := h.service.Produce(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(run))
}

// HandleGet handles GET /api/simulations/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(run))
}

// HandleAudio handles GET /api/simulations/{id}/audio.
// With ?download=1 the WAV is sent as an attachment.
func (h *Handler) HandleAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wav, err := h.service.Audio(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "private, max-age=0")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+audio.FileName+`"`)
	}

	// ServeContent handles Range requests so players can seek.
	http.ServeContent(w, r, audio.FileName, time.Time{}, bytes.NewReader(wav))
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Simulation request failed")
	}
	h.writeError(w, status, code, err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
