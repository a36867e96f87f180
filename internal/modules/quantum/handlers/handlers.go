// Package handlers provides HTTP handlers for building and rendering initial states.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/qmusic/internal/modules/quantum"
	"github.com/rs/zerolog"
)

// MaxQubits is the largest register the UI offers.
const MaxQubits = 4

// Handler handles quantum state HTTP requests
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new quantum handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		log: log.With().Str("handler", "quantum").Logger(),
	}
}

// StateRequest describes the state to build
type StateRequest struct {
	Qubits     int      `json:"qubits"`
	Mode       string   `json:"mode"`
	Amplitudes []string `json:"amplitudes,omitempty"`
	Seed       *uint64  `json:"seed,omitempty"`
}

// StateResponse is a normalised state with its rendering
type StateResponse struct {
	Qubits        int       `json:"qubits"`
	Labels        []string  `json:"labels"`
	Amplitudes    []string  `json:"amplitudes"`
	Probabilities []float64 `json:"probabilities"`
	Norm          float64   `json:"norm"`
	Rendering     string    `json:"rendering"`
	Seed          *uint64   `json:"seed,omitempty"` // random mode only; send it back to evolve this state
}

// HandleDefaultState handles GET /api/quantum/state/default?qubits=N
func (h *Handler) HandleDefaultState(w http.ResponseWriter, r *http.Request) {
	n := 1
	if q := r.URL.Query().Get("qubits"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "qubits must be an integer")
			return
		}
		n = parsed
	}
	if n < 1 || n > MaxQubits {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "qubits must be between 1 and 4")
		return
	}

	state, err := quantum.DefaultState(n)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(describe(state)))
}

// HandleBuildState handles POST /api/quantum/state
func (h *Handler) HandleBuildState(w http.ResponseWriter, r *http.Request) {
	var req StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.Qubits < 1 || req.Qubits > MaxQubits {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "qubits must be between 1 and 4")
		return
	}

	var (
		state *quantum.State
		seed  *uint64
		err   error
	)
	switch req.Mode {
	case "", "default":
		state, err = quantum.DefaultState(req.Qubits)
	case "custom":
		state, err = quantum.ParseAmplitudes(req.Qubits, req.Amplitudes)
	case "random":
		s := quantum.NewSeed()
		if req.Seed != nil {
			s = *req.Seed
		}
		seed = &s
		state, err = quantum.RandomState(req.Qubits, quantum.SeededSource(s))
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_request", "mode must be one of: default custom random")
		return
	}

	if err != nil {
		h.writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
		return
	}

	response := describe(state)
	response.Seed = seed
	h.writeJSON(w, http.StatusOK, envelope(response))
}

func describe(s *quantum.State) StateResponse {
	amps := make([]string, len(s.Amplitudes))
	probs := make([]float64, len(s.Amplitudes))
	for i, a := range s.Amplitudes {
		amps[i] = quantum.FormatAmplitude(a)
		probs[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return StateResponse{
		Qubits:        s.Qubits,
		Labels:        quantum.BasisLabels(s.Qubits),
		Amplitudes:    amps,
		Probabilities: probs,
		Norm:          s.Norm(),
		Rendering:     s.Render(),
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, quantum.ErrMissingAmplitudes):
		return "missing_amplitudes"
	case errors.Is(err, quantum.ErrInvalidAmplitude):
		return "invalid_amplitude"
	case errors.Is(err, quantum.ErrZeroState):
		return "zero_state"
	default:
		return "invalid_request"
	}
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
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
