package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/qmusic/internal/modules/simulation"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Status labels shown by the UI while a sound is produced.
const (
	StateRunning  = "running"
	StateComplete = "complete"
	StateError    = "error"

	LabelRunning  = "Producing..."
	LabelComplete = "Completed!"
)

const requestReadTimeout = 30 * time.Second

// StatusMessage is sent to the client over the produce socket.
type StatusMessage struct {
	State   string          `json:"state"`
	Label   string          `json:"label,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Result  *simulation.Run `json:"result,omitempty"`
}

// HandleWebSocket handles GET /api/simulations/ws. The client sends one request,
// the server answers with a running status and then the result or an error.
// A request that fails validation gets only the error.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	req := simulation.DefaultRequest()
	readCtx, cancel := context.WithTimeout(ctx, requestReadTimeout)
	err = wsjson.Read(readCtx, conn, &req)
	cancel()
	if err != nil {
		if websocket.CloseStatus(err) != -1 {
			return
		}
		h.send(ctx, conn, StatusMessage{State: StateError, Code: CodeInvalidRequest, Message: "Invalid request body"})
		conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}

	if err := h.service.Check(req); err != nil {
		_, code := classify(err)
		h.send(ctx, conn, StatusMessage{State: StateError, Code: code, Message: err.Error()})
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	if !h.send(ctx, conn, StatusMessage{State: StateRunning, Label: LabelRunning}) {
		return
	}

	run, err := h.service.Produce(ctx, req)
	if err != nil {
		_, code := classify(err)
		h.send(ctx, conn, StatusMessage{State: StateError, Code: code, Message: err.Error()})
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	h.send(ctx, conn, StatusMessage{State: StateComplete, Label: LabelComplete, Result: run})
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg StatusMessage) bool {
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := wsjson.Write(writeCtx, conn, msg); err != nil {
		h.log.Debug().Err(err).Str("state", msg.State).Msg("Failed to write status")
		return false
	}
	return true
}
