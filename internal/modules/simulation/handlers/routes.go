package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulations", func(r chi.Router) {
		r.Post("/", h.HandleProduce)
		r.Get("/ws", h.HandleWebSocket)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/audio", h.HandleAudio)
	})
}
