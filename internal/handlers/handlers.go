package handlers

import (
	"fila_dnj/internal/config"
	"fila_dnj/internal/queue"
	"fila_dnj/internal/ws"
)

// Handler agrupa as dependências injetadas nos endpoints HTTP.
type Handler struct {
	Queue  *queue.Service
	Config *config.Store
	Hub    *ws.Hub
}

func New(q *queue.Service, cfg *config.Store, hub *ws.Hub) *Handler {
	return &Handler{Queue: q, Config: cfg, Hub: hub}
}
