// Package httpapi is the local presentation surface of the client: read-only
// views of the current state, an intent endpoint and the snapshot stream.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/cuberoom-client/internal/store"
	"github.com/DoyleJ11/cuberoom-client/internal/ws"
)

func SetupRoutes(st *store.Store, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/state", GetState(st))
	r.Get("/room", GetRoom(st))
	r.Get("/rooms", GetRooms(st))
	r.Get("/chat", GetChat(st))
	r.Get("/socket", GetSocket(st))
	r.Post("/intents", PostIntent(st, logger.Named("httpapi")))
	r.Get("/ws", ws.Handler(st, logger))
	return r
}
