// Package ws streams client state snapshots to local presentation processes
// and accepts their intents over the same connection.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/cuberoom-client/internal/store"
)

const (
	outboxSize   = 8
	writeTimeout = 3 * time.Second
)

func Handler(st *store.Store, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Local only; allow dev servers on other ports.
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		out := make(chan store.Snapshot, outboxSize)
		st.Subscribe(clientID, out)
		defer st.Unsubscribe(clientID)
		logger.Debug("client attached", zap.String("client", clientID))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer
		go func() {
			defer cancel() // store dropped us or shut down
			for snap := range out {
				msg := ServerMessage{Type: "StateSnapshot", Version: snap.Version, State: &snap.State}
				if err := write(ctx, conn, msg); err != nil {
					return
				}
			}
		}()

		// Reader
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						logger.Debug("read failed", zap.String("client", clientID), zap.Error(err))
					}
				}
				return
			}

			var cm ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(ctx, conn, ServerMessage{Type: "Error", Error: "bad json"})
				continue
			}
			t, err := ToTransition(cm)
			if err != nil {
				_ = write(ctx, conn, ServerMessage{Type: "Error", Error: err.Error()})
				continue
			}
			st.Dispatch(t)
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
