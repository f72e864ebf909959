package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cuberoom-client/internal/store"
	"github.com/DoyleJ11/cuberoom-client/internal/transition"
	"github.com/DoyleJ11/cuberoom-client/internal/ws"
)

const maxIntentBytes = 64 << 10

// Reader is the read side of the client store.
type Reader interface {
	Snapshot() store.Snapshot
}

type Dispatcher interface {
	Dispatch(t transition.Transition)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ws.ServerMessage{Type: "Error", Error: msg})
}

// GetState returns the whole current snapshot.
func GetState(st Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := st.Snapshot()
		writeJSON(w, http.StatusOK, ws.ServerMessage{Type: "StateSnapshot", Version: snap.Version, State: &snap.State})
	}
}

func GetRoom(st Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := st.Snapshot().State.Room
		if !rm.Active() {
			writeError(w, http.StatusNotFound, "no active room")
			return
		}
		writeJSON(w, http.StatusOK, rm)
	}
}

func GetRooms(st Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, st.Snapshot().State.Rooms)
	}
}

func GetChat(st Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, st.Snapshot().State.Chat)
	}
}

func GetSocket(st Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, st.Snapshot().State.Socket)
	}
}

// PostIntent decodes one client message and dispatches it. The response only
// confirms the intent was queued; its effects show up in later snapshots.
func PostIntent(d Dispatcher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cm ws.ClientMessage
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIntentBytes))
		if err := dec.Decode(&cm); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}

		t, err := ws.ToTransition(cm)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, ws.ErrUnknownIntent) {
				status = http.StatusUnprocessableEntity
			}
			writeError(w, status, err.Error())
			return
		}

		logger.Debug("intent", zap.String("type", cm.Type))
		d.Dispatch(t)
		w.WriteHeader(http.StatusAccepted)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
