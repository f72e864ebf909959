package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/cuberoom-client/internal/room"
	"github.com/DoyleJ11/cuberoom-client/internal/store"
	"github.com/DoyleJ11/cuberoom-client/internal/transition"
	"github.com/DoyleJ11/cuberoom-client/internal/ws"
	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

func startStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s
}

func settle(t *testing.T, s *store.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Sync(ctx))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := SetupRoutes(startStore(t), zaptest.NewLogger(t))
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
}

func TestGetRoom_NotFoundWithoutActiveRoom(t *testing.T) {
	h := SetupRoutes(startStore(t), zaptest.NewLogger(t))
	rec := do(t, h, http.MethodGet, "/room", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"type":"Error","error":"no active room"}`, rec.Body.String())
}

func TestReadViews(t *testing.T) {
	st := startStore(t)
	st.Dispatch(transition.RoomUpdated{Room: types.Room{
		ID:    "r1",
		Name:  "Cubers",
		Users: []types.User{{ID: "u1", DisplayName: "Ada"}},
	}})
	st.Dispatch(transition.RoomsUpdated{Rooms: []types.RoomSummary{{ID: "r1", Name: "Cubers", UsersLength: 1}}})
	st.Dispatch(transition.ReceiveChat{Message: types.ChatMessage{ID: "m1", UserID: "u1", Text: "hi"}})
	st.Dispatch(transition.ConnectionChanged{Connected: true})
	settle(t, st)

	h := SetupRoutes(st, zaptest.NewLogger(t))

	rec := do(t, h, http.MethodGet, "/room", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rm struct {
		ID       string `json:"_id"`
		Name     string `json:"name"`
		Fetching string `json:"fetching"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rm))
	assert.Equal(t, "r1", rm.ID)
	assert.Equal(t, "Cubers", rm.Name)
	assert.Equal(t, "done", rm.Fetching)

	rec = do(t, h, http.MethodGet, "/rooms", "")
	assert.JSONEq(t, `[{"_id":"r1","name":"Cubers","event":"","private":false,"usersLength":1}]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/chat", "")
	var chat []types.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	require.Len(t, chat, 1)
	assert.Equal(t, "hi", chat[0].Text)

	rec = do(t, h, http.MethodGet, "/socket", "")
	assert.JSONEq(t, `{"connected":true,"reconnecting":false}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/state", "")
	var snap struct {
		Type    string `json:"type"`
		Version int    `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "StateSnapshot", snap.Type)
	assert.Equal(t, 4, snap.Version)
}

func TestPostIntent(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"accepted", `{"type":"FetchRoom","payload":{"id":"r1"}}`, http.StatusAccepted},
		{"bad json", `{"type":`, http.StatusBadRequest},
		{"bad payload", `{"type":"JoinRoom","payload":{}}`, http.StatusBadRequest},
		{"unknown", `{"type":"Explode"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := SetupRoutes(startStore(t), zaptest.NewLogger(t))
			assert.Equal(t, tc.want, do(t, h, http.MethodPost, "/intents", tc.body).Code)
		})
	}
}

func TestPostIntent_Dispatches(t *testing.T) {
	st := startStore(t)
	h := SetupRoutes(st, zaptest.NewLogger(t))

	rec := do(t, h, http.MethodPost, "/intents", `{"type":"Navigate","payload":{"path":"/profile"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	settle(t, st)

	assert.Equal(t, "/profile", st.State().Location)
}

func TestGetState_DecodesIntoServerMessage(t *testing.T) {
	st := startStore(t)
	st.Dispatch(transition.RoomUpdated{Room: types.Room{ID: "r1"}})
	st.Dispatch(transition.NewAttempt{Attempt: types.Attempt{ID: "a1"}, WaitingFor: []types.ID{"u1"}})
	settle(t, st)

	rec := do(t, SetupRoutes(st, zaptest.NewLogger(t)), http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var msg ws.ServerMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	require.NotNil(t, msg.State)
	assert.Equal(t, st.State(), *msg.State)
	assert.Equal(t, room.FetchDone, msg.State.Room.Fetching)
	assert.True(t, msg.State.Room.NewScramble)
}
