package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/cuberoom-client/internal/protocol"
)

// server accepts websocket connections and hands each one to handle.
type server struct {
	*httptest.Server
	accepted atomic.Int32
}

func newServer(t *testing.T, handle func(ctx context.Context, conn *websocket.Conn, n int32)) *server {
	t.Helper()
	srv := &server{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		n := srv.accepted.Add(1)
		handle(r.Context(), conn, n)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *server) wsURL() string { return "ws" + strings.TrimPrefix(s.URL, "http") }

func newSocket(t *testing.T, url string, opts Options) *Socket {
	t.Helper()
	opts.URL = url
	opts.Logger = zaptest.NewLogger(t)
	opts.NewBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(10 * time.Millisecond) }
	s := New(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

func recv[T any](t *testing.T, ch <-chan T, within time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out after %v", within)
		var zero T
		return zero
	}
}

func TestSocket_DeliversInboundFramesInOrder(t *testing.T) {
	srv := newServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		for i := 1; i <= 3; i++ {
			_ = wsjson.Write(ctx, conn, protocol.Frame{Event: protocol.UpdateUserCount, Payload: json.RawMessage(strings.Repeat("1", i))})
		}
		<-conn.CloseRead(ctx).Done()
	})

	got := make(chan string, 3)
	s := newSocket(t, srv.wsURL(), Options{})
	s.On(protocol.UpdateUserCount, func(p json.RawMessage) { got <- string(p) })
	s.Connect()

	assert.Equal(t, "1", recv(t, got, time.Second))
	assert.Equal(t, "11", recv(t, got, time.Second))
	assert.Equal(t, "111", recv(t, got, time.Second))
}

func TestSocket_EmitBeforeConnectIsSentAfterDial(t *testing.T) {
	frames := make(chan protocol.Frame, 2)
	srv := newServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		for {
			var f protocol.Frame
			if err := wsjson.Read(ctx, conn, &f); err != nil {
				return
			}
			frames <- f
		}
	})

	s := newSocket(t, srv.wsURL(), Options{})
	s.Emit(protocol.JoinRoom, protocol.JoinRoomPayload{ID: "r1", Password: "pw"})
	s.Emit(protocol.LeaveRoom, nil)
	s.Connect()

	first := recv(t, frames, time.Second)
	assert.Equal(t, protocol.JoinRoom, first.Event)
	assert.JSONEq(t, `{"id":"r1","password":"pw"}`, string(first.Payload))

	second := recv(t, frames, time.Second)
	assert.Equal(t, protocol.LeaveRoom, second.Event)
	assert.Empty(t, second.Payload)
}

func TestSocket_ReconnectsAndRaisesReconnect(t *testing.T) {
	srv := newServer(t, func(ctx context.Context, conn *websocket.Conn, n int32) {
		if n == 1 {
			conn.Close(websocket.StatusGoingAway, "restart")
			return
		}
		<-conn.CloseRead(ctx).Done()
	})

	var mu sync.Mutex
	var changes []bool
	reconnected := make(chan struct{}, 1)
	connectedTwice := make(chan struct{}, 4)

	s := newSocket(t, srv.wsURL(), Options{
		OnChange: func(c bool) {
			mu.Lock()
			changes = append(changes, c)
			mu.Unlock()
		},
		OnConnected: func() { connectedTwice <- struct{}{} },
	})
	s.On(protocol.Reconnect, func(json.RawMessage) { reconnected <- struct{}{} })
	s.Connect()

	recv(t, connectedTwice, 2*time.Second)
	recv(t, connectedTwice, 2*time.Second)
	recv(t, reconnected, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false, true}, changes)
	assert.True(t, s.Connected())
}

func TestSocket_ConnectIsIdempotent(t *testing.T) {
	srv := newServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		<-conn.CloseRead(ctx).Done()
	})

	connected := make(chan struct{}, 2)
	s := newSocket(t, srv.wsURL(), Options{OnConnected: func() { connected <- struct{}{} }})
	s.Connect()
	s.Connect()

	recv(t, connected, time.Second)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), srv.accepted.Load())
}

func TestSocket_DisconnectReportsEdgeAndStops(t *testing.T) {
	srv := newServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		_, _, _ = conn.Read(ctx)
	})

	connected := make(chan struct{}, 1)
	disconnected := make(chan struct{}, 1)
	s := newSocket(t, srv.wsURL(), Options{
		OnConnected:    func() { connected <- struct{}{} },
		OnDisconnected: func() { disconnected <- struct{}{} },
	})

	s.Disconnect() // never connected: no-op
	s.Connect()
	recv(t, connected, time.Second)

	s.Disconnect()
	recv(t, disconnected, time.Second)
	s.Disconnect()

	time.Sleep(100 * time.Millisecond)
	assert.False(t, s.Connected())
	assert.Equal(t, int32(1), srv.accepted.Load())
}

func TestSocket_RetriesUntilServerIsUp(t *testing.T) {
	var up atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			http.Error(w, "starting", http.StatusServiceUnavailable)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		<-conn.CloseRead(r.Context()).Done()
	}))
	t.Cleanup(srv.Close)

	connected := make(chan struct{}, 1)
	s := newSocket(t, "ws"+strings.TrimPrefix(srv.URL, "http"), Options{OnConnected: func() { connected <- struct{}{} }})
	s.Connect()

	time.Sleep(50 * time.Millisecond)
	require.False(t, s.Connected())
	up.Store(true)

	recv(t, connected, 2*time.Second)
}

func TestSocket_IgnoresUndecodableFrames(t *testing.T) {
	srv := newServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`not json`))
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"payload":1}`))
		_ = wsjson.Write(ctx, conn, protocol.Frame{Event: protocol.UpdateUserCount, Payload: json.RawMessage(`7`)})
		<-conn.CloseRead(ctx).Done()
	})

	got := make(chan string, 1)
	s := newSocket(t, srv.wsURL(), Options{})
	s.On(protocol.UpdateUserCount, func(p json.RawMessage) { got <- string(p) })
	s.Connect()

	assert.Equal(t, "7", recv(t, got, time.Second))
	assert.Equal(t, int32(1), srv.accepted.Load(), "bad frames must not drop the connection")
}

// countingBackOff is a constant backoff that records how it was used.
type countingBackOff struct {
	next   atomic.Int32
	resets atomic.Int32
}

func (b *countingBackOff) NextBackOff() time.Duration {
	b.next.Add(1)
	return 10 * time.Millisecond
}

func (b *countingBackOff) Reset() { b.resets.Add(1) }

func TestSocket_DeliversFramesLargerThanLibraryDefault(t *testing.T) {
	big := `"` + strings.Repeat("x", 200<<10) + `"`
	srv := newServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"event":"message","payload":`+big+`}`))
		<-conn.CloseRead(ctx).Done()
	})

	got := make(chan int, 1)
	s := newSocket(t, srv.wsURL(), Options{})
	s.On(protocol.Message, func(p json.RawMessage) { got <- len(p) })
	s.Connect()

	assert.Equal(t, len(big), recv(t, got, 2*time.Second))
	assert.Equal(t, int32(1), srv.accepted.Load())
}

func TestSocket_ShortLivedConnectionsKeepBackingOff(t *testing.T) {
	payload := strings.Repeat("x", 4<<10)
	srv := newServer(t, func(ctx context.Context, conn *websocket.Conn, _ int32) {
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"event":"message","payload":"`+payload+`"}`))
		<-conn.CloseRead(ctx).Done()
	})

	b := &countingBackOff{}
	s := New(Options{
		URL:         srv.wsURL(),
		ReadLimit:   1 << 10,
		StableAfter: time.Hour,
		NewBackOff:  func() backoff.BackOff { return b },
		Logger:      zaptest.NewLogger(t),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	s.Connect()

	require.Eventually(t, func() bool { return srv.accepted.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, b.resets.Load(), "unstable connections must not reset the backoff")
	assert.GreaterOrEqual(t, b.next.Load(), int32(2))
}

func TestSocket_StableConnectionResetsBackOff(t *testing.T) {
	srv := newServer(t, func(ctx context.Context, conn *websocket.Conn, n int32) {
		if n == 1 {
			time.Sleep(50 * time.Millisecond)
			conn.Close(websocket.StatusGoingAway, "restart")
			return
		}
		<-conn.CloseRead(ctx).Done()
	})

	b := &countingBackOff{}
	s := New(Options{
		URL:         srv.wsURL(),
		StableAfter: 10 * time.Millisecond,
		NewBackOff:  func() backoff.BackOff { return b },
		Logger:      zaptest.NewLogger(t),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	s.Connect()

	require.Eventually(t, func() bool { return srv.accepted.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), b.resets.Load())
	assert.Zero(t, b.next.Load())
}
