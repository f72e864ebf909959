// Package transport owns the websocket connection to the room server. It
// re-dials with backoff after a drop and runs every callback on the caller's
// event loop through Options.Post.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/cuberoom-client/internal/protocol"
)

const (
	defaultOutboxSize   = 64
	defaultPingInterval = 25 * time.Second
	defaultReadLimit    = 16 << 20
	defaultStableAfter  = 10 * time.Second
	writeTimeout        = 3 * time.Second
	pingTimeout         = 10 * time.Second
)

type Options struct {
	URL    string
	Header http.Header

	// Post runs fn on the client's event loop. Nil runs fn inline.
	Post func(fn func())

	OnChange       func(connected bool)
	OnConnected    func()
	OnDisconnected func()

	// NewBackOff builds the re-dial policy for one Connect. Nil uses an
	// exponential backoff between ReconnectInitial and ReconnectMax.
	NewBackOff       func() backoff.BackOff
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	// StableAfter is how long a connection must stay up before the backoff
	// is reset. Shorter connections count as failed dials.
	StableAfter time.Duration

	OutboxSize   int
	PingInterval time.Duration
	ReadLimit    int64
	Logger       *zap.Logger
}

type Socket struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[protocol.Event][]protocol.Handler
	cancel   context.CancelFunc
	done     chan struct{} // closed when the last run exits

	wg        sync.WaitGroup
	outbox    chan protocol.Frame
	connected atomic.Bool
}

func New(opts Options) *Socket {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = defaultOutboxSize
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.StableAfter <= 0 {
		opts.StableAfter = defaultStableAfter
	}
	if opts.NewBackOff == nil {
		initial, maxInterval := opts.ReconnectInitial, opts.ReconnectMax
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			if initial > 0 {
				b.InitialInterval = initial
			}
			if maxInterval > 0 {
				b.MaxInterval = maxInterval
			}
			return b
		}
	}
	return &Socket{
		opts:     opts,
		logger:   opts.Logger.Named("transport"),
		handlers: make(map[protocol.Event][]protocol.Handler),
		outbox:   make(chan protocol.Frame, opts.OutboxSize),
	}
}

// On registers h for event. Handlers for one event run in registration order,
// once per received frame, in receipt order.
func (s *Socket) On(event protocol.Event, h protocol.Handler) {
	s.mu.Lock()
	s.handlers[event] = append(s.handlers[event], h)
	s.mu.Unlock()
}

// Connected reports the current connectivity.
func (s *Socket) Connected() bool { return s.connected.Load() }

// Connect starts dialing and returns without waiting for the connection. It
// is a no-op while a previous Connect is still active.
func (s *Socket) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	prev := s.done
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev // let a disconnecting run report its edge first
		}
		s.run(ctx)
	}()
}

// Disconnect drops the connection and stops re-dialing. Safe to call when
// already disconnected.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close disconnects and waits for the connection goroutines to exit.
func (s *Socket) Close(ctx context.Context) error {
	s.Disconnect()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Emit queues a frame for sending. It never blocks: frames queued while
// disconnected go out after the next successful dial, and frames beyond the
// outbox capacity are dropped.
func (s *Socket) Emit(event protocol.Event, payload any) {
	frame, err := protocol.NewFrame(event, payload)
	if err != nil {
		s.logger.Error("dropping frame", zap.String("event", string(event)), zap.Error(err))
		return
	}
	select {
	case s.outbox <- frame:
	default:
		s.logger.Warn("outbox full, dropping frame", zap.String("event", string(event)))
	}
}

func (s *Socket) run(ctx context.Context) {
	b := s.opts.NewBackOff()
	everConnected := false

	for {
		conn, _, err := websocket.Dial(ctx, s.opts.URL, &websocket.DialOptions{HTTPHeader: s.opts.Header})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !s.backOff(ctx, b, "dial failed", err) {
				return
			}
			continue
		}

		conn.SetReadLimit(s.opts.ReadLimit)
		s.logger.Info("connected", zap.String("url", s.opts.URL), zap.Bool("reconnect", everConnected))
		s.setConnected(true)
		if everConnected {
			s.deliver(protocol.Reconnect, nil)
		}
		everConnected = true

		start := time.Now()
		err = s.serve(ctx, conn)
		s.setConnected(false)
		if ctx.Err() != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
			s.logger.Info("disconnected")
			return
		}
		_ = conn.CloseNow()

		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			s.logger.Info("server closed connection", zap.Error(err))
		default:
			s.logger.Warn("connection lost", zap.Error(err))
		}

		// A connection that drops right away, e.g. on an oversized frame,
		// must not re-dial at full speed.
		if time.Since(start) >= s.opts.StableAfter {
			b.Reset()
			continue
		}
		if !s.backOff(ctx, b, "connection unstable", err) {
			return
		}
	}
}

// backOff waits for the next retry. It returns false when the policy gives up
// or ctx is done.
func (s *Socket) backOff(ctx context.Context, b backoff.BackOff, msg string, cause error) bool {
	wait := b.NextBackOff()
	if wait == backoff.Stop {
		s.logger.Error("giving up", zap.String("url", s.opts.URL), zap.Error(cause))
		return false
	}
	s.logger.Warn(msg, zap.String("url", s.opts.URL), zap.Duration("retry_in", wait), zap.Error(cause))
	select {
	case <-time.After(wait):
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Socket) serve(ctx context.Context, conn *websocket.Conn) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(ctx, conn) })
	g.Go(func() error { return s.writeLoop(ctx, conn) })
	return g.Wait()
}

func (s *Socket) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		var frame protocol.Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			s.logger.Warn("ignoring undecodable frame", zap.Int("bytes", len(data)), zap.Error(err))
			continue
		}
		s.deliver(frame.Event, frame.Payload)
	}
}

func (s *Socket) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	ping := time.NewTicker(s.opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case frame := <-s.outbox:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, frame)
			cancel()
			if err != nil {
				return err
			}

		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (s *Socket) deliver(event protocol.Event, payload json.RawMessage) {
	s.mu.Lock()
	hs := append([]protocol.Handler(nil), s.handlers[event]...)
	s.mu.Unlock()

	if len(hs) == 0 {
		s.logger.Debug("no handler", zap.String("event", string(event)))
		return
	}
	for _, h := range hs {
		s.post(func() { h(payload) })
	}
}

func (s *Socket) setConnected(v bool) {
	if s.connected.Swap(v) == v {
		return
	}
	s.post(func() {
		if s.opts.OnChange != nil {
			s.opts.OnChange(v)
		}
		switch {
		case v && s.opts.OnConnected != nil:
			s.opts.OnConnected()
		case !v && s.opts.OnDisconnected != nil:
			s.opts.OnDisconnected()
		}
	})
}

func (s *Socket) post(fn func()) {
	if s.opts.Post == nil {
		fn()
		return
	}
	s.opts.Post(fn)
}
