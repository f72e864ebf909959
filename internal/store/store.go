// Package store owns the client's state and runs the single event loop on
// which every transition, middleware call and inbound handler executes.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cuberoom-client/internal/room"
	"github.com/DoyleJ11/cuberoom-client/internal/transition"
	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

type Msg interface{ isStoreMsg() }

type dispatch struct{ T transition.Transition }

func (dispatch) isStoreMsg() {}

type post struct{ Fn func() }

func (post) isStoreMsg() {}

type subscribe struct {
	ClientID string
	Outbox   chan Snapshot
}

func (subscribe) isStoreMsg() {}

type unsubscribe struct{ ClientID string }

func (unsubscribe) isStoreMsg() {}

// Snapshot is a published State. Version increases by one per transition.
type Snapshot struct {
	Version int
	State   State
}

// Middleware observes a transition before it is reduced, so it sees the state
// as it was before the transition. It runs on the loop.
type Middleware func(t transition.Transition)

type Store struct {
	mu         sync.Mutex
	queue      []Msg
	middleware []Middleware
	stopped    bool

	wake    chan struct{}
	current atomic.Pointer[Snapshot]
	clients map[string]chan Snapshot
	logger  *zap.Logger
}

func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		wake:    make(chan struct{}, 1),
		clients: make(map[string]chan Snapshot),
		logger:  logger.Named("store"),
	}
	s.current.Store(&Snapshot{State: initialState()})
	return s
}

// Use appends middleware. Middleware runs in registration order.
func (s *Store) Use(mw ...Middleware) {
	s.mu.Lock()
	s.middleware = append(s.middleware, mw...)
	s.mu.Unlock()
}

// Dispatch queues a transition. It never blocks, and it is safe to call from
// any goroutine including the loop itself; a transition dispatched from inside
// a handler is processed after that handler returns.
func (s *Store) Dispatch(t transition.Transition) { s.enqueue(dispatch{T: t}) }

// Post schedules fn as one turn of the loop.
func (s *Store) Post(fn func()) { s.enqueue(post{Fn: fn}) }

// Subscribe registers outbox for snapshots. The current snapshot is sent
// first. A subscriber whose outbox is full is dropped and its outbox closed.
func (s *Store) Subscribe(clientID string, outbox chan Snapshot) {
	s.enqueue(subscribe{ClientID: clientID, Outbox: outbox})
}

func (s *Store) Unsubscribe(clientID string) { s.enqueue(unsubscribe{ClientID: clientID}) }

// Snapshot returns the latest published snapshot without side effects.
func (s *Store) Snapshot() Snapshot { return *s.current.Load() }

func (s *Store) State() State { return s.current.Load().State }

func (s *Store) Room() room.State { return s.current.Load().State.Room }

// UserID is the session identity of the local user.
func (s *Store) UserID() types.ID { return s.current.Load().State.User.ID }

// Sync waits until everything queued before the call has been processed.
func (s *Store) Sync(ctx context.Context) error {
	done := make(chan struct{})
	s.Post(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) enqueue(m Msg) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, m)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) next() (Msg, []Middleware, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, nil, false
	}
	m := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return m, s.middleware, true
}

// Run is the event loop. It returns when ctx is done.
func (s *Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil

		case <-s.wake:
			for {
				m, mw, ok := s.next()
				if !ok {
					break
				}
				s.handle(m, mw)
				if ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (s *Store) handle(m Msg, mw []Middleware) {
	switch msg := m.(type) {
	case dispatch:
		for _, fn := range mw {
			fn(msg.T)
		}
		prev := s.current.Load()
		next := &Snapshot{Version: prev.Version + 1, State: Reduce(prev.State, msg.T)}
		s.current.Store(next)
		s.logger.Debug("transition", zap.String("kind", kindOf(msg.T)), zap.Int("version", next.Version))
		s.broadcast(*next)

	case post:
		msg.Fn()

	case subscribe:
		if old, ok := s.clients[msg.ClientID]; ok && old != msg.Outbox {
			close(old)
		}
		s.clients[msg.ClientID] = msg.Outbox
		s.send(msg.ClientID, msg.Outbox, *s.current.Load())

	case unsubscribe:
		if ch, ok := s.clients[msg.ClientID]; ok {
			close(ch)
			delete(s.clients, msg.ClientID)
		}
	}
}

func (s *Store) shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	s.mu.Unlock()

	for id, ch := range s.clients {
		close(ch) // no more snapshots
		delete(s.clients, id)
	}
}

func (s *Store) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		s.send(id, ch, snap)
	}
}

func (s *Store) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
	default:
		// Slow subscriber: drop it.
		s.logger.Warn("dropping slow subscriber", zap.String("client", id))
		close(ch)
		delete(s.clients, id)
	}
}

func kindOf(t transition.Transition) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", t), "transition.")
}
