// Package bridge maps local intents to wire events and inbound wire events to
// store transitions. It keeps no state of its own: everything it needs to
// decide on is read from the injected accessors at the time of the event.
package bridge

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/cuberoom-client/internal/protocol"
	"github.com/DoyleJ11/cuberoom-client/internal/room"
	"github.com/DoyleJ11/cuberoom-client/internal/transition"
	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

// Transport is the connection the bridge drives.
type Transport interface {
	Connect()
	Disconnect()
	Emit(event protocol.Event, payload any)
	On(event protocol.Event, h protocol.Handler)
}

type Dispatcher interface {
	Dispatch(t transition.Transition)
}

// RoomReader returns the latest Room snapshot.
type RoomReader interface {
	Room() room.State
}

// Identity returns the id of the local user.
type Identity interface {
	UserID() types.ID
}

type Navigator interface {
	Push(path string)
}

type Config struct {
	Transport  Transport
	Dispatcher Dispatcher
	Rooms      RoomReader
	Identity   Identity
	Navigator  Navigator
	Logger     *zap.Logger
}

type Bridge struct {
	transport Transport
	dispatch  Dispatcher
	rooms     RoomReader
	identity  Identity
	nav       Navigator
	logger    *zap.Logger
}

func New(cfg Config) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	nav := cfg.Navigator
	if nav == nil {
		nav = DispatchNavigator{Dispatcher: cfg.Dispatcher}
	}
	return &Bridge{
		transport: cfg.Transport,
		dispatch:  cfg.Dispatcher,
		rooms:     cfg.Rooms,
		identity:  cfg.Identity,
		nav:       nav,
		logger:    logger.Named("bridge"),
	}
}

// DispatchNavigator turns navigation into LocationChanged transitions so the
// route change flows through the store like any other transition.
type DispatchNavigator struct {
	Dispatcher Dispatcher
}

func (n DispatchNavigator) Push(path string) {
	n.Dispatcher.Dispatch(transition.LocationChanged{Path: path})
}

const (
	homePath    = "/"
	profilePath = "/profile"
)

func roomPath(id string) string { return "/rooms/" + id }
