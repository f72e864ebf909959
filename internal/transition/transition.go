// Package transition is the closed catalogue of state-change records consumed
// by the client store. Intents are dispatched by presentation code and turned
// into wire traffic by the bridge; the remaining kinds are produced by the
// bridge from inbound wire events.
//
// The catalogue is sealed by an unexported marker method: no other package can
// add a kind, so every reducer's type switch is total over the set declared
// here and its default branch is the identity transition.
package transition

import (
	"encoding/json"

	"github.com/DoyleJ11/cuberoom-client/internal/protocol"
	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

type Transition interface{ isTransition() }

// Intents (local -> wire)

type ConnectSocket struct{}

type DisconnectSocket struct{}

type FetchRoom struct{ ID string }

type DeleteRoom struct{ ID string }

type JoinRoom struct {
	ID       string
	Password string
}

type CreateRoom struct{ Options types.RoomOptions }

// LeaveRoom is both an intent and the reset of the active room.
type LeaveRoom struct{}

// SubmitResult sends the local user's result for an attempt.
type SubmitResult struct{ Result protocol.SubmitResultPayload }

// RequestScramble asks for a new attempt. Payload is passed through as-is and
// is usually empty.
type RequestScramble struct{ Payload json.RawMessage }

type ChangeEvent struct{ Event string }

type EditRoom struct{ Options types.RoomOptions }

type SendChat struct{ Message types.ChatMessage }

type SendStatus struct{ Status string }

type SetCompeting struct{ Competing bool }

// LocationChanged reports navigation to a new route path.
type LocationChanged struct{ Path string }

// Socket

type ConnectionChanged struct{ Connected bool }

type Connected struct{}

type Disconnected struct{}

// RoomJoined records the access code the socket joined with.
type RoomJoined struct{ AccessCode string }

type LoginFailed struct{ Err protocol.ErrorPayload }

// Room

type RoomUpdated struct{ Room types.Room }

type UserJoined struct{ User types.User }

type UserLeft struct{ UserID types.ID }

type NewAttempt struct {
	Attempt    types.Attempt
	WaitingFor []types.ID
}

type NewResult struct {
	AttemptID types.ID
	UserID    types.ID
	Result    types.Result
}

type UpdateAdmin struct{ Admin types.User }

type UpdateCompeting struct {
	UserID    types.ID
	Competing bool
}

type ReceiveStatus struct {
	UserID types.ID
	Status string
}

// Room list

type RoomsUpdated struct{ Rooms []types.RoomSummary }

type GlobalRoomUpdated struct{ Room types.RoomSummary }

type RoomCreated struct{ Room types.RoomSummary }

type RoomDeleted struct{ ID string }

// Chat, notifications, server

type ReceiveChat struct{ Message types.ChatMessage }

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

type CreateMessage struct {
	Severity Severity
	Text     string
}

type UserCountUpdated struct{ Count int }

// SessionChanged sets the identity of the local user.
type SessionChanged struct{ User types.User }

func (ConnectSocket) isTransition()     {}
func (DisconnectSocket) isTransition()  {}
func (FetchRoom) isTransition()         {}
func (DeleteRoom) isTransition()        {}
func (JoinRoom) isTransition()          {}
func (CreateRoom) isTransition()        {}
func (LeaveRoom) isTransition()         {}
func (SubmitResult) isTransition()      {}
func (RequestScramble) isTransition()   {}
func (ChangeEvent) isTransition()       {}
func (EditRoom) isTransition()          {}
func (SendChat) isTransition()          {}
func (SendStatus) isTransition()        {}
func (SetCompeting) isTransition()      {}
func (LocationChanged) isTransition()   {}
func (ConnectionChanged) isTransition() {}
func (Connected) isTransition()         {}
func (Disconnected) isTransition()      {}
func (RoomJoined) isTransition()        {}
func (LoginFailed) isTransition()       {}
func (RoomUpdated) isTransition()       {}
func (UserJoined) isTransition()        {}
func (UserLeft) isTransition()          {}
func (NewAttempt) isTransition()        {}
func (NewResult) isTransition()         {}
func (UpdateAdmin) isTransition()       {}
func (UpdateCompeting) isTransition()   {}
func (ReceiveStatus) isTransition()     {}
func (RoomsUpdated) isTransition()      {}
func (GlobalRoomUpdated) isTransition() {}
func (RoomCreated) isTransition()       {}
func (RoomDeleted) isTransition()       {}
func (ReceiveChat) isTransition()       {}
func (CreateMessage) isTransition()     {}
func (UserCountUpdated) isTransition()  {}
func (SessionChanged) isTransition()    {}
