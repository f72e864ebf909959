// Package protocol defines the named events exchanged with the room server and
// the JSON envelope that carries them.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Event is a wire event name.
type Event string

// Events in both directions. Reconnect is raised locally by the transport after
// a successful re-dial; the server never sends it.
const (
	Reconnect         Event = "reconnect"
	Error             Event = "error"
	UpdateRooms       Event = "update_rooms"
	UpdateRoom        Event = "update_room"
	GlobalRoomUpdated Event = "global_room_updated"
	RoomCreated       Event = "room_created"
	RoomDeleted       Event = "room_deleted"
	UpdateAdmin       Event = "update_admin"
	ForceJoin         Event = "force_join"
	Join              Event = "join"
	UserJoin          Event = "user_join"
	UserLeft          Event = "user_left"
	NewAttempt        Event = "new_attempt"
	NewResult         Event = "new_result"
	Message           Event = "message"
	UpdateStatus      Event = "update_status"
	UpdateCompeting   Event = "update_competing"
	UpdateUserCount   Event = "update_user_count"

	FetchRoom       Event = "fetch_room"
	DeleteRoom      Event = "delete_room"
	JoinRoom        Event = "join_room"
	CreateRoom      Event = "create_room"
	LeaveRoom       Event = "leave_room"
	SubmitResult    Event = "submit_result"
	RequestScramble Event = "request_scramble"
	ChangeEvent     Event = "change_event"
	EditRoom        Event = "edit_room"
)

// Frame is one websocket text message.
type Frame struct {
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewFrame marshals payload into a frame. A nil payload produces a frame with
// no payload field.
func NewFrame(event Event, payload any) (Frame, error) {
	f := Frame{Event: event}
	if payload == nil {
		return f, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	f.Payload = b
	return f, nil
}

// Handler receives the raw payload of one inbound event.
type Handler func(payload json.RawMessage)
