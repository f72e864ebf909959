package store

import (
	"github.com/DoyleJ11/cuberoom-client/internal/protocol"
	"github.com/DoyleJ11/cuberoom-client/internal/room"
	"github.com/DoyleJ11/cuberoom-client/internal/transition"
	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

const (
	maxChatEntries = 500
	maxMessages    = 50
)

// State is everything the client knows. Values are never mutated after they
// are published, so a State can be shared freely between goroutines.
type State struct {
	Room      room.State          `json:"room"`
	Rooms     []types.RoomSummary `json:"rooms"`
	Socket    Socket              `json:"socket"`
	Chat      []types.ChatMessage `json:"chat"`
	Messages  []Message           `json:"messages"`
	Statuses  map[types.ID]string `json:"statuses"`
	UserCount int                 `json:"userCount"`
	User      types.User          `json:"user"`
	Location  string              `json:"location"`
}

// Socket is the connection lifecycle. It is independent of the Room.
type Socket struct {
	Connected    bool `json:"connected"`
	Reconnecting bool `json:"reconnecting"`
	// Wanted is true between a connect intent and a disconnect intent.
	Wanted      bool                   `json:"-"`
	AccessCode  string                 `json:"accessCode,omitempty"`
	LoginFailed *protocol.ErrorPayload `json:"loginFailed,omitempty"`
}

// Message is a transient notification for the user.
type Message struct {
	Severity transition.Severity `json:"severity"`
	Text     string              `json:"text"`
}

func initialState() State {
	return State{
		Room:     room.Initial(),
		Rooms:    []types.RoomSummary{},
		Chat:     []types.ChatMessage{},
		Messages: []Message{},
		Statuses: map[types.ID]string{},
		Location: "/",
	}
}

// Reduce folds one transition into every slice of State.
func Reduce(s State, t transition.Transition) State {
	s.Room = room.Apply(s.Room, t)
	s.Rooms = reduceRooms(s.Rooms, t)
	s.Socket = reduceSocket(s.Socket, t)
	s.Chat = reduceChat(s.Chat, t)
	s.Messages = reduceMessages(s.Messages, t)
	s.Statuses = reduceStatuses(s.Statuses, t)

	switch t := t.(type) {
	case transition.UserCountUpdated:
		s.UserCount = t.Count
	case transition.SessionChanged:
		s.User = t.User
	case transition.LocationChanged:
		s.Location = t.Path
	}
	return s
}

func reduceRooms(rooms []types.RoomSummary, t transition.Transition) []types.RoomSummary {
	switch t := t.(type) {
	case transition.RoomsUpdated:
		return append([]types.RoomSummary{}, t.Rooms...)

	case transition.GlobalRoomUpdated:
		out := make([]types.RoomSummary, len(rooms))
		for i, r := range rooms {
			if r.ID == t.Room.ID {
				r = t.Room
			}
			out[i] = r
		}
		return out

	case transition.RoomCreated:
		out := make([]types.RoomSummary, 0, len(rooms)+1)
		for _, r := range rooms {
			if r.ID != t.Room.ID {
				out = append(out, r)
			}
		}
		return append(out, t.Room)

	case transition.RoomDeleted:
		out := make([]types.RoomSummary, 0, len(rooms))
		for _, r := range rooms {
			if r.ID != t.ID {
				out = append(out, r)
			}
		}
		return out

	default:
		return rooms
	}
}

func reduceSocket(s Socket, t transition.Transition) Socket {
	switch t := t.(type) {
	case transition.ConnectSocket:
		s.Wanted = true
	case transition.DisconnectSocket:
		s.Wanted = false
		s.Reconnecting = false
	case transition.ConnectionChanged:
		s.Connected = t.Connected
	case transition.Connected:
		s.Connected = true
		s.Reconnecting = false
	case transition.Disconnected:
		s.Connected = false
		s.Reconnecting = s.Wanted
	case transition.RoomJoined:
		s.AccessCode = t.AccessCode
		s.LoginFailed = nil
	case transition.LoginFailed:
		err := t.Err
		s.LoginFailed = &err
	case transition.JoinRoom:
		s.LoginFailed = nil
	case transition.LeaveRoom:
		s.AccessCode = ""
	}
	return s
}

func reduceChat(chat []types.ChatMessage, t transition.Transition) []types.ChatMessage {
	switch t := t.(type) {
	case transition.ReceiveChat:
		return appendCapped(chat, t.Message, maxChatEntries)
	case transition.LeaveRoom:
		return []types.ChatMessage{}
	default:
		return chat
	}
}

func reduceMessages(msgs []Message, t transition.Transition) []Message {
	if t, ok := t.(transition.CreateMessage); ok {
		return appendCapped(msgs, Message{Severity: t.Severity, Text: t.Text}, maxMessages)
	}
	return msgs
}

func reduceStatuses(statuses map[types.ID]string, t transition.Transition) map[types.ID]string {
	switch t := t.(type) {
	case transition.ReceiveStatus:
		out := make(map[types.ID]string, len(statuses)+1)
		for k, v := range statuses {
			out[k] = v
		}
		out[t.UserID] = t.Status
		return out
	case transition.LeaveRoom:
		return map[types.ID]string{}
	default:
		return statuses
	}
}

func appendCapped[T any](xs []T, x T, limit int) []T {
	start := 0
	if len(xs) >= limit {
		start = len(xs) - limit + 1
	}
	out := make([]T, 0, len(xs)-start+1)
	out = append(out, xs[start:]...)
	return append(out, x)
}
