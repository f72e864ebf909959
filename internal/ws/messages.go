package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/cuberoom-client/internal/protocol"
	"github.com/DoyleJ11/cuberoom-client/internal/store"
	"github.com/DoyleJ11/cuberoom-client/internal/transition"
	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

var (
	ErrUnknownIntent = errors.New("unknown intent")
	ErrBadIntent     = errors.New("bad intent payload")
)

// ClientMessage is an intent sent by a local presentation process.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ServerMessage struct {
	Type    string       `json:"type"` // "StateSnapshot" | "Error"
	Version int          `json:"version,omitempty"`
	State   *store.State `json:"state,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type idPayload struct {
	ID       string `json:"id"`
	Password string `json:"password,omitempty"`
}

// ToTransition maps a client message onto an intent transition.
func ToTransition(m ClientMessage) (transition.Transition, error) {
	switch m.Type {
	case "ConnectSocket":
		return transition.ConnectSocket{}, nil
	case "DisconnectSocket":
		return transition.DisconnectSocket{}, nil
	case "LeaveRoom":
		return transition.LeaveRoom{}, nil
	case "RequestScramble":
		return transition.RequestScramble{Payload: m.Payload}, nil

	case "FetchRoom", "DeleteRoom", "JoinRoom":
		var p idPayload
		if err := decode(m, &p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: %s: missing id", ErrBadIntent, m.Type)
		}
		switch m.Type {
		case "FetchRoom":
			return transition.FetchRoom{ID: p.ID}, nil
		case "DeleteRoom":
			return transition.DeleteRoom{ID: p.ID}, nil
		}
		return transition.JoinRoom{ID: p.ID, Password: p.Password}, nil

	case "CreateRoom", "EditRoom":
		var opts types.RoomOptions
		if err := decode(m, &opts); err != nil {
			return nil, err
		}
		if m.Type == "CreateRoom" {
			return transition.CreateRoom{Options: opts}, nil
		}
		return transition.EditRoom{Options: opts}, nil

	case "SubmitResult":
		var p protocol.SubmitResultPayload
		if err := decode(m, &p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%w: %s: missing attempt id", ErrBadIntent, m.Type)
		}
		return transition.SubmitResult{Result: p}, nil

	case "ChangeEvent":
		var p struct {
			Event string `json:"event"`
		}
		if err := decode(m, &p); err != nil {
			return nil, err
		}
		return transition.ChangeEvent{Event: p.Event}, nil

	case "SendChat":
		var msg types.ChatMessage
		if err := decode(m, &msg); err != nil {
			return nil, err
		}
		return transition.SendChat{Message: msg}, nil

	case "SendStatus":
		var p struct {
			Status string `json:"status"`
		}
		if err := decode(m, &p); err != nil {
			return nil, err
		}
		return transition.SendStatus{Status: p.Status}, nil

	case "SetCompeting":
		var p struct {
			Competing bool `json:"competing"`
		}
		if err := decode(m, &p); err != nil {
			return nil, err
		}
		return transition.SetCompeting{Competing: p.Competing}, nil

	case "Navigate":
		var p struct {
			Path string `json:"path"`
		}
		if err := decode(m, &p); err != nil {
			return nil, err
		}
		if p.Path == "" {
			return nil, fmt.Errorf("%w: %s: missing path", ErrBadIntent, m.Type)
		}
		return transition.LocationChanged{Path: p.Path}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, m.Type)
	}
}

func decode(m ClientMessage, v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%w: %s: missing payload", ErrBadIntent, m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadIntent, m.Type, err)
	}
	return nil
}
