package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

// ErrMalformedPayload reports an inbound payload that could not be decoded or
// is missing a required field.
var ErrMalformedPayload = errors.New("malformed payload")

// Client -> Server

type JoinRoomPayload struct {
	ID       string `json:"id"`
	Password string `json:"password,omitempty"`
}

type SubmitResultPayload struct {
	ID     types.ID     `json:"id"`
	Result types.Result `json:"result"`
}

type StatusPayload struct {
	User   types.ID `json:"user"`
	Status string   `json:"status"`
}

// Server -> Client

// ErrorPayload is the body of an error event. Event names the client event
// that caused it, when there was one.
type ErrorPayload struct {
	StatusCode int    `json:"statusCode"`
	Event      Event  `json:"event,omitempty"`
	Redirect   string `json:"redirect,omitempty"`
	Message    string `json:"message"`
}

type NewAttemptPayload struct {
	Attempt    types.Attempt `json:"attempt"`
	WaitingFor []types.ID    `json:"waitingFor"`
}

type NewResultPayload struct {
	ID     types.ID     `json:"id"`
	UserID types.ID     `json:"userId"`
	Result types.Result `json:"result"`
}

type UpdateStatusPayload struct {
	User   types.ID `json:"user"`
	Status string   `json:"status"`
}

type UpdateCompetingPayload struct {
	UserID    types.ID `json:"userId"`
	Competing bool     `json:"competing"`
}

// Decode unmarshals raw into v and runs its validation, if any.
func Decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty", ErrMalformedPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if c, ok := v.(interface{ validate() error }); ok {
		if err := c.validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
	}
	return nil
}

func missing(field string) error { return fmt.Errorf("missing %s", field) }

func (p *NewAttemptPayload) validate() error {
	if p.Attempt.ID == "" {
		return missing("attempt.id")
	}
	if p.Attempt.Scrambles == nil {
		p.Attempt.Scrambles = []string{}
	}
	if p.Attempt.Results == nil {
		p.Attempt.Results = map[types.ID]types.Result{}
	}
	return nil
}

func (p *NewResultPayload) validate() error {
	if p.ID == "" {
		return missing("id")
	}
	if p.UserID == "" {
		return missing("userId")
	}
	return nil
}

func (p *UpdateStatusPayload) validate() error {
	if p.User == "" {
		return missing("user")
	}
	return nil
}

func (p *UpdateCompetingPayload) validate() error {
	if p.UserID == "" {
		return missing("userId")
	}
	return nil
}

// UserPayload wraps a bare user object (user_join, update_admin).
type UserPayload struct{ types.User }

func (p *UserPayload) validate() error {
	if p.ID == "" {
		return missing("id")
	}
	return nil
}

// RoomPayload wraps a bare room object (update_room, join, force_join,
// room_created, global_room_updated).
type RoomPayload struct{ types.Room }

func (p *RoomPayload) validate() error {
	if p.ID == "" {
		return missing("_id")
	}
	return nil
}

// IDPayload is a bare id (user_left, room_deleted, fetch_room, delete_room).
type IDPayload struct{ types.ID }

func (p *IDPayload) validate() error {
	if p.ID == "" {
		return missing("id")
	}
	return nil
}

// SummaryPayload is one room list entry (room_created, global_room_updated).
type SummaryPayload struct{ types.RoomSummary }

func (p *SummaryPayload) validate() error {
	if p.ID == "" {
		return missing("_id")
	}
	return nil
}
