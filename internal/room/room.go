// Package room is the client-side Room state machine: a pure fold of
// transitions over the active Room aggregate.
package room

import (
	"encoding/json"
	"fmt"

	"github.com/DoyleJ11/cuberoom-client/internal/transition"
	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

// Fetch is the lifecycle of a room request.
type Fetch int

const (
	FetchNever    Fetch = iota // nothing requested yet
	FetchInFlight              // fetch or join sent, no snapshot yet
	FetchDone                  // snapshot received
)

func (f Fetch) String() string {
	switch f {
	case FetchInFlight:
		return "in_flight"
	case FetchDone:
		return "done"
	default:
		return "never"
	}
}

func (f Fetch) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Fetch) UnmarshalText(b []byte) error {
	switch string(b) {
	case "never":
		*f = FetchNever
	case "in_flight":
		*f = FetchInFlight
	case "done":
		*f = FetchDone
	default:
		return fmt.Errorf("unknown fetch state %q", b)
	}
	return nil
}

// State is the active Room plus client-only bookkeeping. The embedded Room is
// replaced wholesale by server snapshots; it is never merged.
type State struct {
	types.Room
	Fetching Fetch `json:"fetching"`
	// NewScramble is raised by new_attempt and cleared by the next snapshot.
	NewScramble bool       `json:"newScramble"`
	WaitingFor  []types.ID `json:"waitingFor,omitempty"`
}

// UnmarshalJSON decodes a published State. Without it the embedded Room's
// decoder would take over and drop the bookkeeping fields.
func (s *State) UnmarshalJSON(b []byte) error {
	var r types.Room
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	var extra struct {
		Fetching    Fetch      `json:"fetching"`
		NewScramble bool       `json:"newScramble"`
		WaitingFor  []types.ID `json:"waitingFor"`
	}
	if err := json.Unmarshal(b, &extra); err != nil {
		return err
	}
	*s = State{Room: r, Fetching: extra.Fetching, NewScramble: extra.NewScramble, WaitingFor: extra.WaitingFor}
	return nil
}

// Active reports whether a room is currently joined or being viewed.
func (s State) Active() bool { return s.ID != "" }

// Apply folds one transition into s and returns the next state. It never
// mutates s: every collection it changes is rebuilt. Kinds it does not handle
// return s unchanged.
func Apply(s State, t transition.Transition) State {
	switch t := t.(type) {
	case transition.FetchRoom, transition.JoinRoom:
		return withFetching(s, FetchInFlight)

	case transition.RoomUpdated:
		return fromSnapshot(t.Room)

	case transition.LeaveRoom:
		return Initial()

	case transition.UserJoined:
		return withUsers(s, appendUser(s.Users, t.User))

	case transition.UserLeft:
		return withUsers(s, removeUser(s.Users, t.UserID))

	case transition.UpdateCompeting:
		return withUsers(s, setCompeting(s.Users, t.UserID, t.Competing))

	case transition.UpdateAdmin:
		return withAdmin(s, t.Admin)

	case transition.NewAttempt:
		next := withAttempts(s, appendAttempt(s.Attempts, t.Attempt))
		next.NewScramble = true
		next.WaitingFor = append([]types.ID(nil), t.WaitingFor...)
		return next

	case transition.NewResult:
		return withAttempts(s, setResult(s.Attempts, t.AttemptID, t.UserID, t.Result))

	default:
		return s
	}
}

// Reduce folds ts over the initial state.
func Reduce(ts []transition.Transition) State {
	s := Initial()
	for _, t := range ts {
		s = Apply(s, t)
	}
	return s
}
