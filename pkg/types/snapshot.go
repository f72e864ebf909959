package types

import (
	"bytes"
	"encoding/json"
)

// ID is a server-assigned identifier. The server sends user and attempt ids as
// either JSON strings or numbers; both decode to the same ID.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*id = ID(n.String())
		return nil
	}
}


// Room snapshot as sent by the server:
//
//	_id: string
//	name: string
//	accessCode: string
//	password: string (only sent to members)
//	private: boolean
//	event: string ("333", "222", ...)
//	admin: User
//	users: User[]        // join order
//	attempts: Attempt[]  // creation order
type Room struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	AccessCode string    `json:"accessCode"`
	Password   string    `json:"password,omitempty"`
	Private    bool      `json:"private"`
	Event      string    `json:"event"`
	Admin      *User     `json:"admin,omitempty"`
	Users      []User    `json:"users"`
	Attempts   []Attempt `json:"attempts"`
}

// UnmarshalJSON accepts "id" when "_id" is absent.
func (r *Room) UnmarshalJSON(b []byte) error {
	type plain Room
	aux := struct {
		*plain
		AltID string `json:"id"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = aux.AltID
	}
	return nil
}

// Clone returns a deep copy so the caller can never alias the receiver's
// collections.
func (r Room) Clone() Room {
	out := r
	if r.Admin != nil {
		admin := *r.Admin
		out.Admin = &admin
	}
	out.Users = append([]User(nil), r.Users...)
	out.Attempts = make([]Attempt, len(r.Attempts))
	for i, a := range r.Attempts {
		out.Attempts[i] = a.Clone()
	}
	return out
}

type User struct {
	ID          ID     `json:"id"`
	DisplayName string `json:"displayName"`
	Competing   bool   `json:"competing"`
}

// Attempt is one scramble-and-results round. Results are keyed by user id.
type Attempt struct {
	ID        ID            `json:"id"`
	Scrambles []string      `json:"scrambles"`
	Results   map[ID]Result `json:"results"`
}

func (a Attempt) Clone() Attempt {
	out := a
	if a.Scrambles != nil {
		out.Scrambles = append(make([]string, 0, len(a.Scrambles)), a.Scrambles...)
	}
	out.Results = make(map[ID]Result, len(a.Results))
	for k, v := range a.Results {
		out.Results[k] = v
	}
	return out
}

// Result is a user's solve in milliseconds plus penalties.
type Result struct {
	Time      int64      `json:"time"`
	Penalties *Penalties `json:"penalties,omitempty"`
}

type Penalties struct {
	DNF        bool `json:"DNF,omitempty"`
	AUF        bool `json:"AUF,omitempty"`
	Inspection bool `json:"inspection,omitempty"`
}

// RoomSummary is an entry of the global room list.
type RoomSummary struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Event       string `json:"event"`
	Private     bool   `json:"private"`
	UsersLength int    `json:"usersLength"`
}

func (r *RoomSummary) UnmarshalJSON(b []byte) error {
	type plain RoomSummary
	aux := struct {
		*plain
		AltID string `json:"id"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = aux.AltID
	}
	return nil
}
