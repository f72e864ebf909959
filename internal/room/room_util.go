package room

import "github.com/DoyleJ11/cuberoom-client/pkg/types"

// Initial is the empty room every client starts with and returns to on leave.
func Initial() State {
	return State{
		Room: types.Room{
			Users:    []types.User{},
			Attempts: []types.Attempt{},
		},
		Fetching: FetchNever,
	}
}

func fromSnapshot(r types.Room) State {
	s := State{Room: r.Clone(), Fetching: FetchDone}
	if s.Users == nil {
		s.Users = []types.User{}
	}
	for i := range s.Attempts {
		s.Attempts[i] = withDefaults(s.Attempts[i])
	}
	return s
}

// withDefaults gives absent collections their empty value so snapshots never
// carry null for them.
func withDefaults(a types.Attempt) types.Attempt {
	if a.Scrambles == nil {
		a.Scrambles = []string{}
	}
	if a.Results == nil {
		a.Results = map[types.ID]types.Result{}
	}
	return a
}

func withFetching(s State, f Fetch) State {
	s.Fetching = f
	return s
}

func withUsers(s State, users []types.User) State {
	s.Users = users
	return s
}

func withAttempts(s State, attempts []types.Attempt) State {
	s.Attempts = attempts
	return s
}

func withAdmin(s State, admin types.User) State {
	s.Admin = &admin
	return s
}

// appendUser keeps users unique by id: a repeated join replaces the entry in
// place so join order is preserved.
func appendUser(users []types.User, u types.User) []types.User {
	out := make([]types.User, 0, len(users)+1)
	replaced := false
	for _, existing := range users {
		if existing.ID == u.ID {
			out = append(out, u)
			replaced = true
			continue
		}
		out = append(out, existing)
	}
	if !replaced {
		out = append(out, u)
	}
	return out
}

func removeUser(users []types.User, id types.ID) []types.User {
	out := make([]types.User, 0, len(users))
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}

func setCompeting(users []types.User, id types.ID, competing bool) []types.User {
	out := make([]types.User, len(users))
	for i, u := range users {
		if u.ID == id {
			u.Competing = competing
		}
		out[i] = u
	}
	return out
}

func appendAttempt(attempts []types.Attempt, a types.Attempt) []types.Attempt {
	out := make([]types.Attempt, 0, len(attempts)+1)
	out = append(out, attempts...)
	return append(out, withDefaults(a.Clone()))
}

// setResult overwrites the user's result on the attempt with the given id.
// Only the matching attempt gets a new results map; the others are shared
// with the previous state, which is safe because nothing mutates them.
// Lookup is a linear scan, O(len(attempts)).
func setResult(attempts []types.Attempt, attemptID, userID types.ID, r types.Result) []types.Attempt {
	out := make([]types.Attempt, len(attempts))
	for i, a := range attempts {
		if a.ID == attemptID {
			results := make(map[types.ID]types.Result, len(a.Results)+1)
			for k, v := range a.Results {
				results[k] = v
			}
			results[userID] = r
			a.Results = results
		}
		out[i] = a
	}
	return out
}

// FindUser looks a user up by id. O(len(users)).
func FindUser(s State, id types.ID) (types.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return types.User{}, false
}

// FindAttempt looks an attempt up by id with a linear scan, O(len(attempts)).
// Attempt counts are bounded by the length of a session.
func FindAttempt(s State, id types.ID) (types.Attempt, bool) {
	for _, a := range s.Attempts {
		if a.ID == id {
			return a, true
		}
	}
	return types.Attempt{}, false
}

// LatestAttempt returns the most recently created attempt.
func LatestAttempt(s State) (types.Attempt, bool) {
	if len(s.Attempts) == 0 {
		return types.Attempt{}, false
	}
	return s.Attempts[len(s.Attempts)-1], true
}

// CanRequestNewScramble is true once anyone has submitted a result for the
// latest attempt. It does not wait for every competing user.
func CanRequestNewScramble(s State) bool {
	latest, ok := LatestAttempt(s)
	return ok && len(latest.Results) > 0
}
