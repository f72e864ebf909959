// Package notify builds the chat entries the client synthesizes next to room
// state changes ("Ann Joined", "You are in control now.").
package notify

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

func defaultID() string { return uuid.NewString() }

// NewID generates chat entry ids. Tests may replace it.
var NewID = defaultID

func system(text, icon string) types.ChatMessage {
	return types.ChatMessage{
		ID:     NewID(),
		UserID: types.SystemUserID,
		Text:   text,
		Icon:   icon,
	}
}

// subject is "You are" for the local user and "{name} is" otherwise.
func subject(self bool, name string) string {
	if self {
		return "You are"
	}
	return name + " is"
}

func UserJoined(u types.User) types.ChatMessage {
	return system(fmt.Sprintf("%s Joined", u.DisplayName), types.IconUser)
}

// UserLeft takes the display name rather than the user because the user is
// gone from the room by the time the entry is shown.
func UserLeft(displayName string) types.ChatMessage {
	return system(fmt.Sprintf("%s Left", displayName), types.IconUser)
}

func AdminChanged(admin types.User, self types.ID) types.ChatMessage {
	return system(fmt.Sprintf("%s in control now.", subject(admin.ID == self, admin.DisplayName)), types.IconAdmin)
}

func CompetingChanged(displayName string, self, competing bool) types.ChatMessage {
	verb := "skipping"
	if competing {
		verb = "competing"
	}
	return system(fmt.Sprintf("%s %s", subject(self, displayName), verb), types.IconUser)
}

// NewScramble lists the attempt's scrambles as secondary text.
func NewScramble(a types.Attempt, event string) types.ChatMessage {
	m := system("A new scramble is here", types.IconScramble)
	m.Secondary = strings.Join(a.Scrambles, ", ")
	m.Event = event
	return m
}
