package types

// SystemUserID marks chat entries synthesized by the client rather than sent
// by a participant.
const SystemUserID ID = "-1"

// Chat entry icons.
const (
	IconUser     = "USER"
	IconAdmin    = "ADMIN"
	IconScramble = "SCRAMBLE"
)

// ChatMessage is one entry of the room chat log:
//
//	id: string
//	userId: string | number (-1 for system entries)
//	text: string
//	icon: "USER" | "ADMIN" | "SCRAMBLE" (system entries only)
//	secondary: string (optional)
//	event: string (optional, scramble entries)
type ChatMessage struct {
	ID        string `json:"id"`
	UserID    ID     `json:"userId"`
	Text      string `json:"text"`
	Icon      string `json:"icon,omitempty"`
	Secondary string `json:"secondary,omitempty"`
	Event     string `json:"event,omitempty"`
}

// RoomOptions are the settings sent with create_room and edit_room.
type RoomOptions struct {
	Name     string `json:"name,omitempty"`
	Private  bool   `json:"private"`
	Password string `json:"password,omitempty"`
	Event    string `json:"event,omitempty"`
}
