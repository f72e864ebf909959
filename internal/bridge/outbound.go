package bridge

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/cuberoom-client/internal/protocol"
	"github.com/DoyleJ11/cuberoom-client/internal/transition"
)

// Middleware is installed on the store. It runs before the transition is
// reduced, so the room it reads is the room as it was before t.
func (b *Bridge) Middleware(t transition.Transition) {
	switch t := t.(type) {
	case transition.ConnectSocket:
		b.transport.Connect()

	case transition.DisconnectSocket:
		b.transport.Disconnect()

	case transition.FetchRoom:
		b.emit(protocol.FetchRoom, t.ID)

	case transition.DeleteRoom:
		b.emit(protocol.DeleteRoom, t.ID)

	case transition.JoinRoom:
		b.emit(protocol.JoinRoom, protocol.JoinRoomPayload{ID: t.ID, Password: t.Password})

	case transition.CreateRoom:
		b.emit(protocol.CreateRoom, t.Options)

	case transition.LeaveRoom:
		if b.rooms.Room().Active() {
			b.emit(protocol.LeaveRoom, nil)
		}

	case transition.SubmitResult:
		b.emit(protocol.SubmitResult, t.Result)

	case transition.RequestScramble:
		if len(t.Payload) == 0 {
			b.emit(protocol.RequestScramble, nil)
		} else {
			b.emit(protocol.RequestScramble, t.Payload)
		}

	case transition.ChangeEvent:
		b.emit(protocol.ChangeEvent, t.Event)

	case transition.EditRoom:
		b.emit(protocol.EditRoom, t.Options)

	case transition.SendChat:
		b.emit(protocol.Message, t.Message)

	case transition.SendStatus:
		b.emit(protocol.UpdateStatus, protocol.StatusPayload{
			User:   b.identity.UserID(),
			Status: t.Status,
		})

	case transition.SetCompeting:
		b.emit(protocol.UpdateCompeting, t.Competing)

	case transition.LocationChanged:
		if t.Path == homePath || t.Path == profilePath {
			b.dispatch.Dispatch(transition.LeaveRoom{})
		}
	}
}

func (b *Bridge) emit(event protocol.Event, payload any) {
	b.logger.Debug("emit", zap.String("event", string(event)))
	b.transport.Emit(event, payload)
}
