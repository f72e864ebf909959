package bridge

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cuberoom-client/internal/notify"
	"github.com/DoyleJ11/cuberoom-client/internal/protocol"
	"github.com/DoyleJ11/cuberoom-client/internal/room"
	"github.com/DoyleJ11/cuberoom-client/internal/transition"
	"github.com/DoyleJ11/cuberoom-client/pkg/types"
)

// Attach registers a handler for every inbound event on the transport.
func (b *Bridge) Attach() {
	for event, h := range b.handlers() {
		b.transport.On(event, h)
	}
}

func (b *Bridge) handlers() map[protocol.Event]protocol.Handler {
	return map[protocol.Event]protocol.Handler{
		protocol.Reconnect:         b.onReconnect,
		protocol.Error:             b.onError,
		protocol.UpdateRooms:       b.onUpdateRooms,
		protocol.UpdateRoom:        b.onUpdateRoom,
		protocol.GlobalRoomUpdated: b.onGlobalRoomUpdated,
		protocol.RoomCreated:       b.onRoomCreated,
		protocol.RoomDeleted:       b.onRoomDeleted,
		protocol.UpdateAdmin:       b.onUpdateAdmin,
		protocol.ForceJoin:         b.onForceJoin,
		protocol.Join:              b.onJoin,
		protocol.UserJoin:          b.onUserJoin,
		protocol.UserLeft:          b.onUserLeft,
		protocol.NewAttempt:        b.onNewAttempt,
		protocol.NewResult:         b.onNewResult,
		protocol.Message:           b.onMessage,
		protocol.UpdateStatus:      b.onUpdateStatus,
		protocol.UpdateCompeting:   b.onUpdateCompeting,
		protocol.UpdateUserCount:   b.onUpdateUserCount,
	}
}

// decode reports malformed payloads with DPanic: a development logger panics,
// a production logger records the error and the event is dropped.
func decode[T any](b *Bridge, event protocol.Event, raw json.RawMessage) (T, bool) {
	var v T
	if err := protocol.Decode(raw, &v); err != nil {
		b.logger.DPanic("dropping inbound event", zap.String("event", string(event)), zap.Error(err))
		return v, false
	}
	return v, true
}

func (b *Bridge) onReconnect(json.RawMessage) {
	r := b.rooms.Room()
	b.logger.Info("reconnected", zap.String("room", r.ID))
	if r.Active() && r.AccessCode != "" {
		b.dispatch.Dispatch(transition.JoinRoom{ID: r.ID, Password: r.Password})
	}
}

func (b *Bridge) onError(raw json.RawMessage) {
	e, ok := decode[protocol.ErrorPayload](b, protocol.Error, raw)
	if !ok {
		return
	}
	b.logger.Warn("server error",
		zap.Int("status", e.StatusCode),
		zap.String("event", string(e.Event)),
		zap.String("redirect", e.Redirect),
		zap.String("message", e.Message),
	)

	switch {
	case e.StatusCode == http.StatusNotFound:
		b.nav.Push(homePath)
	case e.StatusCode == http.StatusForbidden && e.Event == protocol.JoinRoom:
		b.dispatch.Dispatch(transition.LoginFailed{Err: e})
		b.dispatch.Dispatch(transition.CreateMessage{Severity: transition.SeverityError, Text: e.Message})
	case e.StatusCode >= http.StatusBadRequest && e.Redirect != "":
		b.nav.Push(e.Redirect)
	}
}

func (b *Bridge) onUpdateRooms(raw json.RawMessage) {
	rooms, ok := decode[[]types.RoomSummary](b, protocol.UpdateRooms, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.RoomsUpdated{Rooms: rooms})
}

func (b *Bridge) onUpdateRoom(raw json.RawMessage) {
	p, ok := decode[protocol.RoomPayload](b, protocol.UpdateRoom, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.RoomUpdated{Room: p.Room})
}

func (b *Bridge) onGlobalRoomUpdated(raw json.RawMessage) {
	p, ok := decode[protocol.SummaryPayload](b, protocol.GlobalRoomUpdated, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.GlobalRoomUpdated{Room: p.RoomSummary})
}

func (b *Bridge) onRoomCreated(raw json.RawMessage) {
	p, ok := decode[protocol.SummaryPayload](b, protocol.RoomCreated, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.RoomCreated{Room: p.RoomSummary})
}

func (b *Bridge) onRoomDeleted(raw json.RawMessage) {
	p, ok := decode[protocol.IDPayload](b, protocol.RoomDeleted, raw)
	if !ok {
		return
	}
	id := string(p.ID)
	b.dispatch.Dispatch(transition.RoomDeleted{ID: id})
	if id == b.rooms.Room().ID {
		b.dispatch.Dispatch(transition.LeaveRoom{})
		b.nav.Push(homePath)
	}
}

func (b *Bridge) onUpdateAdmin(raw json.RawMessage) {
	p, ok := decode[protocol.UserPayload](b, protocol.UpdateAdmin, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.UpdateAdmin{Admin: p.User})
	b.dispatch.Dispatch(transition.ReceiveChat{Message: notify.AdminChanged(p.User, b.identity.UserID())})
}

func (b *Bridge) onForceJoin(raw json.RawMessage) {
	p, ok := decode[protocol.RoomPayload](b, protocol.ForceJoin, raw)
	if !ok {
		return
	}
	b.nav.Push(roomPath(p.ID))
}

func (b *Bridge) onJoin(raw json.RawMessage) {
	p, ok := decode[protocol.RoomPayload](b, protocol.Join, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.RoomJoined{AccessCode: p.AccessCode})
	b.dispatch.Dispatch(transition.RoomUpdated{Room: p.Room})
	b.dispatch.Dispatch(transition.CreateMessage{Severity: transition.SeveritySuccess, Text: "room joined"})
}

func (b *Bridge) onUserJoin(raw json.RawMessage) {
	p, ok := decode[protocol.UserPayload](b, protocol.UserJoin, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.UserJoined{User: p.User})
	b.dispatch.Dispatch(transition.ReceiveChat{Message: notify.UserJoined(p.User)})
}

// onUserLeft resolves the display name before the removal is dispatched; the
// lookup needs the user to still be in the room.
func (b *Bridge) onUserLeft(raw json.RawMessage) {
	p, ok := decode[protocol.IDPayload](b, protocol.UserLeft, raw)
	if !ok {
		return
	}
	if u, found := room.FindUser(b.rooms.Room(), p.ID); found {
		b.dispatch.Dispatch(transition.ReceiveChat{Message: notify.UserLeft(u.DisplayName)})
	} else {
		b.logger.Debug("user_left for unknown user", zap.String("user", string(p.ID)))
	}
	b.dispatch.Dispatch(transition.UserLeft{UserID: p.ID})
}

func (b *Bridge) onNewAttempt(raw json.RawMessage) {
	p, ok := decode[protocol.NewAttemptPayload](b, protocol.NewAttempt, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.NewAttempt{Attempt: p.Attempt, WaitingFor: p.WaitingFor})
	b.dispatch.Dispatch(transition.ReceiveChat{Message: notify.NewScramble(p.Attempt, b.rooms.Room().Event)})
}

func (b *Bridge) onNewResult(raw json.RawMessage) {
	p, ok := decode[protocol.NewResultPayload](b, protocol.NewResult, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.NewResult{AttemptID: p.ID, UserID: p.UserID, Result: p.Result})
}

func (b *Bridge) onMessage(raw json.RawMessage) {
	msg, ok := decode[types.ChatMessage](b, protocol.Message, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.ReceiveChat{Message: msg})
}

func (b *Bridge) onUpdateStatus(raw json.RawMessage) {
	p, ok := decode[protocol.UpdateStatusPayload](b, protocol.UpdateStatus, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.ReceiveStatus{UserID: p.User, Status: p.Status})
}

func (b *Bridge) onUpdateCompeting(raw json.RawMessage) {
	p, ok := decode[protocol.UpdateCompetingPayload](b, protocol.UpdateCompeting, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.UpdateCompeting{UserID: p.UserID, Competing: p.Competing})

	name := string(p.UserID)
	if u, found := room.FindUser(b.rooms.Room(), p.UserID); found {
		name = u.DisplayName
	}
	self := p.UserID == b.identity.UserID()
	b.dispatch.Dispatch(transition.ReceiveChat{Message: notify.CompetingChanged(name, self, p.Competing)})
}

func (b *Bridge) onUpdateUserCount(raw json.RawMessage) {
	count, ok := decode[int](b, protocol.UpdateUserCount, raw)
	if !ok {
		return
	}
	b.dispatch.Dispatch(transition.UserCountUpdated{Count: count})
}
