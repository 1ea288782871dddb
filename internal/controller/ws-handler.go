package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/ctxlogger"
	"github.com/watchroom/server/pkg/rest"
)

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")

	claims, err := c.tokens.Parse(r.URL.Query().Get("token"))
	if err != nil || claims.RoomId != roomId {
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "invalid token"})
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	connectionId := uuid.NewString()

	ctx := ctxlogger.AppendCtx(r.Context(),
		slog.String("room_id", roomId),
		slog.String("connection_id", connectionId),
	)
	ctx = context.WithValue(ctx, roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, connectionIdCtxKey, connectionId)

	if err := c.connRepo.Add(conn, connectionId, roomId); err != nil {
		c.logger.ErrorContext(ctx, "failed to register connection", "error", err)
		conn.Close()
		return
	}

	coord := c.registry.GetOrCreate(roomId)
	attachResp, err := coord.Attach(ctx, &room.AttachParams{
		ConnectionId: connectionId,
		Username:     claims.Username,
		UserId:       claims.UserId,
	})
	if errors.Is(err, room.ErrRoomNotFound) {
		// lost a race with idle eviction, the next GetOrCreate recreates
		coord = c.registry.GetOrCreate(roomId)
		attachResp, err = coord.Attach(ctx, &room.AttachParams{
			ConnectionId: connectionId,
			Username:     claims.Username,
			UserId:       claims.UserId,
		})
	}
	if err != nil {
		c.logger.InfoContext(ctx, "failed to attach connection", "error", err)
		c.connRepo.RemoveByConn(conn)
		c.sender.Forget(conn)
		conn.Close()
		return
	}

	defer func() {
		// remove the conn first so the detach broadcast skips it
		c.connRepo.RemoveByConn(conn)
		coord.Detach(ctx, connectionId)
		c.sender.Forget(conn)
		conn.Close()
	}()

	c.logger.InfoContext(ctx, "connection joined", "username", claims.Username, "member_count", attachResp.MemberCount)

	history := attachResp.History
	if history == nil {
		history = []room.Message{}
	}
	if err := c.sender.SendTo(ctx, connectionId, &room.Event{
		Type: room.EventTypeRoomJoined,
		Payload: room.RoomJoinedPayload{
			History:     history,
			Player:      attachResp.Player,
			MemberCount: attachResp.MemberCount,
		},
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to send snapshot", "error", err)
		return
	}

	if err := c.wsRouter.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}
