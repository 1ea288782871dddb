package controller

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Handle("ALIVE", c.handleAlive)

	// chat
	mux.Handle("SEND_MESSAGE", c.handleSendMessage)

	// player
	mux.Handle("SELECT_VIDEO", c.handleSelectVideo)
	mux.Handle("PLAYER_PLAY", c.handlePlayerPlay)
	mux.Handle("PLAYER_PAUSE", c.handlePlayerPause)
	mux.Handle("PLAYER_SEEK", c.handlePlayerSeek)

	mux.HandleUnknown(func(ctx context.Context, conn *websocket.Conn, _ json.RawMessage) {
		c.writeErrorMessage(ctx, "unknown message type")
	})

	return mux
}

// writeError reports a failure to the issuing connection only.
func (c controller) writeError(ctx context.Context, err error) {
	c.writeErrorMessage(ctx, err.Error())
}

func (c controller) writeErrorMessage(ctx context.Context, msg string) {
	connectionId := c.getConnectionIdFromCtx(ctx)
	if err := c.sender.SendTo(ctx, connectionId, &room.Event{
		Type:    room.EventTypeError,
		Payload: room.ErrorPayload{Message: msg},
	}); err != nil {
		c.logger.DebugContext(ctx, "failed to write error", "error", err)
	}
}
