package controller

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/service/room"
)

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ json.RawMessage) {
}

type SendMessageInput struct {
	Content string `json:"content"`
}

func (c controller) handleSendMessage(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) {
	var input SendMessageInput
	if !c.unmarshalInput(ctx, payload, &input) {
		return
	}

	coord, err := c.registry.Get(c.getRoomIdFromCtx(ctx))
	if err != nil {
		c.writeError(ctx, err)
		return
	}

	if _, err := coord.SendChat(ctx, &room.SendChatParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		Content:      input.Content,
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to send chat message", "error", err)
		c.writeError(ctx, err)
	}
}

type SelectVideoInput struct {
	VideoId string `json:"video_id"`
}

func (c controller) handleSelectVideo(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) {
	var input SelectVideoInput
	if !c.unmarshalInput(ctx, payload, &input) {
		return
	}

	c.applyPlayerCommand(ctx, room.PlayerCommand{
		Action:  room.PlayerActionSelectVideo,
		VideoId: input.VideoId,
	})
}

type PlayerPositionInput struct {
	Position float64 `json:"position"`
}

func (c controller) handlePlayerPlay(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) {
	var input PlayerPositionInput
	if !c.unmarshalInput(ctx, payload, &input) {
		return
	}

	c.applyPlayerCommand(ctx, room.PlayerCommand{
		Action:   room.PlayerActionPlay,
		Position: input.Position,
	})
}

func (c controller) handlePlayerPause(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) {
	var input PlayerPositionInput
	if !c.unmarshalInput(ctx, payload, &input) {
		return
	}

	c.applyPlayerCommand(ctx, room.PlayerCommand{
		Action:   room.PlayerActionPause,
		Position: input.Position,
	})
}

func (c controller) handlePlayerSeek(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) {
	var input PlayerPositionInput
	if !c.unmarshalInput(ctx, payload, &input) {
		return
	}

	c.applyPlayerCommand(ctx, room.PlayerCommand{
		Action:   room.PlayerActionSeek,
		Position: input.Position,
	})
}

func (c controller) applyPlayerCommand(ctx context.Context, command room.PlayerCommand) {
	coord, err := c.registry.Get(c.getRoomIdFromCtx(ctx))
	if err != nil {
		c.writeError(ctx, err)
		return
	}

	if _, err := coord.ApplyPlayerCommand(ctx, &room.ApplyPlayerCommandParams{
		ConnectionId: c.getConnectionIdFromCtx(ctx),
		Command:      command,
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to apply player command", "action", command.Action, "error", err)
		c.writeError(ctx, err)
	}
}

func (c controller) unmarshalInput(ctx context.Context, payload json.RawMessage, dst any) bool {
	if err := json.Unmarshal(payload, dst); err != nil {
		c.writeErrorMessage(ctx, "malformed payload")
		return false
	}

	return true
}
