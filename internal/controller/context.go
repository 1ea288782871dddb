package controller

import "context"

type contextKey int

const (
	roomIdCtxKey contextKey = iota
	connectionIdCtxKey
)

func (c controller) getRoomIdFromCtx(ctx context.Context) string {
	roomId, ok := ctx.Value(roomIdCtxKey).(string)
	if !ok {
		return ""
	}

	return roomId
}

func (c controller) getConnectionIdFromCtx(ctx context.Context) string {
	connectionId, ok := ctx.Value(connectionIdCtxKey).(string)
	if !ok {
		return ""
	}

	return connectionId
}
