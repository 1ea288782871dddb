package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage)

type WSRouter struct {
	routes         map[string]HandlerFunc
	unknownHandler HandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// HandleUnknown sets the handler invoked for message types with no route.
func (r *WSRouter) HandleUnknown(handler HandlerFunc) {
	r.unknownHandler = handler
}

// ServeConn reads messages from conn until the connection fails and routes
// each one by its type. The read error that ended the loop is returned.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			if r.unknownHandler != nil {
				r.unknownHandler(ctx, conn, msg.Payload)
			}
			continue
		}

		handler(ctx, conn, msg.Payload)
	}
}
