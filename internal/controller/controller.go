package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/randstr"
	"github.com/watchroom/server/pkg/validator"
	"github.com/watchroom/server/pkg/wsrouter"
	"github.com/watchroom/server/pkg/ytsearch"
)

type iRoomRegistry interface {
	GetOrCreate(roomId string) *room.Coordinator
	Get(roomId string) (*room.Coordinator, error)
	Exists(roomId string) bool
}

type iTokenManager interface {
	Generate(claims *room.Claims) (string, error)
	Parse(tokenString string) (*room.Claims, error)
}

type iSearcher interface {
	Resolve(ctx context.Context, query string) ([]ytsearch.Video, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, connectionId, roomId string) error
	RemoveByConn(conn *websocket.Conn) (string, error)
}

type iSender interface {
	SendTo(ctx context.Context, connectionId string, event *room.Event) error
	Forget(conn *websocket.Conn)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type controller struct {
	registry  iRoomRegistry
	tokens    iTokenManager
	searcher  iSearcher
	connRepo  iConnRepo
	sender    iSender
	generator iGenerator
	upgrader  websocket.Upgrader
	validate  *validator.Validator
	wsRouter  *wsrouter.WSRouter
	logger    *slog.Logger
}

func NewController(registry iRoomRegistry, tokens iTokenManager, searcher iSearcher, connRepo iConnRepo, sender iSender, logger *slog.Logger) *controller {
	c := controller{
		registry: registry,
		tokens:   tokens,
		searcher: searcher,
		connRepo: connRepo,
		sender:   sender,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	c.generator = randstr.New(letterBytes)
	c.wsRouter = c.getWSRouter()

	return &c
}
