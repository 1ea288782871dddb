package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/watchroom/server/internal/service/room"
	"github.com/watchroom/server/pkg/rest"
)

const roomIdLength = 8

type createRoomRequest struct {
	Username string  `json:"username" validate:"required,max=32"`
	UserId   *string `json:"user_id" validate:"omitempty,max=64"`
}

type createRoomResponse struct {
	RoomId string `json:"room_id"`
	Token  string `json:"token"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read create room request", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	roomId := c.generator.GenerateRandomString(roomIdLength)
	token, err := c.tokens.Generate(&room.Claims{
		RoomId:   roomId,
		Username: req.Username,
		UserId:   req.UserId,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to generate token", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": createRoomResponse{
		RoomId: roomId,
		Token:  token,
	}})
}

type joinRoomTokenRequest struct {
	Username string  `json:"username" validate:"required,max=32"`
	UserId   *string `json:"user_id" validate:"omitempty,max=64"`
}

type joinRoomTokenResponse struct {
	RoomId string `json:"room_id"`
	Token  string `json:"token"`
}

func (c controller) joinRoomToken(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if roomId == "" {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	var req joinRoomTokenRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read join room request", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	token, err := c.tokens.Generate(&room.Claims{
		RoomId:   roomId,
		Username: req.Username,
		UserId:   req.UserId,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to generate token", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": joinRoomTokenResponse{
		RoomId: roomId,
		Token:  token,
	}})
}

func (c controller) searchVideos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "query is required"})
		return
	}

	videos, err := c.searcher.Resolve(r.Context(), query)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to resolve videos", "query", query, "error", err)
		rest.WriteJSON(w, http.StatusBadGateway, rest.Envelope{"error": "failed to resolve videos"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": videos})
}
