package room

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the capability carried by a join token: the single room it
// grants access to plus the identity the connection will present as.
type Claims struct {
	RoomId   string
	Username string
	UserId   *string
}

type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

func (t *TokenManager) Generate(claims *Claims) (string, error) {
	mapClaims := jwt.MapClaims{
		"room_id":  claims.RoomId,
		"username": claims.Username,
	}
	if claims.UserId != nil {
		mapClaims["user_id"] = *claims.UserId
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)

	return token.SignedString(t.secret)
}

func (t *TokenManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}

		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	roomId, _ := mapClaims["room_id"].(string)
	username, _ := mapClaims["username"].(string)
	if roomId == "" || username == "" {
		return nil, errors.New("invalid token")
	}

	claims := Claims{
		RoomId:   roomId,
		Username: username,
	}
	if userId, ok := mapClaims["user_id"].(string); ok {
		claims.UserId = &userId
	}

	return &claims, nil
}
