package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// Session is the identity carried by a token.
type Session struct {
	UserID   int64
	Username string
}

func NewToken(user models.User, secret []byte, duration time.Duration) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["uid"] = user.ID
	claims["username"] = user.Username
	claims["exp"] = time.Now().Add(duration).Unix()

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry and extracts the session.
func ParseToken(tokenString string, secret []byte) (Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Session{}, ErrInvalidToken
	}

	// JSON numbers decode as float64.
	uid, ok := claims["uid"].(float64)
	if !ok || uid <= 0 {
		return Session{}, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}
	username, _ := claims["username"].(string)

	return Session{UserID: int64(uid), Username: username}, nil
}
