package jwt

import (
	"fmt"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/domain/models"
	"github.com/golang-jwt/jwt/v4"
)

// Session is the identity carried by a signed session token.
type Session struct {
	UserID   string
	Username string
}

func NewToken(user *models.User, jwtSecret string, duration time.Duration) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["uid"] = user.ID
	claims["username"] = user.Username
	claims["exp"] = time.Now().Add(duration).Unix()

	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ParseToken(tokenString string, secret string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	uid, _ := claims["uid"].(string)
	username, _ := claims["username"].(string)
	if uid == "" {
		return nil, fmt.Errorf("token has no user id")
	}

	return &Session{UserID: uid, Username: username}, nil
}
