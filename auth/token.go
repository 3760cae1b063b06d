package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"heritage/models"
)

// CookieName is the cookie carrying the signed credential.
const CookieName = "access_token"

// Claims embeds the per-user token version so that bumping the stored value
// invalidates every previously issued token without a blacklist.
type Claims struct {
	UserID       string `json:"id"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"isAdmin"`
	TokenVersion int    `json:"tokenVersion"`
	jwt.RegisteredClaims
}

func signToken(user *models.User, secret []byte) (string, error) {
	claims := Claims{
		UserID:       user.ID,
		Email:        user.Email,
		IsAdmin:      user.IsAdmin,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(nowFunc()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}
