package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry: 署名は検証しない（検証はバックエンドの verify-token が行う）
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
