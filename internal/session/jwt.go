package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidToken is returned when an access token has no readable expiry.
var ErrInvalidToken = errors.New("invalid access token")

// ExpiryFromJWT reads the exp claim from a JWT without verifying it; the
// backend is the authority on validity.
func ExpiryFromJWT(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return time.Time{}, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return time.Time{}, ErrInvalidToken
	}

	var claims struct {
		Exp float64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Exp <= 0 {
		return time.Time{}, ErrInvalidToken
	}

	sec := int64(claims.Exp)
	nsec := int64((claims.Exp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec), nil
}
