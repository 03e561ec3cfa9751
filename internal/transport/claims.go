package transport

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"livechat/internal/models"
)

// IdentityFromToken reads the user claims out of a bearer token without
// verifying its signature; the API verifies it on every request.
func IdentityFromToken(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := claimString(claims, "user_id")
	if id == "" {
		id = claimString(claims, "sub")
	}
	if id == "" {
		return models.Identity{}, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
	}

	role := models.Role(claimString(claims, "role"))
	if role == "" {
		role = models.RoleRegular
	}

	return models.Identity{
		UserID:   id,
		Username: claimString(claims, "username"),
		Role:     role,
	}, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}
