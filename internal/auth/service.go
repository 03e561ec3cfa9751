package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"livechat/internal/config"
	"livechat/internal/models"
)

var (
	ErrMissingToken  = errors.New("missing token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingUserID = errors.New("token has no user id")
)

// Service verifies and issues the HS256 bearer tokens the chat API accepts.
type Service struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewService(cfg config.JWTConfig) *Service {
	return &Service{
		secret:    cfg.Secret,
		expiresIn: cfg.ExpiresIn,
		now:       time.Now,
	}
}

// BearerToken extracts the token from an "Authorization: Bearer ..." value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

func (s *Service) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Identify validates tokenString and returns the caller it describes.
func (s *Service) Identify(tokenString string) (models.Identity, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return models.Identity{}, err
	}
	return identityFromClaims(claims)
}

// GenerateToken signs a token for id that expires after the configured
// lifetime.
func (s *Service) GenerateToken(id models.Identity) (string, error) {
	if id.UserID == "" {
		return "", ErrMissingUserID
	}
	role := id.Role
	if role == "" {
		role = models.RoleRegular
	}
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":  id.UserID,
		"username": id.Username,
		"role":     string(role),
		"exp":      now.Add(s.expiresIn).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func identityFromClaims(claims jwt.MapClaims) (models.Identity, error) {
	id := claimString(claims, "user_id")
	if id == "" {
		id = claimString(claims, "sub")
	}
	if id == "" {
		return models.Identity{}, ErrMissingUserID
	}

	username := claimString(claims, "username")
	if username == "" {
		username = id
	}
	role := models.Role(claimString(claims, "role"))
	if role == "" {
		role = models.RoleRegular
	}
	return models.Identity{UserID: id, Username: username, Role: role}, nil
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
