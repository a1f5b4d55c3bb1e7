package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-coordination/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpToken     = errors.New("token expired")
)

// TokenService проверяет access-токены, выданные внешним auth-сервисом.
// This core never issues tokens, it only verifies them.
type TokenService struct {
	secret string
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: secret}
}

// Verify validates the JWT and returns the principal it describes.
func (s *TokenService) Verify(ctx context.Context, token string) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "verify_token")

	parsedToken, err := jwt.ParseWithClaims(token, jwt.MapClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return []byte(s.secret), nil
	})
	if err != nil || !parsedToken.Valid {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	mc, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	userIDStr, _ := mc["user_id"].(string)
	if userIDStr == "" {
		return nil, wrap.Error(ctx, fmt.Errorf("invalid or missing 'user_id' in token claims"))
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("invalid 'user_id' in token claims"))
	}

	role, _ := mc["role"].(string)

	expFloat, ok := mc["exp"].(float64)
	if !ok {
		return nil, wrap.Error(ctx, fmt.Errorf("invalid or missing 'exp' in token claims"))
	}
	if time.Now().UTC().After(time.Unix(int64(expFloat), 0)) {
		return nil, wrap.Error(ctx, ErrExpToken)
	}

	return &models.User{
		ID:   userID,
		Role: types.UserRole(role),
	}, nil
}
