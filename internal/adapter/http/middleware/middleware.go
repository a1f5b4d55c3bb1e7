package middleware

import (
	"context"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/pkg/logger"
)

type (
	TokenVerifier interface {
		Verify(ctx context.Context, token string) (*models.User, error)
	}

	Middleware struct {
		tokens TokenVerifier
		log    logger.Logger
	}
)

func NewMiddleware(tokens TokenVerifier, log logger.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		log:    log,
	}
}
