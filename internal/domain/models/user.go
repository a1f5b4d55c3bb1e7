package models

import (
	"context"

	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
	"github.com/Temutjin2k/ride-coordination/pkg/uuid"
)

// User — authenticated principal taken from the JWT claims. Token issuance
// belongs to the external auth service; here we only consume it.
type User struct {
	ID   uuid.UUID
	Role types.UserRole
}

func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == uuid.Nil
}

func AnonymousUser() *User {
	return &User{}
}

type userCtxKey struct{}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

func UserFromContext(ctx context.Context) *User {
	if u, ok := ctx.Value(userCtxKey{}).(*User); ok {
		return u
	}
	return nil
}
