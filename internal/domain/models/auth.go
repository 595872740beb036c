package models

import (
	"context"

	"github.com/ridecore/dispatch/internal/domain/types"
	"github.com/ridecore/dispatch/pkg/uuid"
)

// AuthUser is the identity carried by a verified bearer token: a user
// id and the role claim that gates route access.
type AuthUser struct {
	UserID uuid.UUID
	Role   types.UserRole
}

func (u AuthUser) IsAnonymous() bool { return u == AuthUser{} }

type authUserKey struct{}

func WithUser(ctx context.Context, u AuthUser) context.Context {
	return context.WithValue(ctx, authUserKey{}, u)
}

// UserFromContext returns the zero AuthUser (anonymous) if none was set.
func UserFromContext(ctx context.Context) AuthUser {
	u, _ := ctx.Value(authUserKey{}).(AuthUser)
	return u
}
