package auth

import (
	"context"

	"github.com/dowesd/dowesd/internal/users"
)

type userContextKey struct{}

// ContextWithUser stores the resolved current user in context.
func ContextWithUser(ctx context.Context, user *users.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the current user placed by RequireSignIn.
func UserFromContext(ctx context.Context) *users.User {
	user, _ := ctx.Value(userContextKey{}).(*users.User)
	return user
}
