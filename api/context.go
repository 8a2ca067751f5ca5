package api

import (
	"context"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/identity"
)

// ctxWithUser attaches the authenticated user to the request context.
func ctxWithUser(ctx context.Context, user *identity.User) context.Context {
	return identity.ContextWithUser(ctx, user)
}

// ctxGetUser retrieves the authenticated user from the context
func ctxGetUser(ctx context.Context) (*identity.User, error) {
	user := identity.UserFromContext(ctx)
	if user == nil {
		return nil, errs.Unauthenticated
	}
	return user, nil
}
