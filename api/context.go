package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/identity"
)

type keyType string

const principalKey keyType = "principal"

// ctxWithPrincipal adds the authenticated caller to the context
func ctxWithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// ctxGetPrincipal retrieves the authenticated caller from the context
func ctxGetPrincipal(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(principalKey).(identity.Principal)
	return p, ok
}

// callerID is the authenticated user's id.
func callerID(r *http.Request) (uuid.UUID, error) {
	p, ok := ctxGetPrincipal(r.Context())
	if !ok || p.UserID == uuid.Nil {
		return uuid.Nil, errs.NewMissingTokenError()
	}
	return p.UserID, nil
}
