package accounts

import (
	"context"

	"github.com/google/uuid"
)

const (
	// ActorAnonymous is recorded for writes made by unauthenticated callers
	ActorAnonymous = "anonymous"
	// ActorSystem is recorded for scheduled maintenance
	ActorSystem = "system"
)

var principalCtxKey = &contextKey{"principal"}
var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// Principal is the authenticated account behind a request.
type Principal struct {
	AccountID uuid.UUID
	Username  string
	Roles     []Role
	Claims    *TokenClaims
}

// HasRole reports whether the principal holds role
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	return HasRole(p.Roles, role)
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext finds the principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(*Principal)
	return p, ok && p != nil
}

// WithActor overrides the name written to the audit fields.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext resolves the audit actor: an explicit actor first, then
// the authenticated principal, then ActorAnonymous.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorCtxKey).(string); ok && actor != "" {
		return actor
	}
	if p, ok := PrincipalFromContext(ctx); ok && p.Username != "" {
		return p.Username
	}
	return ActorAnonymous
}
