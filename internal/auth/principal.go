package auth

import (
	"context"
	"strings"
)

// Principal is the authenticated admin user of a request.
type Principal struct {
	UserID   string
	Username string
	Roles    []string
}

type contextKey string

const principalContextKey contextKey = "principal"

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// FromContext returns the principal of ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// Policy maps roles to grants. A grant is a permission ("LIST"), a permission
// scoped to one admin code ("user.DELETE"), all permissions of an admin
// ("user.*"), or everything ("*").
type Policy struct {
	roles map[string][]string
}

func NewPolicy(roles map[string][]string) *Policy {
	normalized := make(map[string][]string, len(roles))
	for role, grants := range roles {
		for _, g := range grants {
			normalized[role] = append(normalized[role], strings.ToUpper(strings.TrimSpace(g)))
		}
	}
	return &Policy{roles: normalized}
}

// Allows reports whether any role of p grants permission on the admin code.
func (pol *Policy) Allows(p Principal, code, permission string) bool {
	code = strings.ToUpper(code)
	permission = strings.ToUpper(permission)
	for _, role := range p.Roles {
		for _, g := range pol.roles[role] {
			switch g {
			case "*", permission, code + ".*", code + "." + permission:
				return true
			}
		}
	}
	return false
}

// Granted checks permission for the principal carried by ctx.
func (pol *Policy) Granted(ctx context.Context, code, permission string) bool {
	p, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return pol.Allows(p, code, permission)
}
