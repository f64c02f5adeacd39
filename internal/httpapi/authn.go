package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"verisyntra.org/internal/auth"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errBadScheme    = errors.New("invalid authorization scheme")
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	// RoleAdmin may manage the registry, models and any tenant's data.
	RoleAdmin = "admin"
)

var publicPaths = []string{
	"/health",
	"/metrics",
	"/v1/auth/token",
	"/v1/auth/refresh",
}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID   string
	TenantID string
	Role     string
	Token    string
	Claims   auth.Claims
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

type principalKey struct{}

// ContextWithPrincipal attaches a principal. Exported for tests.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// withAuth verifies the bearer token and the revocation list on every
// non-public path. When no token service is configured (tests that exercise
// handlers directly), auth is disabled.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, err.Error())
			return
		}
		claims, err := a.tokens.Verify(token, auth.TokenAccess)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}
		if a.blacklist != nil && a.blacklist.IsBlacklisted(r.Context(), token) {
			unauthorized(w, "token revoked")
			return
		}

		ctx := ContextWithPrincipal(r.Context(), Principal{
			UserID:   claims.Subject,
			TenantID: claims.TenantID,
			Role:     claims.Role,
			Token:    token,
			Claims:   claims,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates registry writes and model management.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if a.tokens == nil {
		return true
	}
	p, ok := principalFrom(r.Context())
	if !ok {
		unauthorized(w, "authentication required")
		return false
	}
	if !p.IsAdmin() {
		forbidden(w)
		return false
	}
	return true
}

// requireTenant checks that the caller may act on the path tenant. Admins
// may act across tenants.
func (a *API) requireTenant(w http.ResponseWriter, r *http.Request, tenantID string) bool {
	if a.tokens == nil {
		return true
	}
	p, ok := principalFrom(r.Context())
	if !ok {
		unauthorized(w, "authentication required")
		return false
	}
	if p.TenantID != tenantID && !p.IsAdmin() {
		forbidden(w)
		return false
	}
	return true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errBadScheme
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
