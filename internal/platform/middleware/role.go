package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "pitchfund/pkg/domain"
	"pitchfund/pkg/requestcontext"
)

// RoleResolver resolves a caller's role from a bearer token. Implementations
// must be fail-closed: any failure resolves to RolePublic, never an error.
type RoleResolver interface {
	ResolveRole(ctx context.Context, bearerToken string) (id.Role, id.IdentityID)
}

// ResolveRole resolves the caller's role exactly once per request and stashes
// it in the context. Unlike a conventional auth middleware it never rejects:
// anonymous and unverifiable callers proceed as RolePublic so every downstream
// check applies the least-privileged path uniformly.
func ResolveRole(resolver RoleResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := ""
			if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				token = after
			}

			role, identityID := resolver.ResolveRole(ctx, token)
			if token != "" && role == id.RolePublic {
				logger.DebugContext(ctx, "credential resolved to public role",
					"request_id", requestcontext.RequestID(ctx),
				)
			}

			ctx = requestcontext.WithRole(ctx, role)
			if !identityID.IsNil() {
				ctx = requestcontext.WithIdentityID(ctx, identityID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
