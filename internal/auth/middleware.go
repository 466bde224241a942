package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oggyb/catmatch/internal/logger"
)

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal set by Middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UID != ""
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware rejects requests without a credential (401) or with one the
// verifier refuses (403). Accepted requests carry the principal and a
// principal-scoped logger in their context.
func Middleware(v Verifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			p, err := v.Verify(r.Context(), token)
			if err != nil {
				log.Debug("token rejected", "path", r.URL.Path, "err", err)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ctx := WithPrincipal(r.Context(), p)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx, log).With("uid", p.UID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
