package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type contextKey string

const accountIDKey contextKey = "account_id"

// Middleware verifies bearer tokens against the identity provider and puts
// the purchaser's account ID into the request context. Verified tokens are
// cached in Redis so only the first request of a session pays the OIDC
// round trip.
func Middleware(issuer string, cache *RedisTokenCache) (func(http.Handler) http.Handler, error) {
	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}
			rawToken := parts[1]

			if accountID, err := cache.Get(r.Context(), rawToken); err == nil && accountID != "" {
				next.ServeHTTP(w, r.WithContext(withAccountID(r.Context(), accountID)))
				return
			}

			idToken, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			var claims struct {
				Sub string `json:"sub"`
			}
			if err := idToken.Claims(&claims); err != nil {
				http.Error(w, "failed to parse claims", http.StatusUnauthorized)
				return
			}

			// Best effort; a cache write failure only costs the next
			// request another verification.
			_ = cache.Set(r.Context(), rawToken, claims.Sub)

			next.ServeHTTP(w, r.WithContext(withAccountID(r.Context(), claims.Sub)))
		})
	}, nil
}

func withAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// AccountID extracts the authenticated account ID in handlers.
func AccountID(ctx context.Context) string {
	if id, ok := ctx.Value(accountIDKey).(string); ok {
		return id
	}
	return ""
}
