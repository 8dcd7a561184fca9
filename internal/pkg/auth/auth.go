package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// contextKey is a custom type used for storing values in a context without risking collisions.
type contextKey string

const (
	contextUserID  contextKey = "contextUserID"
	contextTokenID contextKey = "contextTokenID"
)

// Business codes and messages written by the middleware.
const (
	CodeUnauthorized   = 401
	MessageNotLoggedIn = "未登录"
	MessageExpired     = "登录已过期，请重新登录"
)

// UserID returns the authenticated user id stored by the middleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextUserID).(string)
	return id, ok && id != ""
}

// TokenID returns the id of the token that authenticated the request.
func TokenID(ctx context.Context) string {
	id, _ := ctx.Value(contextTokenID).(string)
	return id
}

// Middleware requires a valid bearer token. A request without one gets a
// 200 response with business code 401; a token that fails verification or
// was revoked gets HTTP 401.
func (i *Issuer) Middleware(revoked func(tokenID string) bool) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" {
				writeEnvelope(w, http.StatusOK, MessageNotLoggedIn)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
				writeEnvelope(w, http.StatusOK, MessageNotLoggedIn)
				return
			}

			claims, err := i.ParseToken(strings.TrimSpace(parts[1]))
			if err != nil || (revoked != nil && revoked(claims.ID)) {
				writeEnvelope(w, http.StatusUnauthorized, MessageExpired)
				return
			}

			ctx := context.WithValue(r.Context(), contextUserID, claims.UserID)
			ctx = context.WithValue(ctx, contextTokenID, claims.ID)
			h.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

func writeEnvelope(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"code": CodeUnauthorized, "message": message})
}
