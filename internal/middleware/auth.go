// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/capitalize-ai/chat-orchestrator/internal/store"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// ParticipantIDKey is the context key for the authenticated participant.
	ParticipantIDKey ContextKey = "participant_id"
	// ScopesKey is the context key for JWT scopes.
	ScopesKey ContextKey = "scopes"
)

// ScopeAdmin grants cross-participant access to conversations.
const ScopeAdmin = "admin"

// Claims represents JWT claims. Subject carries the participant ID.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scope"`
}

// OptionalAuth validates a bearer token when one is presented. Anonymous
// requests pass through untouched; the chat surface is public and identity
// is only needed to bind a participant across devices or grant admin scope.
// A malformed or invalid token is still rejected.
func OptionalAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ParticipantIDKey, claims.Subject)
			ctx = context.WithValue(ctx, ScopesKey, claims.Scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticatedParticipant returns the token-bound participant ID, empty for
// anonymous requests.
func AuthenticatedParticipant(ctx context.Context) string {
	if v := ctx.Value(ParticipantIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetScopes gets scopes from context.
func GetScopes(ctx context.Context) []string {
	if v := ctx.Value(ScopesKey); v != nil {
		return v.([]string)
	}
	return nil
}

// HasScope checks if the context has a specific scope.
func HasScope(ctx context.Context, scope string) bool {
	for _, s := range GetScopes(ctx) {
		if s == scope {
			return true
		}
	}
	return false
}

// ActorFromContext builds the store actor for an authenticated request.
// claimed is the participant ID the request body or query named; a
// token-bound identity overrides it.
func ActorFromContext(ctx context.Context, claimed string) store.Actor {
	if authed := AuthenticatedParticipant(ctx); authed != "" {
		claimed = authed
	}
	return store.Actor{
		ParticipantID: claimed,
		Privileged:    HasScope(ctx, ScopeAdmin),
	}
}
