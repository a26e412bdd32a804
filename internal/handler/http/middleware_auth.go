// Package http implements the HTTP transport layer of the keyguard backend.
// It provides middleware, route handlers, and request/response utilities for
// the REST API: JWT authentication, tracing, and request logging happen here
// before requests reach the service layer, and the single /api/call endpoint
// dispatches action-tagged payloads to the escrow and contact services.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/internal/service"
	"github.com/ojin-app/keyguard/internal/utils"
)

// withOptionalAuth attaches the caller's identity when a bearer token is
// present and lets anonymous requests through untouched. A token that is
// present but invalid is still a hard 401: silently downgrading a broken
// token to anonymous would mask client bugs. Handlers that need an identity
// check the context per action.
func (h *Handler) withOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx, err := h.contextWithIdentity(r.Context(), authHeader)
		if err != nil {
			log := logger.FromRequest(r)
			switch {
			case errors.Is(err, service.ErrTokenIsExpiredOrInvalid):
				log.Err(err).Msg("token expired or invalid")
				http.Error(w, service.ErrTokenIsExpiredOrInvalid.Error(), http.StatusUnauthorized)
			default:
				log.Err(err).Msg("error occurred during parsing token")
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// contextWithIdentity parses the bearer token of authHeader and returns ctx
// enriched with the authenticated user's ID under [utils.UserIDCtxKey], so
// that downstream handlers can retrieve it without re-parsing the token.
func (h *Handler) contextWithIdentity(ctx context.Context, authHeader string) (context.Context, error) {
	tokenString, err := getTokenFromAuthHeader(authHeader)
	if err != nil {
		return ctx, err
	}

	token, err := h.services.AuthService.ParseToken(ctx, tokenString)
	if err != nil {
		return ctx, err
	}

	return context.WithValue(ctx, utils.UserIDCtxKey, token.UserID), nil
}

// getTokenFromAuthHeader extracts the bearer token string from a raw
// "Authorization" HTTP header value of the standard form:
//
//	Authorization: <scheme> <token>
//
// It returns the following sentinel errors:
//   - [ErrInvalidAuthorizationHeader] — if the header contains fewer than
//     two space-separated parts (i.e. the token is missing entirely).
//   - [ErrEmptyToken] — if the second part exists but is an empty string.
func getTokenFromAuthHeader(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) < 2 {
		return "", ErrInvalidAuthorizationHeader
	}

	tokenString := parts[1]
	if tokenString == "" {
		return "", ErrEmptyToken
	}

	return tokenString, nil
}
