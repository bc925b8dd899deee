package middleware

import (
	"context"
	"net/http"

	"scribeline/internal/models"
)

type contextKey string

// CallerContextKey is the key for the caller identity in the context.
const CallerContextKey = contextKey("caller")

// CallerMiddleware builds the explicit Caller value every downstream
// layer receives. Token validation happens upstream (the auth gateway
// strips Authorization and asserts X-User-ID); anonymous callers present
// the anon id issued to them.
func CallerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := models.Caller{}
		if userID := r.Header.Get("X-User-ID"); userID != "" {
			caller.UserID = &userID
			caller.Authenticated = true
		}
		if anonID := r.Header.Get("X-Anon-ID"); anonID != "" {
			caller.AnonID = &anonID
		}

		ctx := context.WithValue(r.Context(), CallerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFrom extracts the caller placed by CallerMiddleware.
func CallerFrom(r *http.Request) models.Caller {
	caller, _ := r.Context().Value(CallerContextKey).(models.Caller)
	return caller
}
