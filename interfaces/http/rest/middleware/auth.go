package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"trackline-backend/pkg/auth"
)

// Authenticate validates the bearer token on each request and attaches
// the authenticated user to the request context
func Authenticate(validator *auth.JWTValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondUnauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondUnauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := validator.Validate(parts[1])
			if err != nil {
				respondUnauthorized(w, "Invalid token")
				return
			}

			ctx := auth.WithUser(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
