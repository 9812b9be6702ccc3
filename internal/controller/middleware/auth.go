// Package middleware contains HTTP middleware for the API server.
package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gomokuplane/internal/auth"
	"gomokuplane/pkg/api"
)

// AdminAuth requires "Authorization: Bearer <token>" on every request.
// token may be plaintext or "sha256:<hex digest>". An empty token disables the check.
func AdminAuth(token string) func(http.Handler) http.Handler {
	verifier := auth.NewVerifier(token)
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, "Missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			if !verifier.Verify(parts[1]) {
				writeError(w, "Invalid authorization token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
