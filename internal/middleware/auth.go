package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// AdminCookie can carry the token for browsers opening /logs directly.
const AdminCookie = "admin_token"

// AuthMiddleware guards operator endpoints (logs, request history).
// An empty token disables them entirely; otherwise the request must carry
// "Authorization: Bearer <token>" or the admin_token cookie.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			writeJSONError(w, "Operator endpoints are disabled.", http.StatusForbidden)
			return
		}

		if !tokenMatches(requestToken(r), token) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="webdetect"`)
			writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if bearer, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(bearer)
		}
		return ""
	}
	if cookie, err := r.Cookie(AdminCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func tokenMatches(got, want string) bool {
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
