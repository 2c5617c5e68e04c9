package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/taskimport/internal/logging"
)

// APIKey rejects requests whose X-API-Key header does not equal key.
// An empty key disables the check.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")

			status, code := 0, ""
			switch {
			case got == "":
				status, code = http.StatusUnauthorized, "AUTH001"
			case subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1:
				status, code = http.StatusForbidden, "AUTH002"
			}
			if status == 0 {
				next.ServeHTTP(w, r)
				return
			}

			logging.FromContext(r.Context()).Warn("auth: rejected request",
				"path", r.URL.Path,
				"method", r.Method,
				"code", code,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{
				"error": http.StatusText(status),
				"code":  code,
			})
		})
	}
}
