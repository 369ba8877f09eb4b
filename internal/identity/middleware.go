package identity

import (
	"log/slog"
	"net/http"
)

// Middleware resolves the acting user from basic auth and stores it in the
// request context. Requests without valid credentials are rejected before
// they reach any mutating handler.
func Middleware(dir Directory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}
			user, err := dir.Authenticate(email, password)
			if err != nil {
				if logger != nil {
					logger.Warn("authentication failed", slog.String("email", email))
				}
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="procureflow"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
