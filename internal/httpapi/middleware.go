package httpapi

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		next.ServeHTTP(w, r)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"from", r.RemoteAddr, "dur", time.Since(start))
	})
}
