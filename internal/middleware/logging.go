package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/demenago/devis-saas/internal/httpx"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging records method, path, status and duration for every request.
func Logging(log *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// Recover converts panics into a generic 500; details go to the log, never
// to the caller.
func Recover(log *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorw("panic recovered", "path", r.URL.Path, "panic", rec)
				httpx.JSONError(w, http.StatusInternalServerError, httpx.CodeInternalError, nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
