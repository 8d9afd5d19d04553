package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"ReportMapper/api/constants"
	"ReportMapper/internal/logger"
)

const maxLoggedBody = 512

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

// responseWriter wraps http.ResponseWriter to capture status code and the
// start of error bodies.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode >= 400 && rw.body.Len() < maxLoggedBody {
		rw.body.Write(b[:min(len(b), maxLoggedBody-rw.body.Len())])
	}
	return rw.ResponseWriter.Write(b)
}

// Flush keeps the event stream working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// requestLogger writes one line per request, and an audit line for errors.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		fields := logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"client":   extractClientIP(r),
			"status":   rw.statusCode,
			"duration": time.Since(start).String(),
		}
		if rw.statusCode >= 400 {
			fields["body"] = rw.body.String()
			logger.Audit("[Gateway][ERROR] request failed", fields)
			return
		}
		logger.L().WithFields(fields).Info("[Gateway] request served")
	})
}

// recoverer turns a handler panic into a 500.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				logger.L().WithFields(logrus.Fields{"path": r.URL.Path, "panic": p}).Error("[Gateway] handler panicked")
				RespondWithError(w, http.StatusInternalServerError, constants.ErrInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	logger.Audit("[Gateway] [Error] route not found", logrus.Fields{
		"path":   r.URL.Path,
		"client": extractClientIP(r),
	})
	RespondWithError(w, http.StatusNotFound, constants.ErrRouteNotFound)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
}
