package middleware

import (
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"net/http"
	"time"
)

// ServerMiddleware writes one structured log line per request.
type ServerMiddleware struct {
	handler http.Handler
}

func (m *ServerMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

	m.handler.ServeHTTP(ww, r)

	entry := log.WithFields(log.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     ww.Status(),
		"bytes":      ww.BytesWritten(),
		"duration":   time.Since(start).String(),
		"request_id": chimiddleware.GetReqID(r.Context()),
	})
	if ww.Status() >= http.StatusInternalServerError {
		entry.Warn("request failed")
	} else {
		entry.Debug("request served")
	}
}

func NewServerMiddleware(handlerToWrap http.Handler) *ServerMiddleware {
	return &ServerMiddleware{handlerToWrap}
}
