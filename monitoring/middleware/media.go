package middleware

import (
	"context"
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"gramm/media"
	"gramm/monitoring"
)

// MediaMiddleware records the outcome and latency of every media store call.
type MediaMiddleware struct {
	store media.Store
}

func (m *MediaMiddleware) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	timer := prometheus.NewTimer(monitoring.MediaOperationDuration.WithLabelValues("upload"))
	id, err := m.store.Upload(ctx, data, contentType)
	timer.ObserveDuration()

	monitoring.MediaOperations.WithLabelValues("upload", result(err)).Inc()
	return id, err
}

func (m *MediaMiddleware) Delete(ctx context.Context, externalID string) error {
	timer := prometheus.NewTimer(monitoring.MediaOperationDuration.WithLabelValues("delete"))
	err := m.store.Delete(ctx, externalID)
	timer.ObserveDuration()

	monitoring.MediaOperations.WithLabelValues("delete", result(err)).Inc()
	return err
}

func (m *MediaMiddleware) URL(externalID string) string {
	return m.store.URL(externalID)
}

// Unwrap returns the instrumented store.
func (m *MediaMiddleware) Unwrap() media.Store {
	return m.store
}

func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, media.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "failure"
	}
}

func NewMediaMiddleware(storeToWrap media.Store) *MediaMiddleware {
	return &MediaMiddleware{storeToWrap}
}
