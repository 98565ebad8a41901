package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"gramm/monitoring"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const breakerName = "media-store"

type uploadResponse struct {
	ID string `json:"id"`
}

// HTTPStore talks to a remote blob service. Uploads are POSTed to the base
// URL and answered with {"id": ...}; deletes go to base URL + "/" + id.
// All calls pass through a circuit breaker so an unreachable service fails fast.
type HTTPStore struct {
	client    *http.Client
	baseURL   string
	publicURL string
	cb        *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPStore(baseURL, publicURL string, timeout time.Duration) *HTTPStore {
	monitoring.MediaBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infof("Circuit breaker %s changed from %s to %s", name, from, to)
			monitoring.MediaBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &HTTPStore{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
		cb:        cb,
	}
}

func (s *HTTPStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	body, err := s.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return s.do(req, http.StatusOK, http.StatusCreated)
	})
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("upload media: empty id in response")
	}
	return resp.ID, nil
}

func (s *HTTPStore) Delete(ctx context.Context, externalID string) error {
	_, err := s.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/"+url.PathEscape(externalID), nil)
		if err != nil {
			return nil, err
		}
		return s.do(req, http.StatusOK, http.StatusNoContent)
	})
	if err != nil {
		return fmt.Errorf("delete media %s: %w", externalID, err)
	}
	return nil
}

func (s *HTTPStore) URL(externalID string) string {
	return s.publicURL + "/" + url.PathEscape(externalID)
}

func (s *HTTPStore) do(req *http.Request, expected ...int) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	for _, code := range expected {
		if resp.StatusCode == code {
			return body, nil
		}
	}
	return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
