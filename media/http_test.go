package media

import (
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPStore(t *testing.T) {
	var deleted atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			if string(body) != "blob" || r.Header.Get("Content-Type") != "image/jpeg" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"abc"}`))
		case http.MethodDelete:
			if r.URL.Path == "/missing" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			deleted.Store(strings.TrimPrefix(r.URL.Path, "/"))
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(server.Close)

	store := NewHTTPStore(server.URL, "https://cdn.example.com/", time.Second)
	id, err := store.Upload(t.Context(), []byte("blob"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "abc", id)
	require.Equal(t, "https://cdn.example.com/abc", store.URL(id))

	require.NoError(t, store.Delete(t.Context(), id))
	require.Equal(t, "abc", deleted.Load())
	require.ErrorIs(t, store.Delete(t.Context(), "missing"), ErrNotFound)
}

func TestHTTPStoreBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	store := NewHTTPStore(server.URL, server.URL, time.Second)
	for i := 0; i < 8; i++ {
		require.Error(t, store.Delete(t.Context(), "x"))
	}
	require.EqualValues(t, 5, hits.Load())
}
