package server

import (
	"context"
	"github.com/go-chi/chi/v5"
	"gramm/media"
	"net/http"
	"strconv"
)

// blobSource is implemented by stores that keep blobs in process.
type blobSource interface {
	Get(ctx context.Context, externalID string) ([]byte, string, error)
}

type unwrapper interface {
	Unwrap() media.Store
}

func localSource(store media.Store) (blobSource, bool) {
	for store != nil {
		if source, ok := store.(blobSource); ok {
			return source, true
		}
		wrapped, ok := store.(unwrapper)
		if !ok {
			break
		}
		store = wrapped.Unwrap()
	}
	return nil, false
}

func (s *Server) getMedia(w http.ResponseWriter, r *http.Request) {
	source, ok := localSource(s.Store)
	if !ok {
		sendError(w, http.StatusNotFound, "media is served by the remote store")
		return
	}
	data, contentType, err := source.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(data)
}
