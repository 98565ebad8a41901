// Package media stores image blobs outside the relational store.
package media

import (
	"context"
	"errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"sync"
	"time"
)

var ErrNotFound = errors.New("media not found")

type Store interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, externalID string) error
	URL(externalID string) string
}

// Upload is one raw file as received from a client.
type Upload struct {
	Data        []byte
	ContentType string
}

// Ref is anything that may point at a stored blob.
type Ref interface {
	ExternalID() (string, bool)
}

// ExternalIDs returns the ids of the refs that point at stored content.
func ExternalIDs[T Ref](refs ...T) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if id, ok := ref.ExternalID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// DeleteAll removes every id from store, at most concurrency at a time and each
// bounded by timeout. It never fails; the ids that could not be removed are
// returned so the caller can report them.
func DeleteAll(ctx context.Context, store Store, ids []string, timeout time.Duration, concurrency int) []string {
	if store == nil || len(ids) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var mu sync.Mutex
	var failed []string
	group := errgroup.Group{}
	group.SetLimit(concurrency)
	for _, id := range ids {
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			err := store.Delete(callCtx, id)
			if err != nil && !errors.Is(err, ErrNotFound) {
				log.Warningf("Error deleting media %s: %v", id, err)
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
			}
			return nil
		})
	}
	group.Wait()
	return failed
}
