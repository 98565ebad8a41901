package media

import (
	"context"
	"errors"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type flakyStore struct {
	*MemoryStore
	mu      sync.Mutex
	failing map[string]bool
	calls   []string
}

func (s *flakyStore) Delete(ctx context.Context, externalID string) error {
	s.mu.Lock()
	s.calls = append(s.calls, externalID)
	fail := s.failing[externalID]
	s.mu.Unlock()
	if fail {
		return errors.New("unreachable")
	}
	return s.MemoryStore.Delete(ctx, externalID)
}

type slowStore struct {
	*MemoryStore
}

func (s slowStore) Delete(ctx context.Context, externalID string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDeleteAllReportsFailures(t *testing.T) {
	memory := NewMemoryStore("/media")
	var ids []string
	for i := 0; i < 4; i++ {
		id, err := memory.Upload(t.Context(), []byte{byte(i)}, "image/jpeg")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	store := &flakyStore{MemoryStore: memory, failing: map[string]bool{ids[1]: true}}

	failed := DeleteAll(t.Context(), store, append(ids, "already-gone"), time.Second, 2)
	require.Equal(t, []string{ids[1]}, failed)
	require.Equal(t, 1, memory.Len())
	require.True(t, memory.Has(ids[1]))

	require.Len(t, store.calls, 5)
}

func TestDeleteAllHonoursTimeout(t *testing.T) {
	store := slowStore{NewMemoryStore("/media")}

	start := time.Now()
	failed := DeleteAll(t.Context(), store, []string{"a", "b"}, 20*time.Millisecond, 1)
	require.ElementsMatch(t, []string{"a", "b"}, failed)
	require.Less(t, time.Since(start), 2*time.Second)
}

type avatar struct{ id string }

func (a avatar) ExternalID() (string, bool) { return a.id, a.id != "" }

func TestExternalIDs(t *testing.T) {
	require.Equal(t, []string{"x", "y"}, ExternalIDs(avatar{"x"}, avatar{""}, avatar{"y"}))
	require.Empty(t, ExternalIDs[avatar]())
}

func TestBadgerStore(t *testing.T) {
	store, err := OpenBadgerStore("", "/media")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	id, err := store.Upload(t.Context(), []byte("blob"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "/media/"+id, store.URL(id))

	data, contentType, err := store.Get(t.Context(), id)
	require.NoError(t, err)
	require.Equal(t, []byte("blob"), data)
	require.Equal(t, "image/jpeg", contentType)

	require.NoError(t, store.Delete(t.Context(), id))
	require.ErrorIs(t, store.Delete(t.Context(), id), ErrNotFound)
	_, _, err = store.Get(t.Context(), id)
	require.ErrorIs(t, err, ErrNotFound)
}
