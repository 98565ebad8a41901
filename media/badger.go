package media

import (
	"context"
	"errors"
	"fmt"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	blobKeyPrefix = "blob:"
	metaKeyPrefix = "meta:"
)

type blobMeta struct {
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// BadgerStore keeps blobs in an embedded BadgerDB, for single node deployments.
type BadgerStore struct {
	db      *badger.DB
	baseURL string
}

func OpenBadgerStore(path, baseURL string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadgerStore(db, baseURL), nil
}

func NewBadgerStore(db *badger.DB, baseURL string) *BadgerStore {
	return &BadgerStore{db: db, baseURL: baseURL}
}

func (s *BadgerStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	id := uuid.NewString()
	meta, err := json.Marshal(blobMeta{ContentType: contentType, Size: len(data)})
	if err != nil {
		return "", fmt.Errorf("marshal blob meta: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(blobKeyPrefix+id), data); err != nil {
			return fmt.Errorf("set blob: %w", err)
		}
		if err := txn.Set([]byte(metaKeyPrefix+id), meta); err != nil {
			return fmt.Errorf("set blob meta: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *BadgerStore) Delete(ctx context.Context, externalID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(metaKeyPrefix + externalID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := txn.Delete([]byte(blobKeyPrefix + externalID)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaKeyPrefix + externalID))
	})
}

// Get returns the blob and its content type.
func (s *BadgerStore) Get(ctx context.Context, externalID string) ([]byte, string, error) {
	var data []byte
	var meta blobMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKeyPrefix + externalID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}
		item, err = txn.Get([]byte(blobKeyPrefix + externalID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return data, meta.ContentType, nil
}

func (s *BadgerStore) URL(externalID string) string {
	return s.baseURL + "/" + externalID
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
