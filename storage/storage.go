package storage

import (
	"context"
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gramm/storage/cache"
	"gramm/storage/models"
	"gramm/storage/queries"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

type Manager struct {
	db        *gorm.DB
	tagsCache *cache.TagsCache
	now       func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now as the source of timestamps written by the manager.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithTagsCache(tagsCache *cache.TagsCache) Option {
	return func(m *Manager) { m.tagsCache = tagsCache }
}

func NewManager(db *gorm.DB, opts ...Option) *Manager {
	m := &Manager{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) DB(ctx context.Context) *gorm.DB {
	return m.db.WithContext(ctx)
}

func (m *Manager) Now() time.Time {
	return m.now()
}

func (m *Manager) TagsCache() *cache.TagsCache {
	return m.tagsCache
}

// ExecuteTransaction runs operation in a single transaction, committing when it
// returns nil.
func (m *Manager) ExecuteTransaction(ctx context.Context, operation func(tx *gorm.DB) error) error {
	err := m.db.WithContext(ctx).Transaction(operation)
	if err != nil && !IsDuplicate(err) && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrForbidden) {
		log.Warningf("Error committing transaction: %v", err)
	}
	return err
}

// CreateUserWithProfile inserts the user and its profile atomically.
func (m *Manager) CreateUserWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	if profile == nil {
		profile = &models.Profile{}
	}
	return m.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		if err := queries.CreateUser(tx, user); err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := queries.CreateProfile(tx, profile); err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
}

// EnsureProfile returns the user's profile, creating an empty one if missing.
func (m *Manager) EnsureProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	if _, err := m.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return queries.GetOrCreateProfile(m.DB(ctx), userID)
}

func (m *Manager) GetUser(ctx context.Context, id uint) (*models.User, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	user, err := queries.GetUser(m.DB(ctx), id)
	return user, translate(err)
}

func (m *Manager) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := queries.GetUserByUsername(m.DB(ctx), username)
	return user, translate(err)
}

func (m *Manager) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := queries.GetPost(m.DB(ctx), id)
	return post, translate(err)
}

// IsDuplicate reports whether err is a uniqueness violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// Translate maps gorm errors onto the storage taxonomy.
func Translate(err error) error {
	return translate(err)
}
