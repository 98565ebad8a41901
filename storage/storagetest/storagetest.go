// Package storagetest provides SQLite-backed stores for package tests.
package storagetest

import (
	"fmt"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gramm/storage"
	"gramm/storage/models"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// Clock advances by Step on every reading so that consecutive writes get
// strictly increasing timestamps.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	Step    time.Duration
}

func NewClock() *Clock {
	return &Clock{
		current: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Step:    time.Second,
	}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(c.Step)
	return c.current
}

// Advance moves the clock forward without returning a reading.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	return openDB(t, dsn, 1)
}

// NewSharedDB opens a file-backed database that serves up to conns
// connections at once, for tests that write from several goroutines.
// Transactions take the write lock when they begin and writers wait for
// each other instead of failing with SQLITE_BUSY.
func NewSharedDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gramm.db")
	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate", path)
	return openDB(t, dsn, conns)
}

func openDB(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.Migrate(db, nil); err != nil {
		t.Fatalf("migrating database: %v", err)
	}
	return db
}

func NewManager(t *testing.T) (*storage.Manager, *Clock) {
	t.Helper()
	clock := NewClock()
	return storage.NewManager(NewDB(t), storage.WithClock(clock.Now)), clock
}

// NewSharedManager is NewManager over NewSharedDB.
func NewSharedManager(t *testing.T, conns int) (*storage.Manager, *Clock) {
	t.Helper()
	clock := NewClock()
	return storage.NewManager(NewSharedDB(t, conns), storage.WithClock(clock.Now)), clock
}

// Parallel runs fn from n goroutines released at the same moment and
// returns their errors in goroutine order.
func Parallel(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var group errgroup.Group
	for i := 0; i < n; i++ {
		group.Go(func() error {
			<-start
			errs[i] = fn(i)
			return nil
		})
	}
	close(start)
	group.Wait()
	return errs
}

func CreateUser(t *testing.T, manager *storage.Manager, username string) models.User {
	t.Helper()
	now := manager.Now()
	user := models.User{
		Email:     username + "@example.com",
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := manager.CreateUserWithProfile(t.Context(), &user, nil); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return user
}

func CreatePost(t *testing.T, manager *storage.Manager, authorID uint, caption string, imageIDs ...string) models.Post {
	t.Helper()
	now := manager.Now()
	post := models.Post{AuthorID: authorID, Caption: caption, CreatedAt: now, UpdatedAt: now}
	err := manager.DB(t.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Images").Create(&post).Error; err != nil {
			return err
		}
		for i, imageID := range imageIDs {
			image := models.PostImage{PostID: post.ID, ImageID: imageID, Order: i}
			if err := tx.Omit("Post").Create(&image).Error; err != nil {
				return err
			}
			post.Images = append(post.Images, image)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("creating post: %v", err)
	}
	return post
}
