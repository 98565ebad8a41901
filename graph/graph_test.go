package graph

import (
	"github.com/stretchr/testify/require"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/storage/storagetest"
	"gramm/validation"
	"testing"
)

func countEdges(t *testing.T, manager *storage.Manager, followerID, followingID uint) int64 {
	t.Helper()
	var count int64
	err := manager.DB(t.Context()).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	require.NoError(t, err)
	return count
}

func TestFollowIsIdempotent(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	a := storagetest.CreateUser(t, manager, "a")
	b := storagetest.CreateUser(t, manager, "b")
	engine := NewEngine(manager)

	created, err := engine.Follow(t.Context(), a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, created)

	created, err = engine.Follow(t.Context(), a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.EqualValues(t, 1, countEdges(t, manager, a.ID, b.ID))
}

func TestFollowSelfIsRejected(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	a := storagetest.CreateUser(t, manager, "a")
	engine := NewEngine(manager)

	created, err := engine.Follow(t.Context(), a.ID, a.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Zero(t, countEdges(t, manager, a.ID, a.ID))
}

func TestFollowMissingTarget(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	a := storagetest.CreateUser(t, manager, "a")
	engine := NewEngine(manager)

	created, err := engine.Follow(t.Context(), a.ID, a.ID+100)
	require.NoError(t, err)
	require.False(t, created)
}

func TestUnfollow(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	a := storagetest.CreateUser(t, manager, "a")
	b := storagetest.CreateUser(t, manager, "b")
	engine := NewEngine(manager)

	removed, err := engine.Unfollow(t.Context(), a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, removed)

	_, err = engine.Follow(t.Context(), a.ID, b.ID)
	require.NoError(t, err)
	removed, err = engine.Unfollow(t.Context(), a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, removed)

	following, err := engine.IsFollowing(t.Context(), a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, following)
}

func TestIsFollowingInvalidTarget(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	a := storagetest.CreateUser(t, manager, "a")
	engine := NewEngine(manager)

	following, err := engine.IsFollowing(t.Context(), a.ID, 0)
	require.NoError(t, err)
	require.False(t, following)
}

func TestCounts(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	a := storagetest.CreateUser(t, manager, "a")
	b := storagetest.CreateUser(t, manager, "b")
	c := storagetest.CreateUser(t, manager, "c")
	engine := NewEngine(manager)

	for _, pair := range [][2]uint{{a.ID, c.ID}, {b.ID, c.ID}, {c.ID, a.ID}} {
		_, err := engine.Follow(t.Context(), pair[0], pair[1])
		require.NoError(t, err)
	}

	followers, err := engine.FollowersCount(t.Context(), c.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, followers)

	following, err := engine.FollowingCount(t.Context(), c.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, following)
}

func TestFollowersNewestFirst(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	target := storagetest.CreateUser(t, manager, "target")
	engine := NewEngine(manager)

	var names []string
	for _, name := range []string{"first", "second", "third"} {
		user := storagetest.CreateUser(t, manager, name)
		_, err := engine.Follow(t.Context(), user.ID, target.ID)
		require.NoError(t, err)
		names = append([]string{name}, names...)
	}

	page, err := engine.Followers(t.Context(), target.ID, storage.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.True(t, page.HasNext)
	require.Len(t, page.Users, 2)
	require.Equal(t, names[0], page.Users[0].Username)
	require.Equal(t, names[1], page.Users[1].Username)
	require.NotNil(t, page.Users[0].Profile)

	page, err = engine.Followers(t.Context(), target.ID, storage.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	require.False(t, page.HasNext)
	require.Len(t, page.Users, 1)
	require.Equal(t, names[2], page.Users[0].Username)
}

func TestToggleFollow(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	a := storagetest.CreateUser(t, manager, "a")
	storagetest.CreateUser(t, manager, "b")
	engine := NewEngine(manager)

	state, err := engine.ToggleFollow(t.Context(), a.ID, "b")
	require.NoError(t, err)
	require.Equal(t, FollowState{IsFollowing: true, FollowersCount: 1}, state)

	state, err = engine.ToggleFollow(t.Context(), a.ID, "b")
	require.NoError(t, err)
	require.Equal(t, FollowState{IsFollowing: false, FollowersCount: 0}, state)

	_, err = engine.ToggleFollow(t.Context(), a.ID, "a")
	require.True(t, validation.IsValidationError(err))

	_, err = engine.ToggleFollow(t.Context(), a.ID, "nobody")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestConcurrentFollowCreatesOneEdge(t *testing.T) {
	manager, _ := storagetest.NewSharedManager(t, 8)
	a := storagetest.CreateUser(t, manager, "a")
	b := storagetest.CreateUser(t, manager, "b")
	engine := NewEngine(manager)

	const workers = 16
	created := make([]bool, workers)
	errs := storagetest.Parallel(workers, func(i int) error {
		var err error
		created[i], err = engine.Follow(t.Context(), a.ID, b.ID)
		return err
	})

	createdCount := 0
	for i, err := range errs {
		require.NoError(t, err)
		if created[i] {
			createdCount++
		}
	}
	require.Equal(t, 1, createdCount)
	require.EqualValues(t, 1, countEdges(t, manager, a.ID, b.ID))

	followers, err := engine.FollowersCount(t.Context(), b.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, followers)
}
