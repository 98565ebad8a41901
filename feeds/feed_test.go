package feeds

import (
	"github.com/stretchr/testify/require"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/storage/queries"
	"gramm/storage/storagetest"
	"gramm/tags"
	"testing"
	"time"
)

func follow(t *testing.T, manager *storage.Manager, followerID, followingID uint) {
	t.Helper()
	_, err := queries.InsertFollow(manager.DB(t.Context()), followerID, followingID, manager.Now())
	require.NoError(t, err)
}

func itemIDs(items []Item) []uint {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestGlobalPagination(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	author := storagetest.CreateUser(t, manager, "author")
	var created []uint
	for i := 0; i < 15; i++ {
		created = append(created, storagetest.CreatePost(t, manager, author.ID, "post").ID)
	}
	composer := NewComposer(manager, 12)

	first, err := composer.Global(t.Context(), 0, storage.Page{Number: 1})
	require.NoError(t, err)
	require.EqualValues(t, 15, first.Total)
	require.True(t, first.HasNext)
	require.Len(t, first.Items, 12)
	for i, item := range first.Items {
		require.Equal(t, created[14-i], item.ID)
	}

	second, err := composer.Global(t.Context(), 0, storage.Page{Number: 2})
	require.NoError(t, err)
	require.False(t, second.HasNext)
	require.Equal(t, []uint{created[2], created[1], created[0]}, itemIDs(second.Items))
}

func TestGlobalTieBreakByID(t *testing.T) {
	manager, clock := storagetest.NewManager(t)
	author := storagetest.CreateUser(t, manager, "author")
	clock.Step = 0
	a := storagetest.CreatePost(t, manager, author.ID, "a")
	b := storagetest.CreatePost(t, manager, author.ID, "b")
	c := storagetest.CreatePost(t, manager, author.ID, "c")
	composer := NewComposer(manager, 2)

	first, err := composer.Global(t.Context(), 0, storage.Page{Number: 1})
	require.NoError(t, err)
	second, err := composer.Global(t.Context(), 0, storage.Page{Number: 2})
	require.NoError(t, err)
	require.Equal(t, []uint{c.ID, b.ID}, itemIDs(first.Items))
	require.Equal(t, []uint{a.ID}, itemIDs(second.Items))
}

func TestGlobalAnnotatesViewer(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	viewer := storagetest.CreateUser(t, manager, "viewer")
	followed := storagetest.CreateUser(t, manager, "followed")
	stranger := storagetest.CreateUser(t, manager, "stranger")
	follow(t, manager, viewer.ID, followed.ID)

	liked := storagetest.CreatePost(t, manager, followed.ID, "liked", "img-1", "img-2")
	other := storagetest.CreatePost(t, manager, stranger.ID, "other")
	_, err := queries.InsertLike(manager.DB(t.Context()), viewer.ID, liked.ID, manager.Now())
	require.NoError(t, err)

	response, err := NewComposer(manager, 12).Global(t.Context(), viewer.ID, storage.Page{})
	require.NoError(t, err)
	require.Equal(t, map[uint]bool{liked.ID: true}, response.LikedPostIDs)
	require.Equal(t, map[uint]bool{followed.ID: true}, response.FollowedAuthorIDs)

	byID := map[uint]Item{}
	for _, item := range response.Items {
		byID[item.ID] = item
	}
	require.True(t, byID[liked.ID].Liked)
	require.True(t, byID[liked.ID].AuthorFollowed)
	require.EqualValues(t, 1, byID[liked.ID].LikesCount)
	require.Len(t, byID[liked.ID].Images, 2)
	require.Equal(t, "followed", byID[liked.ID].Author.Username)
	require.False(t, byID[other.ID].Liked)
	require.False(t, byID[other.ID].AuthorFollowed)
}

func TestNewsContainsFollowedAndOwnPosts(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	viewer := storagetest.CreateUser(t, manager, "viewer")
	followed := storagetest.CreateUser(t, manager, "followed")
	stranger := storagetest.CreateUser(t, manager, "stranger")
	follow(t, manager, viewer.ID, followed.ID)

	own := storagetest.CreatePost(t, manager, viewer.ID, "own")
	storagetest.CreatePost(t, manager, stranger.ID, "hidden")
	theirs := storagetest.CreatePost(t, manager, followed.ID, "theirs")

	response, err := NewComposer(manager, 12).News(t.Context(), viewer.ID, storage.Page{})
	require.NoError(t, err)
	require.Equal(t, []uint{theirs.ID, own.ID}, itemIDs(response.Items))
	require.EqualValues(t, 1, response.FollowingCount)

	profile, err := queries.GetProfile(manager.DB(t.Context()), viewer.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.LastFeedVisit)
}

func TestNewsAnonymous(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	author := storagetest.CreateUser(t, manager, "author")
	storagetest.CreatePost(t, manager, author.ID, "post")

	response, err := NewComposer(manager, 12).News(t.Context(), 0, storage.Page{})
	require.NoError(t, err)
	require.Empty(t, response.Items)
	require.Zero(t, response.FollowingCount)
}

func TestUnreadCountScenario(t *testing.T) {
	manager, clock := storagetest.NewManager(t)
	x := storagetest.CreateUser(t, manager, "x")
	y := storagetest.CreateUser(t, manager, "y")
	follow(t, manager, x.ID, y.ID)
	composer := NewComposer(manager, 12)

	storagetest.CreatePost(t, manager, y.ID, "Hello #sunset")
	storagetest.CreatePost(t, manager, x.ID, "my own post")
	unread, err := composer.UnreadCount(t.Context(), x.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)

	_, err = composer.News(t.Context(), x.ID, storage.Page{})
	require.NoError(t, err)
	unread, err = composer.UnreadCount(t.Context(), x.ID)
	require.NoError(t, err)
	require.Zero(t, unread)

	clock.Advance(time.Minute)
	storagetest.CreatePost(t, manager, y.ID, "second")
	unread, err = composer.UnreadCount(t.Context(), x.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)
}

func TestUnreadCountFollowingNobody(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	x := storagetest.CreateUser(t, manager, "x")
	storagetest.CreatePost(t, manager, x.ID, "own")

	unread, err := NewComposer(manager, 12).UnreadCount(t.Context(), x.ID)
	require.NoError(t, err)
	require.Zero(t, unread)
}

func TestByTag(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	author := storagetest.CreateUser(t, manager, "author")
	tagged := storagetest.CreatePost(t, manager, author.ID, "#sunset")
	storagetest.CreatePost(t, manager, author.ID, "#sunrise")
	sync := tags.NewSynchronizer(manager)
	db := manager.DB(t.Context())
	for _, post := range []models.Post{tagged} {
		_, err := sync.SyncPostTags(t.Context(), db, post.ID, post.Caption)
		require.NoError(t, err)
	}
	composer := NewComposer(manager, 12)

	page, err := composer.ByTag(t.Context(), 0, "sunset", storage.Page{})
	require.NoError(t, err)
	require.Equal(t, "sunset", page.Tag.Name)
	require.Equal(t, []uint{tagged.ID}, itemIDs(page.Posts.Items))
	require.Equal(t, "sunset", page.Posts.Items[0].Tags[0].Slug)

	_, err = composer.ByTag(t.Context(), 0, "missing", storage.Page{})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestByAuthor(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	viewer := storagetest.CreateUser(t, manager, "viewer")
	author := storagetest.CreateUser(t, manager, "author")
	follow(t, manager, viewer.ID, author.ID)
	storagetest.CreatePost(t, manager, author.ID, "one")
	storagetest.CreatePost(t, manager, author.ID, "two")
	composer := NewComposer(manager, 12)

	page, err := composer.ByAuthor(t.Context(), viewer.ID, "author", storage.Page{})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.PostsCount)
	require.EqualValues(t, 1, page.FollowersCount)
	require.Zero(t, page.FollowingCount)
	require.True(t, page.IsFollowing)
	require.False(t, page.IsOwner)

	_, err = composer.ByAuthor(t.Context(), viewer.ID, "ghost", storage.Page{})
	require.ErrorIs(t, err, storage.ErrNotFound)
}
