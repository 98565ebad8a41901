package tasks

import (
	"github.com/stretchr/testify/require"
	"gramm/storage/models"
	"gramm/storage/queries"
	"gramm/storage/storagetest"
	"testing"
)

func postTagSlugs(t *testing.T, syncer *TagSyncer, postID uint) []string {
	t.Helper()
	byPost, err := queries.TagsByPosts(syncer.manager.DB(t.Context()), []uint{postID})
	require.NoError(t, err)
	slugs := []string{}
	for _, tag := range byPost[postID] {
		slugs = append(slugs, tag.Slug)
	}
	return slugs
}

func TestSyncTags(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	author := storagetest.CreateUser(t, manager, "author")
	tagged := storagetest.CreatePost(t, manager, author.ID, "Morning #Coffee and #code")
	plain := storagetest.CreatePost(t, manager, author.ID, "no tags here")
	syncer := NewTagSyncer(manager)

	report, err := syncer.SyncTags(t.Context(), true)
	require.NoError(t, err)
	require.Equal(t, SyncReport{Total: 1, Synced: 1, DryRun: true}, report)
	require.Empty(t, postTagSlugs(t, syncer, tagged.ID))

	report, err = syncer.SyncTags(t.Context(), false)
	require.NoError(t, err)
	require.Equal(t, SyncReport{Total: 1, Synced: 1}, report)
	require.Equal(t, []string{"code", "coffee"}, postTagSlugs(t, syncer, tagged.ID))
	require.Empty(t, postTagSlugs(t, syncer, plain.ID))

	// Running again changes nothing.
	_, err = syncer.SyncTags(t.Context(), false)
	require.NoError(t, err)
	var count int64
	require.NoError(t, manager.DB(t.Context()).Model(&models.Tag{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestSyncTagsManyPosts(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	author := storagetest.CreateUser(t, manager, "author")
	for i := 0; i < syncBatchSize+5; i++ {
		storagetest.CreatePost(t, manager, author.ID, "#daily")
	}

	report, err := NewTagSyncer(manager).SyncTags(t.Context(), false)
	require.NoError(t, err)
	require.EqualValues(t, syncBatchSize+5, report.Total)
	require.Equal(t, syncBatchSize+5, report.Synced)
}

func TestSyncTagsNothingToDo(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	report, err := NewTagSyncer(manager).SyncTags(t.Context(), false)
	require.NoError(t, err)
	require.Zero(t, report.Total)
}
