package posts

import (
	"bytes"
	"context"
	"errors"
	"github.com/stretchr/testify/require"
	"gramm/media"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/storage/storagetest"
	"gramm/validation"
	"image"
	"image/png"
	"strings"
	"testing"
)

func pngUpload(t *testing.T) media.Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	return media.Upload{Data: buf.Bytes(), ContentType: "image/png"}
}

func newService(t *testing.T) (*Service, *storage.Manager, *media.MemoryStore) {
	t.Helper()
	manager, _ := storagetest.NewManager(t)
	store := media.NewMemoryStore("/media")
	return NewService(manager, store, media.NewPreprocessor(), Config{}), manager, store
}

func TestCreate(t *testing.T) {
	service, manager, store := newService(t)
	author := storagetest.CreateUser(t, manager, "author")

	post, err := service.Create(t.Context(), author.ID, "Beach day #Sea #sun", []media.Upload{pngUpload(t), pngUpload(t)})
	require.NoError(t, err)
	require.Len(t, post.Images, 2)
	require.Equal(t, 0, post.Images[0].Order)
	require.Equal(t, 1, post.Images[1].Order)
	require.Equal(t, 2, store.Len())
	require.True(t, store.Has(post.Images[0].ImageID))

	detail, err := service.Get(t.Context(), author.ID, post.ID)
	require.NoError(t, err)
	require.Equal(t, "Beach day #Sea #sun", detail.Caption)
	require.Len(t, detail.Tags, 2)
	require.Equal(t, "sea", detail.Tags[0].Slug)
	require.Equal(t, "sun", detail.Tags[1].Slug)
}

func TestCreateValidation(t *testing.T) {
	service, manager, store := newService(t)
	author := storagetest.CreateUser(t, manager, "author")

	_, err := service.Create(t.Context(), author.ID, strings.Repeat("x", models.MaxCaptionLength+1), nil)
	require.True(t, validation.IsValidationError(err))

	uploads := make([]media.Upload, models.MaxPostImages+1)
	for i := range uploads {
		uploads[i] = pngUpload(t)
	}
	_, err = service.Create(t.Context(), author.ID, "", uploads)
	require.True(t, validation.IsValidationError(err))

	_, err = service.Create(t.Context(), author.ID, "", []media.Upload{pngUpload(t), {Data: []byte("junk"), ContentType: "image/png"}})
	require.True(t, validation.IsValidationError(err))
	require.Zero(t, store.Len())
}

type failingUploads struct {
	*media.MemoryStore
	allowed int
}

func (s *failingUploads) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if s.allowed == 0 {
		return "", errors.New("media store unavailable")
	}
	s.allowed--
	return s.MemoryStore.Upload(ctx, data, contentType)
}

func TestCreateDiscardsPartialUploads(t *testing.T) {
	manager, _ := storagetest.NewManager(t)
	author := storagetest.CreateUser(t, manager, "author")
	memory := media.NewMemoryStore("/media")
	service := NewService(manager, &failingUploads{MemoryStore: memory, allowed: 1}, media.NewPreprocessor(), Config{})

	_, err := service.Create(t.Context(), author.ID, "", []media.Upload{pngUpload(t), pngUpload(t)})
	require.Error(t, err)
	require.Zero(t, memory.Len())

	var count int64
	require.NoError(t, manager.DB(t.Context()).Model(&models.Post{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestReorderImages(t *testing.T) {
	service, manager, _ := newService(t)
	author := storagetest.CreateUser(t, manager, "author")
	post := storagetest.CreatePost(t, manager, author.ID, "", "one", "two", "three")
	id1, id2, id3 := post.Images[0].ID, post.Images[1].ID, post.Images[2].ID

	ordered, err := service.ReorderImages(t.Context(), author.ID, post.ID, []uint{id3, id1, id2})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, []int{ordered[0].Order, ordered[1].Order, ordered[2].Order})

	detail, err := service.Get(t.Context(), 0, post.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{id3, id1, id2}, []uint{detail.Images[0].ID, detail.Images[1].ID, detail.Images[2].ID})
	require.Equal(t, []int{0, 1, 2}, []int{detail.Images[0].Order, detail.Images[1].Order, detail.Images[2].Order})
}

func TestReorderImagesRejectsNonPermutation(t *testing.T) {
	service, manager, _ := newService(t)
	author := storagetest.CreateUser(t, manager, "author")
	other := storagetest.CreatePost(t, manager, author.ID, "", "foreign")
	post := storagetest.CreatePost(t, manager, author.ID, "", "one", "two")
	id1, id2 := post.Images[0].ID, post.Images[1].ID

	for _, order := range [][]uint{{id1}, {id1, id1}, {id1, id2, id2}, {id1, other.Images[0].ID}} {
		_, err := service.ReorderImages(t.Context(), author.ID, post.ID, order)
		require.True(t, validation.IsValidationError(err), "order %v", order)
	}
}

func TestOnlyAuthorMayEdit(t *testing.T) {
	service, manager, _ := newService(t)
	author := storagetest.CreateUser(t, manager, "author")
	intruder := storagetest.CreateUser(t, manager, "intruder")
	post := storagetest.CreatePost(t, manager, author.ID, "mine", "img")

	_, err := service.UpdateCaption(t.Context(), intruder.ID, post.ID, "theirs")
	require.ErrorIs(t, err, storage.ErrForbidden)
	_, err = service.ReorderImages(t.Context(), intruder.ID, post.ID, []uint{post.Images[0].ID})
	require.ErrorIs(t, err, storage.ErrForbidden)
	require.ErrorIs(t, service.Delete(t.Context(), intruder.ID, post.ID), storage.ErrForbidden)
	require.ErrorIs(t, service.Delete(t.Context(), author.ID, post.ID+100), storage.ErrNotFound)
}

func TestUpdateCaptionResyncsTags(t *testing.T) {
	service, manager, _ := newService(t)
	author := storagetest.CreateUser(t, manager, "author")
	post, err := service.Create(t.Context(), author.ID, "#one #two", nil)
	require.NoError(t, err)

	updated, err := service.UpdateCaption(t.Context(), author.ID, post.ID, "only #two")
	require.NoError(t, err)
	require.Len(t, updated.Tags, 1)
	require.Equal(t, "two", updated.Tags[0].Slug)

	detail, err := service.Get(t.Context(), 0, post.ID)
	require.NoError(t, err)
	require.Len(t, detail.Tags, 1)
}

func TestDeleteRemovesImages(t *testing.T) {
	service, manager, store := newService(t)
	author := storagetest.CreateUser(t, manager, "author")
	post, err := service.Create(t.Context(), author.ID, "bye", []media.Upload{pngUpload(t)})
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), author.ID, post.ID))
	require.Zero(t, store.Len())
	_, err = service.Get(t.Context(), 0, post.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	var images int64
	require.NoError(t, manager.DB(t.Context()).Model(&models.PostImage{}).Count(&images).Error)
	require.Zero(t, images)
}
