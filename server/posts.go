package server

import (
	"github.com/go-chi/chi/v5"
	"gramm/auth"
	"gramm/feeds"
	"gramm/media"
	"gramm/storage/models"
	"gramm/utils"
	"gramm/validation"
	"net/http"
)

// maxPostForm bounds the multipart body of a new post.
const maxPostForm = models.MaxPostImages * (media.MaxUploadSize + 1<<16)

func pathID(r *http.Request) uint {
	return utils.UintFromString(chi.URLParam(r, "id"))
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r, maxPostForm) {
		return
	}
	files := r.MultipartForm.File["images"]
	if len(files) > models.MaxPostImages {
		sendFailure(w, r, validation.Errorf("a post can have at most %d images", models.MaxPostImages))
		return
	}
	uploads := make([]media.Upload, 0, len(files))
	for _, header := range files {
		upload, err := readUpload(header)
		if err != nil {
			sendError(w, http.StatusBadRequest, "unreadable image")
			return
		}
		uploads = append(uploads, upload)
	}
	post, err := s.Posts.Create(r.Context(), auth.UserID(r.Context()), r.FormValue("caption"), uploads)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	s.sendPost(w, r, http.StatusCreated, post.ID)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	s.sendPost(w, r, http.StatusOK, pathID(r))
}

func (s *Server) sendPost(w http.ResponseWriter, r *http.Request, status int, postID uint) {
	detail, err := s.Posts.Get(r.Context(), auth.UserID(r.Context()), postID)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	items := []feeds.Item{detail.Item}
	s.resolveItems(items)
	detail.Item = items[0]
	for i := range detail.Comments {
		s.resolveUser(detail.Comments[i].Author)
	}
	sendJSON(w, status, detail)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Caption string `json:"caption"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	post, err := s.Posts.UpdateCaption(r.Context(), auth.UserID(r.Context()), pathID(r), body.Caption)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	s.sendPost(w, r, http.StatusOK, post.ID)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.Posts.Delete(r.Context(), auth.UserID(r.Context()), pathID(r)); err != nil {
		sendFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reorderImages(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ImageIDs []uint `json:"image_ids"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	images, err := s.Posts.ReorderImages(r.Context(), auth.UserID(r.Context()), pathID(r), body.ImageIDs)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	for i := range images {
		images[i].URL = s.Store.URL(images[i].ImageID)
	}
	sendJSON(w, http.StatusOK, map[string]any{"images": images})
}

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request) {
	state, err := s.Interactions.ToggleLike(r.Context(), auth.UserID(r.Context()), pathID(r))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, state)
}

type commentBody struct {
	Text string `json:"text"`
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var body commentBody
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := s.Interactions.AddComment(r.Context(), auth.UserID(r.Context()), pathID(r), body.Text)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	s.resolveUser(result.Comment.Author)
	sendJSON(w, http.StatusCreated, result)
}

func (s *Server) editComment(w http.ResponseWriter, r *http.Request) {
	var body commentBody
	if !decodeBody(w, r, &body) {
		return
	}
	comment, err := s.Interactions.EditComment(r.Context(), auth.UserID(r.Context()), pathID(r), body.Text)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, comment)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	remaining, err := s.Interactions.DeleteComment(r.Context(), auth.UserID(r.Context()), pathID(r))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]int64{"comments_count": remaining})
}
