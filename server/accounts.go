package server

import (
	"gramm/accounts"
	"gramm/auth"
	"gramm/media"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// maxProfileForm bounds the multipart body of a profile update.
const maxProfileForm = media.MaxUploadSize + 1<<16

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := s.Accounts.Register(r.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	token, err := s.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, tokenResponse{Token: token, UserID: user.ID, Username: user.Username})
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := s.Accounts.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	token, err := s.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, tokenResponse{Token: token, UserID: user.ID, Username: user.Username})
}

// updateProfile accepts a multipart form with full_name, bio, an optional
// avatar file and remove_avatar.
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r, maxProfileForm) {
		return
	}
	update := accounts.ProfileUpdate{
		FullName:     r.FormValue("full_name"),
		Bio:          r.FormValue("bio"),
		RemoveAvatar: r.FormValue("remove_avatar") == "true",
	}
	if files := r.MultipartForm.File["avatar"]; len(files) > 0 {
		upload, err := readUpload(files[0])
		if err != nil {
			sendError(w, http.StatusBadRequest, "unreadable avatar")
			return
		}
		update.Avatar = &upload
	}
	profile, err := s.Accounts.UpdateProfile(r.Context(), auth.UserID(r.Context()), update)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	if id, ok := profile.ExternalID(); ok {
		profile.AvatarURL = s.Store.URL(id)
	}
	sendJSON(w, http.StatusOK, profile)
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.Lifecycle.DeleteUser(r.Context(), auth.UserID(r.Context())); err != nil {
		sendFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readUpload reads one file, keeping one byte past the size limit so that
// oversized files are rejected by the preprocessor.
func readUpload(header *multipart.FileHeader) (media.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return media.Upload{}, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, media.MaxUploadSize+1))
	if err != nil {
		return media.Upload{}, err
	}
	contentType, _, _ := strings.Cut(header.Header.Get("Content-Type"), ";")
	return media.Upload{Data: data, ContentType: strings.TrimSpace(contentType)}, nil
}
