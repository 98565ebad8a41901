package server

import (
	"errors"
	log "github.com/sirupsen/logrus"
	"gramm/accounts"
	"gramm/feeds"
	"gramm/media"
	"gramm/storage"
	"gramm/storage/models"
	"gramm/utils"
	"gramm/validation"
	"net/http"
	"net/url"
)

const maxJSONBody = 1 << 20

func sendJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(utils.ToJson(value))
}

func sendError(w http.ResponseWriter, errorCode int, message string) {
	log.Info(message)
	sendJSON(w, errorCode, map[string]string{"error": message})
}

// sendFailure maps a service error onto its HTTP status.
func sendFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case validation.IsValidationError(err):
		sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrInvalidCredentials):
		sendError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, media.ErrNotFound):
		sendError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrForbidden):
		sendError(w, http.StatusForbidden, "forbidden")
	default:
		log.Errorf("Error serving %s %s: %v", r.Method, r.URL.Path, err)
		sendError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, value any) bool {
	if err := utils.FromJson(r.Body, maxJSONBody, value); err != nil {
		sendError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// parseForm reads a multipart body of at most limit bytes.
func parseForm(w http.ResponseWriter, r *http.Request, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := r.ParseMultipartForm(media.MaxUploadSize)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		sendError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	case err != nil:
		sendError(w, http.StatusBadRequest, "malformed form")
		return false
	}
	return true
}

func getQueryItem(values url.Values, key string) *string {
	value := values[key]
	result := ""
	if len(value) == 1 {
		result = value[0]
	}
	return &result
}

func getPage(r *http.Request) storage.Page {
	return storage.Page{Number: utils.IntFromString(*getQueryItem(r.URL.Query(), "page"), 1)}
}

// resolveUser fills the avatar URL of user's profile.
func (s *Server) resolveUser(user *models.User) {
	if user == nil || user.Profile == nil {
		return
	}
	if id, ok := user.Profile.ExternalID(); ok {
		user.Profile.AvatarURL = s.Store.URL(id)
	}
}

func (s *Server) resolveItems(items []feeds.Item) {
	for i := range items {
		s.resolveUser(&items[i].Author)
		for j := range items[i].Images {
			items[i].Images[j].URL = s.Store.URL(items[i].Images[j].ImageID)
		}
	}
}
