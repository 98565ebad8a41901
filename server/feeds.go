package server

import (
	"github.com/go-chi/chi/v5"
	"gramm/auth"
	"net/http"
)

func (s *Server) getGlobalFeed(w http.ResponseWriter, r *http.Request) {
	response, err := s.Feeds.Global(r.Context(), auth.UserID(r.Context()), getPage(r))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	s.resolveItems(response.Items)
	sendJSON(w, http.StatusOK, response)
}

func (s *Server) getNewsFeed(w http.ResponseWriter, r *http.Request) {
	response, err := s.Feeds.News(r.Context(), auth.UserID(r.Context()), getPage(r))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	s.resolveItems(response.Items)
	sendJSON(w, http.StatusOK, response)
}

func (s *Server) getUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.Feeds.UnreadCount(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

func (s *Server) getTagFeed(w http.ResponseWriter, r *http.Request) {
	page, err := s.Feeds.ByTag(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "slug"), getPage(r))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	s.resolveItems(page.Posts.Items)
	sendJSON(w, http.StatusOK, page)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	page, err := s.Feeds.ByAuthor(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "username"), getPage(r))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	s.resolveUser(&page.User)
	s.resolveItems(page.Posts.Items)
	sendJSON(w, http.StatusOK, page)
}
