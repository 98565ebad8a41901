package server

import (
	"context"
	"github.com/go-chi/chi/v5"
	"gramm/auth"
	"gramm/graph"
	"gramm/storage"
	"net/http"
)

// follow toggles the caller's follow of the named user.
func (s *Server) follow(w http.ResponseWriter, r *http.Request) {
	state, err := s.Graph.ToggleFollow(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "username"))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, state)
}

func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) {
	actorID := auth.UserID(r.Context())
	target, err := s.Manager.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	if _, err := s.Graph.Unfollow(r.Context(), actorID, target.ID); err != nil {
		sendFailure(w, r, err)
		return
	}
	state, err := s.Graph.State(r.Context(), actorID, target.ID)
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, state)
}

func (s *Server) getFollowers(w http.ResponseWriter, r *http.Request) {
	s.sendEdges(w, r, s.Graph.Followers)
}

func (s *Server) getFollowing(w http.ResponseWriter, r *http.Request) {
	s.sendEdges(w, r, s.Graph.Following)
}

func (s *Server) sendEdges(
	w http.ResponseWriter,
	r *http.Request,
	list func(context.Context, uint, storage.Page) (graph.EdgePage, error),
) {
	user, err := s.Manager.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	page, err := list(r.Context(), user.ID, getPage(r))
	if err != nil {
		sendFailure(w, r, err)
		return
	}
	for i := range page.Users {
		s.resolveUser(&page.Users[i])
	}
	sendJSON(w, http.StatusOK, page)
}
