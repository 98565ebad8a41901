package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"gramm/accounts"
	"gramm/auth"
	"gramm/feeds"
	"gramm/graph"
	"gramm/interactions"
	"gramm/lifecycle"
	"gramm/media"
	"gramm/monitoring"
	"gramm/monitoring/middleware"
	"gramm/posts"
	"gramm/storage"
	"net/http"
	"time"
)

// Dependencies are the services the HTTP surface dispatches to.
type Dependencies struct {
	Manager      *storage.Manager
	Accounts     *accounts.Service
	Graph        *graph.Engine
	Feeds        *feeds.Composer
	Posts        *posts.Service
	Interactions *interactions.Service
	Lifecycle    *lifecycle.Manager
	Tokens       *auth.Tokens
	Store        media.Store
}

type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	Dependencies
	config Config
	router chi.Router
}

func NewServer(dependencies Dependencies, config Config) *Server {
	s := &Server{Dependencies: dependencies, config: config}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(func(next http.Handler) http.Handler { return middleware.NewServerMiddleware(next) })
	r.Use(func(next http.Handler) http.Handler { return monitoring.NewPrometheusMiddleware(next) })
	r.Use(chimiddleware.Recoverer)
	r.Use(s.Tokens.Middleware)

	r.Get("/health", s.getHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/media/{id}", s.getMedia)

	r.Post("/auth/register", s.register)
	r.Post("/auth/token", s.issueToken)

	r.Get("/feed", s.getGlobalFeed)
	r.Get("/tags/{slug}", s.getTagFeed)
	r.Get("/users/{username}", s.getProfile)
	r.Get("/users/{username}/followers", s.getFollowers)
	r.Get("/users/{username}/following", s.getFollowing)
	r.Get("/posts/{id}", s.getPost)

	r.Group(func(r chi.Router) {
		r.Use(auth.Required)

		r.Get("/news", s.getNewsFeed)
		r.Get("/news/unread", s.getUnreadCount)

		r.Patch("/users/me", s.updateProfile)
		r.Delete("/users/me", s.deleteAccount)
		r.Post("/users/{username}/follow", s.follow)
		r.Delete("/users/{username}/follow", s.unfollow)

		r.Post("/posts", s.createPost)
		r.Patch("/posts/{id}", s.updatePost)
		r.Delete("/posts/{id}", s.deletePost)
		r.Put("/posts/{id}/images/order", s.reorderImages)
		r.Post("/posts/{id}/like", s.toggleLike)
		r.Post("/posts/{id}/comments", s.addComment)

		r.Patch("/comments/{id}", s.editComment)
		r.Delete("/comments/{id}", s.deleteComment)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errs := make(chan error, 1)
	go func() {
		log.Infof("Listening on %s", httpServer.Addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := s.Manager.DB(r.Context()).DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		log.Errorf("Health check failed: %v", err)
		sendError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
