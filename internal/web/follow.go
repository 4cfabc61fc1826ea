package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/UkralStul/yatube/internal/auth"
)

func (s *Server) followIndexHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := auth.UserFrom(ctx)
	feed, err := s.blog.FollowIndex(ctx, user, r.URL.Query().Get("page"))
	if err != nil {
		s.serverError(w, r, "followIndexHandler", err)
		return
	}
	if err := s.attachPosts(ctx, feed.Posts); err != nil {
		s.serverError(w, r, "followIndexHandler", err)
		return
	}

	data := newView(r, "Followed authors")
	data.Page = &feed.Page
	data.Posts = feed.Posts
	s.render(w, r, http.StatusOK, "follow", data)
}

func (s *Server) profileFollowHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())
	username := chi.URLParam(r, "username")
	if err := s.blog.Follow(r.Context(), user, username); err != nil {
		s.handleError(w, r, "profileFollowHandler", err)
		return
	}
	log.Debugf("[profileFollowHandler][%s] %s -> %s", reqID(r), user.Username, username)
	http.Redirect(w, r, profileURL(username), http.StatusFound)
}

func (s *Server) profileUnfollowHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())
	username := chi.URLParam(r, "username")
	if err := s.blog.Unfollow(r.Context(), user, username); err != nil {
		s.handleError(w, r, "profileUnfollowHandler", err)
		return
	}
	http.Redirect(w, r, profileURL(username), http.StatusFound)
}
