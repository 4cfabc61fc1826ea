package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

const maxUsernameLength = 150

// loginHandler - вход по имени пользователя. Неизвестное имя регистрируется
// при первом входе.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.FormValue("next"), "/")
	data := newView(r, "Log in")
	data.Next = next

	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "login", data)
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	if msg := checkUsername(username); msg != "" {
		data.Form = formView{Text: username, Errors: map[string]string{"username": msg}}
		s.render(w, r, http.StatusOK, "login", data)
		return
	}

	user, err := s.userForLogin(r.Context(), username)
	if err != nil {
		s.serverError(w, r, "loginHandler", err)
		return
	}
	s.sessions.Start(w, user.ID)
	log.Infof("[loginHandler][%s] %s logged in", reqID(r), user.Username)
	http.Redirect(w, r, next, http.StatusFound)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.sessions.End(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) userForLogin(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	user, err = s.store.CreateUser(ctx, &domain.User{Username: username})
	if errors.Is(err, storage.ErrDuplicate) {
		// Пользователя создал параллельный запрос
		return s.store.GetUserByUsername(ctx, username)
	}
	return user, err
}

func checkUsername(username string) string {
	switch {
	case username == "":
		return "Username is required."
	case len(username) > maxUsernameLength:
		return "Username is too long."
	case strings.ContainsAny(username, "/?#% \t"):
		return "Username may not contain spaces or URL characters."
	}
	return ""
}

func (s *Server) staticPage(page, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, page, newView(r, title))
	}
}
