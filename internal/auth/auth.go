// Package auth связывает запрос с пользователем через cookie сессии.
// Это минимальный провайдер личности; в боевой установке его заменяет внешний.
package auth

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/UkralStul/yatube/internal/domain"
)

const (
	CookieName = "sessionid"
	LoginURL   = "/auth/login/"
)

type ctxKeyUser struct{}

// UserLookup - часть хранилища, нужная для восстановления пользователя сессии.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// Sessions хранит соответствие токенов сессий и пользователей.
type Sessions struct {
	mu     sync.RWMutex
	tokens map[string]int64
	secure bool
}

func NewSessions(secureCookie bool) *Sessions {
	return &Sessions{
		tokens: make(map[string]int64),
		secure: secureCookie,
	}
}

// Issue создает новую сессию и возвращает ее токен.
func (s *Sessions) Issue(userID int64) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
	return token
}

// Start создает сессию и выставляет cookie.
func (s *Sessions) Start(w http.ResponseWriter, userID int64) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Issue(userID),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// End удаляет сессию запроса и стирает cookie.
func (s *Sessions) End(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		s.mu.Lock()
		delete(s.tokens, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (s *Sessions) lookup(token string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	return id, ok
}

// Middleware кладет пользователя сессии в контекст запроса.
// Неизвестный токен или удаленный пользователь означают анонимный запрос.
func (s *Sessions) Middleware(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(CookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			id, ok := s.lookup(c.Value)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			user, err := users.GetUserByID(r.Context(), id)
			if err != nil {
				log.Debugf("[auth] session user %d: %v", id, err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, user)
}

// UserFrom возвращает пользователя запроса, если он вошел.
func UserFrom(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(ctxKeyUser{}).(*domain.User)
	return u, ok && u != nil
}

// RequireLogin отправляет анонимные запросы на страницу входа с параметром next.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFrom(r.Context()); !ok {
			http.Redirect(w, r, LoginRedirectURL(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func LoginRedirectURL(next string) string {
	return LoginURL + "?" + url.Values{"next": {next}}.Encode()
}

// SafeNext возвращает next, если это локальный путь, иначе fallback.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	return next
}
