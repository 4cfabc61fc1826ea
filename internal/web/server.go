// Package web - HTTP-слой блога: маршруты, обработчики и шаблоны страниц.
package web

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UkralStul/yatube/internal/accesslog"
	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/blog"
	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/dataloader"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/live"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/monitoring"
	"github.com/UkralStul/yatube/internal/storage"
)

const serviceName = "yatube"

// Deps - зависимости сервера. Observer, Media и AccessLog необязательны.
type Deps struct {
	Blog     *blog.Service
	Store    storage.Storage
	Cache    cache.Cache
	CacheTTL time.Duration
	Sessions *auth.Sessions

	Observer  *live.Observer
	Media     *media.Store
	AccessLog accesslog.Sink
}

type Server struct {
	blog      *blog.Service
	store     storage.Storage
	cache     cache.Cache
	cacheTTL  time.Duration
	sessions  *auth.Sessions
	observer  *live.Observer
	media     *media.Store
	accessLog accesslog.Sink
	templates map[string]*template.Template
}

func New(deps Deps) *Server {
	ttl := deps.CacheTTL
	if ttl == 0 {
		ttl = cache.DefaultTTL
	}
	return &Server{
		blog:      deps.Blog,
		store:     deps.Store,
		cache:     deps.Cache,
		cacheTTL:  ttl,
		sessions:  deps.Sessions,
		observer:  deps.Observer,
		media:     deps.Media,
		accessLog: deps.AccessLog,
		templates: parseTemplates(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(monitoring.Middleware)
	r.Use(accesslog.Middleware(serviceName, s.accessLog))
	r.Use(middleware.Recoverer)
	r.Use(s.sessions.Middleware(s.store))
	r.Use(dataloader.Middleware(s.store))

	r.NotFound(s.notFound)

	r.Get("/", s.indexHandler)
	r.Get("/group/{slug}/", s.groupPostsHandler)
	r.Get("/profile/{username}/", s.profileHandler)
	r.Get("/posts/{id:[0-9]+}/", s.postDetailHandler)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)

		r.Post("/posts/{id:[0-9]+}/comment/", s.addCommentHandler)
		r.Get("/create/", s.postCreateHandler)
		r.Post("/create/", s.postCreateHandler)
		r.Get("/posts/{id:[0-9]+}/edit/", s.postEditHandler)
		r.Post("/posts/{id:[0-9]+}/edit/", s.postEditHandler)
		r.Get("/follow/", s.followIndexHandler)
		r.Get("/profile/{username}/follow/", s.profileFollowHandler)
		r.Post("/profile/{username}/follow/", s.profileFollowHandler)
		r.Get("/profile/{username}/unfollow/", s.profileUnfollowHandler)
		r.Post("/profile/{username}/unfollow/", s.profileUnfollowHandler)
	})

	r.Get(auth.LoginURL, s.loginHandler)
	r.Post(auth.LoginURL, s.loginHandler)
	r.Get("/auth/logout/", s.logoutHandler)
	r.Post("/auth/logout/", s.logoutHandler)

	r.Get("/about/author/", s.staticPage("about_author", "About the author"))
	r.Get("/about/tech/", s.staticPage("about_tech", "Technologies"))

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(staticFS())))
	if s.media != nil {
		r.Handle("/media/*", http.StripPrefix("/media/", s.media.Handler()))
	}
	if s.observer != nil {
		r.Get("/live/", live.Handler(s.observer))
	}
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// attachPosts дозагружает авторов и группы постов страницы через лоадеры запроса.
func (s *Server) attachPosts(ctx context.Context, posts []*domain.Post) error {
	return s.loaders(ctx).AttachPosts(ctx, posts)
}

func (s *Server) attachComments(ctx context.Context, comments []*domain.Comment) error {
	return s.loaders(ctx).AttachComments(ctx, comments)
}

func (s *Server) loaders(ctx context.Context) *dataloader.Loaders {
	if l, ok := dataloader.For(ctx); ok {
		return l
	}
	return dataloader.NewLoaders(s.store)
}

// reqID возвращает короткий id запроса для логов: без имени хоста.
func reqID(r *http.Request) string {
	id := middleware.GetReqID(r.Context())
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}
