package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/paginator"
)

//go:embed templates static
var assets embed.FS

var pages = []string{
	"index",
	"group_list",
	"profile",
	"post_detail",
	"create_post",
	"follow",
	"login",
	"about_author",
	"about_tech",
	"404",
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2 January 2006") },
}

// viewData - контекст всех шаблонов. Каждая страница использует свою часть полей.
type viewData struct {
	Title string
	Hero  string
	User  *domain.User
	Path  string

	Page  *paginator.Page
	Posts []*domain.Post

	Group       *domain.Group
	Author      *domain.User
	Following   bool
	AuthorPosts int

	Post     *domain.Post
	Comments []*domain.Comment

	Groups []*domain.Group
	Form   formView
	IsEdit bool
	Next   string
}

// formView - значения и ошибки формы для повторного показа.
type formView struct {
	Text    string
	GroupID int64
	Errors  map[string]string
}

func parseTemplates() map[string]*template.Template {
	set := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		set[page] = template.Must(template.New(page).Funcs(funcs).ParseFS(assets,
			"templates/layout.html",
			"templates/includes/*.html",
			"templates/"+page+".html",
		))
	}
	return set
}

func staticFS() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// newView заполняет общие для всех страниц поля.
func newView(r *http.Request, title string) *viewData {
	user, _ := auth.UserFrom(r.Context())
	return &viewData{
		Title: title,
		Hero:  heroFor(r.URL.Path),
		User:  user,
		Path:  r.URL.RequestURI(),
	}
}

var (
	postPath  = regexp.MustCompile(`^/posts/\d`)
	groupPath = regexp.MustCompile(`^/group/\w`)
)

// heroFor выбирает картинку шапки по пути страницы.
func heroFor(path string) string {
	switch {
	case path == "/" || path == "/follow/":
		return "hero-home"
	case path == "/about/author/":
		return "hero-about"
	case path == "/about/tech/":
		return "hero-tech"
	case strings.HasPrefix(path, "/profile/"):
		return "hero-contact"
	case postPath.MatchString(path):
		return "hero-edit"
	case groupPath.MatchString(path):
		return "hero-group"
	case path == auth.LoginURL:
		return "hero-login"
	}
	return ""
}

func (s *Server) renderBytes(page string, data *viewData) ([]byte, error) {
	t, ok := s.templates[page]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", page, err)
	}
	return buf.Bytes(), nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data *viewData) {
	body, err := s.renderBytes(page, data)
	if err != nil {
		s.serverError(w, r, "render", err)
		return
	}
	writeHTML(w, status, body)
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	log.Debugf("[notFound][%s] %s %s", reqID(r), r.Method, r.URL.Path)
	s.render(w, r, http.StatusNotFound, "404", newView(r, "Page not found"))
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	log.Errorf("[%s][%s] %v", handler, reqID(r), err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
