package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/blog"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/monitoring"
)

// maxFormSize - предел тела формы поста: картинка плюс текстовые поля.
const maxFormSize = media.MaxImageSize + 1<<20

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, loggedIn := auth.UserFrom(ctx)

	// Ключ - номер страницы после прижатия, посторонние параметры запроса его не меняют
	page, err := s.blog.IndexPage(ctx, r.URL.Query().Get("page"))
	if err != nil {
		s.serverError(w, r, "indexHandler", err)
		return
	}
	key := "index:page=" + strconv.Itoa(page.Number)

	// Кэшируется только страница для анонимов: в ней нет данных пользователя
	if !loggedIn && s.cache != nil {
		body, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			log.Warnf("[indexHandler][%s] cache get: %v", reqID(r), err)
		}
		if hit {
			monitoring.FeedCacheRequests.WithLabelValues("hit").Inc()
			w.Header().Set("X-Cache", "HIT")
			writeHTML(w, http.StatusOK, body)
			return
		}
		monitoring.FeedCacheRequests.WithLabelValues("miss").Inc()
	}

	feed, err := s.blog.Index(ctx, strconv.Itoa(page.Number))
	if err != nil {
		s.serverError(w, r, "indexHandler", err)
		return
	}
	if err := s.attachPosts(ctx, feed.Posts); err != nil {
		s.serverError(w, r, "indexHandler", err)
		return
	}

	data := newView(r, "Latest posts")
	data.Path = indexURL(feed.Page.Number)
	data.Page = &feed.Page
	data.Posts = feed.Posts
	body, err := s.renderBytes("index", data)
	if err != nil {
		s.serverError(w, r, "indexHandler", err)
		return
	}

	if !loggedIn && s.cache != nil {
		if err := s.cache.Set(ctx, key, body, s.cacheTTL); err != nil {
			log.Warnf("[indexHandler][%s] cache set: %v", reqID(r), err)
		}
		w.Header().Set("X-Cache", "MISS")
	}
	writeHTML(w, http.StatusOK, body)
}

func (s *Server) groupPostsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	feed, err := s.blog.GroupPosts(ctx, chi.URLParam(r, "slug"), r.URL.Query().Get("page"))
	if err != nil {
		s.handleError(w, r, "groupPostsHandler", err)
		return
	}
	if err := s.attachPosts(ctx, feed.Posts); err != nil {
		s.serverError(w, r, "groupPostsHandler", err)
		return
	}

	data := newView(r, "Posts of group "+feed.Group.Title)
	data.Group = feed.Group
	data.Page = &feed.Page
	data.Posts = feed.Posts
	s.render(w, r, http.StatusOK, "group_list", data)
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := auth.UserFrom(ctx)
	feed, err := s.blog.Profile(ctx, chi.URLParam(r, "username"), viewer, r.URL.Query().Get("page"))
	if err != nil {
		s.handleError(w, r, "profileHandler", err)
		return
	}
	if err := s.attachPosts(ctx, feed.Posts); err != nil {
		s.serverError(w, r, "profileHandler", err)
		return
	}

	data := newView(r, "Profile of "+feed.Author.Username)
	data.Author = feed.Author
	data.Following = feed.Following
	data.AuthorPosts = feed.Page.Total
	data.Page = &feed.Page
	data.Posts = feed.Posts
	s.render(w, r, http.StatusOK, "profile", data)
}

func (s *Server) postDetailHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := postID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	detail, err := s.blog.PostDetail(ctx, id)
	if err != nil {
		s.handleError(w, r, "postDetailHandler", err)
		return
	}
	if err := s.attachPosts(ctx, []*domain.Post{detail.Post}); err != nil {
		s.serverError(w, r, "postDetailHandler", err)
		return
	}
	if err := s.attachComments(ctx, detail.Comments); err != nil {
		s.serverError(w, r, "postDetailHandler", err)
		return
	}

	data := newView(r, postTitle(detail.Post.Text))
	data.Post = detail.Post
	data.Comments = detail.Comments
	data.AuthorPosts = detail.AuthorPosts
	s.render(w, r, http.StatusOK, "post_detail", data)
}

func (s *Server) postCreateHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := auth.UserFrom(ctx)

	if r.Method == http.MethodGet {
		s.renderPostForm(w, r, formView{}, false)
		return
	}

	form, closeForm, err := parsePostForm(w, r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		log.Debugf("[postCreateHandler][%s] parse form: %v", reqID(r), err)
		return
	}
	defer closeForm()

	_, err = s.blog.CreatePost(ctx, user, form)
	var verr *blog.ValidationError
	if errors.As(err, &verr) {
		s.renderPostForm(w, r, formView{Text: form.Text, GroupID: form.GroupID, Errors: verr.Fields}, false)
		return
	}
	if err != nil {
		s.serverError(w, r, "postCreateHandler", err)
		return
	}

	log.Debugf("[postCreateHandler][%s] post created by %s", reqID(r), user.Username)
	http.Redirect(w, r, profileURL(user.Username), http.StatusFound)
}

// postEditHandler показывает и сохраняет форму редактирования.
// Не автор без ошибки отправляется на страницу поста.
func (s *Server) postEditHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := auth.UserFrom(ctx)
	id, ok := postID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	if r.Method == http.MethodGet {
		post, err := s.blog.PostForEdit(ctx, user, id)
		if err != nil {
			s.handleEditError(w, r, id, err)
			return
		}
		s.renderPostForm(w, r, formView{Text: post.Text, GroupID: post.GroupIDValue()}, true)
		return
	}

	form, closeForm, err := parsePostForm(w, r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		log.Debugf("[postEditHandler][%s] parse form: %v", reqID(r), err)
		return
	}
	defer closeForm()

	_, err = s.blog.EditPost(ctx, user, id, form)
	var verr *blog.ValidationError
	if errors.As(err, &verr) {
		s.renderPostForm(w, r, formView{Text: form.Text, GroupID: form.GroupID, Errors: verr.Fields}, true)
		return
	}
	if err != nil {
		s.handleEditError(w, r, id, err)
		return
	}
	http.Redirect(w, r, postURL(id), http.StatusFound)
}

func (s *Server) handleEditError(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, blog.ErrUnauthorized) {
		log.Debugf("[postEditHandler][%s] post %d: %v", reqID(r), id, err)
		http.Redirect(w, r, postURL(id), http.StatusFound)
		return
	}
	s.handleError(w, r, "postEditHandler", err)
}

func (s *Server) renderPostForm(w http.ResponseWriter, r *http.Request, form formView, isEdit bool) {
	groups, err := s.blog.Groups(r.Context())
	if err != nil {
		s.serverError(w, r, "renderPostForm", err)
		return
	}
	title := "New post"
	if isEdit {
		title = "Edit post"
	}
	data := newView(r, title)
	data.Groups = groups
	data.Form = form
	data.IsEdit = isEdit
	s.render(w, r, http.StatusOK, "create_post", data)
}

// addCommentHandler сохраняет комментарий. Некорректный комментарий
// отбрасывается без показа ошибок, ответ - тот же редирект.
func (s *Server) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := auth.UserFrom(ctx)
	id, ok := postID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	_, err := s.blog.AddComment(ctx, user, id, blog.CommentForm{Text: r.PostFormValue("text")})
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Debugf("[addCommentHandler][%s] comment dropped: %v", reqID(r), verr)
	case err != nil:
		s.handleError(w, r, "addCommentHandler", err)
		return
	}
	http.Redirect(w, r, postURL(id), http.StatusFound)
}

// handleError отображает ошибки сервиса: NotFound - страница 404, прочие - 500.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	if errors.Is(err, blog.ErrNotFound) {
		log.Debugf("[%s][%s] %v", handler, reqID(r), err)
		s.notFound(w, r)
		return
	}
	s.serverError(w, r, handler, err)
}

// parsePostForm читает форму поста. Возвращенную функцию нужно вызвать
// после обработки, она закрывает загруженный файл.
func parsePostForm(w http.ResponseWriter, r *http.Request) (blog.PostForm, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return blog.PostForm{}, noop, err
	}

	form := blog.PostForm{Text: r.PostFormValue("text")}
	if raw := strings.TrimSpace(r.PostFormValue("group")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			// Такой группы нет, сервис вернет ошибку поля
			id = -1
		}
		form.GroupID = id
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return form, noop, nil
	case err != nil:
		return form, noop, err
	}
	form.Image = &blog.Upload{Name: header.Filename, Body: file}
	return form, func() { _ = file.Close() }, nil
}

func postID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func indexURL(page int) string {
	if page <= 1 {
		return "/"
	}
	return "/?page=" + strconv.Itoa(page)
}

func postURL(id int64) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

// postTitle - первые 30 символов текста поста.
func postTitle(text string) string {
	runes := []rune(text)
	if len(runes) > 30 {
		return string(runes[:30])
	}
	return text
}
