package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/yatube/internal/auth"
	"github.com/UkralStul/yatube/internal/blog"
	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/inmemory"
)

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

type testEnv struct {
	store    *inmemory.Store
	cache    *cache.Memory
	blog     *blog.Service
	sessions *auth.Sessions
	router   http.Handler
	alice    *domain.User
	bob      *domain.User
	group    *domain.Group
}

func newTestEnv(t *testing.T) *testEnv {
	ctx := context.Background()
	store := inmemory.New()
	c := cache.NewMemory()
	svc := blog.New(store, c)
	sessions := auth.NewSessions(false)

	alice, err := store.CreateUser(ctx, &domain.User{Username: "alice"})
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, &domain.User{Username: "bob"})
	require.NoError(t, err)
	group, err := store.CreateGroup(ctx, &domain.Group{Title: "Test group", Slug: "test-slug", Description: "About tests"})
	require.NoError(t, err)

	srv := New(Deps{Blog: svc, Store: store, Cache: c, Sessions: sessions})
	return &testEnv{
		store:    store,
		cache:    c,
		blog:     svc,
		sessions: sessions,
		router:   srv.Router(),
		alice:    alice,
		bob:      bob,
		group:    group,
	}
}

// do выполняет запрос; user == nil - анонимный запрос.
func (e *testEnv) do(user *domain.User, method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if user != nil {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: e.sessions.Issue(user.ID)})
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) createPost(t *testing.T, author *domain.User, text string) *domain.Post {
	post, err := e.blog.CreatePost(context.Background(), author, blog.PostForm{Text: text, GroupID: e.group.ID})
	require.NoError(t, err)
	return post
}

func TestPublicPages(t *testing.T) {
	e := newTestEnv(t)
	post := e.createPost(t, e.alice, "Hello from alice")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "index", path: "/", want: "Hello from alice"},
		{name: "group", path: "/group/test-slug/", want: "About tests"},
		{name: "profile", path: "/profile/alice/", want: "Total posts: 1"},
		{name: "detail", path: fmt.Sprintf("/posts/%d/", post.ID), want: "Hello from alice"},
		{name: "about author", path: "/about/author/", want: "hero-about"},
		{name: "about tech", path: "/about/tech/", want: "hero-tech"},
		{name: "login", path: "/auth/login/", want: "hero-login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(nil, http.MethodGet, tt.path, nil)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}
}

func TestNotFound(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/posts/999/", "/posts/abc/", "/group/missing/", "/profile/nobody/", "/nonexist-page/"} {
		t.Run(path, func(t *testing.T) {
			rr := e.do(nil, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.Contains(t, rr.Body.String(), "Error 404")
		})
	}
}

func TestRequireLogin(t *testing.T) {
	e := newTestEnv(t)
	post := e.createPost(t, e.alice, "text")

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/create/"},
		{http.MethodGet, "/follow/"},
		{http.MethodGet, fmt.Sprintf("/posts/%d/edit/", post.ID)},
		{http.MethodPost, fmt.Sprintf("/posts/%d/comment/", post.ID)},
		{http.MethodPost, "/profile/alice/follow/"},
		{http.MethodGet, "/profile/alice/unfollow/"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := e.do(nil, tt.method, tt.path, nil)
			assert.Equal(t, http.StatusFound, rr.Code)
			assert.Equal(t, auth.LoginRedirectURL(tt.path), rr.Header().Get("Location"))
		})
	}
	assert.Equal(t, "/auth/login/?next=%2Fcreate%2F", auth.LoginRedirectURL("/create/"))
}

func TestPostCreate(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(e.alice, http.MethodGet, "/create/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Test group")

	rr = e.do(e.alice, http.MethodPost, "/create/", url.Values{
		"text":  {"Brand new post"},
		"group": {fmt.Sprint(e.group.ID)},
	})
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/profile/alice/", rr.Header().Get("Location"))

	posts, err := e.store.ListPosts(context.Background(), storage.PostFilter{GroupID: e.group.ID}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Brand new post", posts[0].Text)
	assert.Equal(t, e.alice.ID, posts[0].AuthorID)
}

func TestPostCreate_InvalidFormRerenders(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(e.alice, http.MethodPost, "/create/", url.Values{"text": {"  "}, "group": {"abc"}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Post text is required.")
	assert.Contains(t, rr.Body.String(), "Select a valid group.")

	n, err := e.store.CountPosts(context.Background(), storage.PostFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostEdit_NonAuthorRedirects(t *testing.T) {
	e := newTestEnv(t)
	post := e.createPost(t, e.alice, "Original text")
	editPath := fmt.Sprintf("/posts/%d/edit/", post.ID)
	detailPath := fmt.Sprintf("/posts/%d/", post.ID)

	rr := e.do(e.bob, http.MethodGet, editPath, nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, detailPath, rr.Header().Get("Location"))

	rr = e.do(e.bob, http.MethodPost, editPath, url.Values{"text": {"Hijacked"}})
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, detailPath, rr.Header().Get("Location"))

	stored, err := e.store.GetPostByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original text", stored.Text)
}

func TestPostEdit_Author(t *testing.T) {
	e := newTestEnv(t)
	post := e.createPost(t, e.alice, "Original text")
	editPath := fmt.Sprintf("/posts/%d/edit/", post.ID)

	rr := e.do(e.alice, http.MethodGet, editPath, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Original text")

	rr = e.do(e.alice, http.MethodPost, editPath, url.Values{"text": {"Edited text"}})
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), rr.Header().Get("Location"))

	stored, err := e.store.GetPostByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited text", stored.Text)

	rr = e.do(e.alice, http.MethodGet, "/posts/999/edit/", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddComment(t *testing.T) {
	e := newTestEnv(t)
	post := e.createPost(t, e.alice, "Post")
	path := fmt.Sprintf("/posts/%d/comment/", post.ID)
	detailPath := fmt.Sprintf("/posts/%d/", post.ID)

	rr := e.do(e.bob, http.MethodPost, path, url.Values{"text": {"First!"}})
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, detailPath, rr.Header().Get("Location"))

	// Пустой комментарий отбрасывается, ответ тот же
	rr = e.do(e.bob, http.MethodPost, path, url.Values{"text": {""}})
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, detailPath, rr.Header().Get("Location"))

	comments, err := e.store.ListCommentsByPostID(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, e.bob.ID, comments[0].AuthorID)

	rr = e.do(nil, http.MethodGet, detailPath, nil)
	assert.Contains(t, rr.Body.String(), "First!")

	rr = e.do(e.bob, http.MethodPost, "/posts/999/comment/", url.Values{"text": {"x"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFollow_RepeatLeavesOneRow(t *testing.T) {
	e := newTestEnv(t)
	e.createPost(t, e.alice, "For followers")

	for i := 0; i < 2; i++ {
		rr := e.do(e.bob, http.MethodPost, "/profile/alice/follow/", nil)
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/profile/alice/", rr.Header().Get("Location"))
	}
	n, err := e.store.CountFollows(context.Background(), e.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rr := e.do(e.bob, http.MethodGet, "/follow/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "For followers")

	rr = e.do(e.bob, http.MethodGet, "/profile/alice/", nil)
	assert.Contains(t, rr.Body.String(), "Unfollow")

	rr = e.do(e.bob, http.MethodPost, "/profile/alice/unfollow/", nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	following, err := e.store.IsFollowing(context.Background(), e.bob.ID, e.alice.ID)
	require.NoError(t, err)
	assert.False(t, following)

	rr = e.do(e.bob, http.MethodGet, "/follow/", nil)
	assert.NotContains(t, rr.Body.String(), "For followers")
}

func TestFollow_Self(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(e.alice, http.MethodGet, "/profile/alice/follow/", nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	n, err := e.store.CountFollows(context.Background(), e.alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	rr = e.do(e.alice, http.MethodPost, "/profile/nobody/follow/", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIndex_CachedUntilInvalidated(t *testing.T) {
	e := newTestEnv(t)
	e.createPost(t, e.alice, "First post")

	first := e.do(nil, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	// Запись мимо сервиса не очищает кэш
	_, err := e.store.CreatePost(context.Background(), &domain.Post{Text: "Sneaky post", AuthorID: e.alice.ID})
	require.NoError(t, err)

	second := e.do(nil, http.MethodGet, "/", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.NotContains(t, second.Body.String(), "Sneaky post")

	// Вошедший пользователь кэш не использует
	loggedIn := e.do(e.bob, http.MethodGet, "/", nil)
	assert.Empty(t, loggedIn.Header().Get("X-Cache"))
	assert.Contains(t, loggedIn.Body.String(), "Sneaky post")

	e.createPost(t, e.bob, "Fresh post")
	third := e.do(nil, http.MethodGet, "/", nil)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Contains(t, third.Body.String(), "Fresh post")
	assert.Contains(t, third.Body.String(), "Sneaky post")
}

func TestIndex_CacheKeyIgnoresForeignQuery(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 12; i++ {
		e.createPost(t, e.alice, fmt.Sprintf("post %02d", i))
	}

	for i := 0; i < 200; i++ {
		rr := e.do(nil, http.MethodGet, fmt.Sprintf("/?junk=%d", i), nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, 1, e.cache.Len())

	// Страницы за пределами диапазона прижимаются к последней и делят ее запись
	for _, path := range []string{"/?page=2", "/?page=999", "/?page=2&utm_source=x", "/?page=abc"} {
		rr := e.do(nil, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, 2, e.cache.Len())

	rr := e.do(nil, http.MethodGet, "/?page=999", nil)
	assert.Equal(t, "HIT", rr.Header().Get("X-Cache"))
	assert.Contains(t, rr.Body.String(), "post 00")
}

func TestIndex_Pagination(t *testing.T) {
	e := newTestEnv(t)
	for i := 0; i < 13; i++ {
		e.createPost(t, e.alice, fmt.Sprintf("post number %02d", i))
	}

	rr := e.do(e.bob, http.MethodGet, "/", nil)
	assert.Equal(t, 10, strings.Count(rr.Body.String(), `class="post"`))
	assert.Contains(t, rr.Body.String(), "post number 12")

	rr = e.do(e.bob, http.MethodGet, "/?page=2", nil)
	assert.Equal(t, 3, strings.Count(rr.Body.String(), `class="post"`))
	assert.Contains(t, rr.Body.String(), "post number 00")

	rr = e.do(e.bob, http.MethodGet, "/?page=100", nil)
	assert.Equal(t, 3, strings.Count(rr.Body.String(), `class="post"`))
}

func TestLoginLogout(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(nil, http.MethodPost, "/auth/login/", url.Values{"username": {"carol"}, "next": {"/follow/"}})
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/follow/", rr.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)

	carol, err := e.store.GetUserByUsername(context.Background(), "carol")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/follow/", nil)
	req.AddCookie(session)
	rr = httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/profile/"+carol.Username+"/")

	req = httptest.NewRequest(http.MethodPost, "/auth/logout/", nil)
	req.AddCookie(session)
	rr = httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusFound, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/follow/", nil)
	req.AddCookie(session)
	rr = httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusFound, rr.Code)
}

func TestLogin_Validation(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(nil, http.MethodPost, "/auth/login/", url.Values{"username": {"bad name"}})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "may not contain")

	rr = e.do(nil, http.MethodPost, "/auth/login/", url.Values{"username": {"alice"}, "next": {"//evil.example"}})
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestHeroFor(t *testing.T) {
	tests := map[string]string{
		"/":                          "hero-home",
		"/follow/":                   "hero-home",
		"/profile/alice/":            "hero-contact",
		"/posts/1/":                  "hero-edit",
		"/posts/1/edit/":             "hero-edit",
		"/posts/1/?next=/profile/x/": "hero-edit",
		"/group/go/":                 "hero-group",
		"/auth/login/":               "hero-login",
		"/about/profile/":            "",
		"/about/group/x/":            "",
		"/create/":                   "",
	}
	for path, want := range tests {
		assert.Equal(t, want, heroFor(path), path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(nil, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
