package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore создает хранилище с автором, группой и одним постом для тестов
func newTestStore(t *testing.T) (*Store, *domain.User, *domain.Group, *domain.Post) {
	store := New()
	ctx := context.Background()

	author, err := store.CreateUser(ctx, &domain.User{Username: "author"})
	require.NoError(t, err)
	group, err := store.CreateGroup(ctx, &domain.Group{Title: "Test group", Slug: "test-slug", Description: "Test description"})
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, &domain.Post{Text: "Test post", AuthorID: author.ID, GroupID: &group.ID})
	require.NoError(t, err)
	return store, author, group, post
}

func TestStore_CreateAndGetPost(t *testing.T) {
	store, author, group, post := newTestStore(t)
	ctx := context.Background()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test post", retrieved.Text)
	assert.Equal(t, author.ID, retrieved.AuthorID)
	assert.Equal(t, group.ID, retrieved.GroupIDValue())
	assert.False(t, retrieved.Created.IsZero())

	_, err = store.GetPostByID(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_CreatePost_UnknownRefs(t *testing.T) {
	store, author, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreatePost(ctx, &domain.Post{Text: "x", AuthorID: 999})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	missing := int64(999)
	_, err = store.CreatePost(ctx, &domain.Post{Text: "x", AuthorID: author.ID, GroupID: &missing})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ReturnedPostsAreCopies(t *testing.T) {
	store, _, _, post := newTestStore(t)
	ctx := context.Background()

	post.Text = "changed outside"
	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test post", retrieved.Text)
}

func TestStore_UniqueUsernameAndSlug(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, &domain.User{Username: "author"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	_, err = store.CreateGroup(ctx, &domain.Group{Title: "Other", Slug: "test-slug"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestStore_ListPosts_NewestFirst(t *testing.T) {
	store := New()
	ctx := context.Background()
	author, err := store.CreateUser(ctx, &domain.User{Username: "author"})
	require.NoError(t, err)

	// Время создания идет не по порядку вставки
	base := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	offsets := []time.Duration{2 * time.Hour, 0, 5 * time.Hour, time.Hour}
	for i, off := range offsets {
		created := base.Add(off)
		store.now = func() time.Time { return created }
		_, err := store.CreatePost(ctx, &domain.Post{Text: string(rune('a' + i)), AuthorID: author.ID})
		require.NoError(t, err)
	}

	posts, err := store.ListPosts(ctx, storage.PostFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 4)
	assert.Equal(t, []string{"c", "a", "d", "b"}, texts(posts))
}

func TestStore_ListPosts_SameTimestampNewestIDFirst(t *testing.T) {
	store := New()
	ctx := context.Background()
	author, err := store.CreateUser(ctx, &domain.User{Username: "author"})
	require.NoError(t, err)

	fixed := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	for _, text := range []string{"first", "second", "third"} {
		_, err := store.CreatePost(ctx, &domain.Post{Text: text, AuthorID: author.ID})
		require.NoError(t, err)
	}

	posts, err := store.ListPosts(ctx, storage.PostFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, texts(posts))
}

func TestStore_ListPosts_Filters(t *testing.T) {
	store, author, group, _ := newTestStore(t)
	ctx := context.Background()

	other, err := store.CreateUser(ctx, &domain.User{Username: "other"})
	require.NoError(t, err)
	reader, err := store.CreateUser(ctx, &domain.User{Username: "reader"})
	require.NoError(t, err)

	_, err = store.CreatePost(ctx, &domain.Post{Text: "no group", AuthorID: author.ID})
	require.NoError(t, err)
	_, err = store.CreatePost(ctx, &domain.Post{Text: "other post", AuthorID: other.ID, GroupID: &group.ID})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter storage.PostFilter
		want   []string
	}{
		{name: "all", filter: storage.PostFilter{}, want: []string{"other post", "no group", "Test post"}},
		{name: "by group", filter: storage.PostFilter{GroupID: group.ID}, want: []string{"other post", "Test post"}},
		{name: "by author", filter: storage.PostFilter{AuthorID: author.ID}, want: []string{"no group", "Test post"}},
		{name: "follower without follows", filter: storage.PostFilter{FollowerID: reader.ID}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := store.ListPosts(ctx, tt.filter, 10, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, texts(posts))

			n, err := store.CountPosts(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), n)
		})
	}

	_, err = store.CreateFollow(ctx, &domain.Follow{UserID: reader.ID, AuthorID: other.ID})
	require.NoError(t, err)
	posts, err := store.ListPosts(ctx, storage.PostFilter{FollowerID: reader.ID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"other post"}, texts(posts))
}

func TestStore_Pagination(t *testing.T) {
	store, author, _, _ := newTestStore(t)
	ctx := context.Background()

	// Вместе с постом из newTestStore получится 5 постов
	for i := 0; i < 4; i++ {
		_, err := store.CreatePost(ctx, &domain.Post{Text: "some post", AuthorID: author.ID})
		require.NoError(t, err)
	}

	firstPage, err := store.ListPosts(ctx, storage.PostFilter{}, 2, 0)
	require.NoError(t, err)
	require.Len(t, firstPage, 2)

	lastPage, err := store.ListPosts(ctx, storage.PostFilter{}, 2, 4)
	require.NoError(t, err)
	require.Len(t, lastPage, 1)
	assert.Equal(t, "Test post", lastPage[0].Text)

	beyond, err := store.ListPosts(ctx, storage.PostFilter{}, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestStore_UpdatePost(t *testing.T) {
	store, _, _, post := newTestStore(t)
	ctx := context.Background()

	post.Text = "Edited"
	post.GroupID = nil
	updated, err := store.UpdatePost(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Text)
	assert.Nil(t, updated.GroupID)
	assert.Equal(t, post.Created, updated.Created)

	_, err = store.UpdatePost(ctx, &domain.Post{ID: 999, Text: "x", AuthorID: post.AuthorID})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_DeleteGroup_NullsPostGroup(t *testing.T) {
	store, _, group, post := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.DeleteGroup(ctx, group.ID))

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, retrieved.GroupID)

	_, err = store.GetGroupBySlug(ctx, "test-slug")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteGroup(ctx, group.ID), storage.ErrNotFound)
}

func TestStore_DeletePost_CascadesComments(t *testing.T) {
	store, author, _, post := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Text: "comment"})
		require.NoError(t, err)
	}
	comments, err := store.ListCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)

	require.NoError(t, store.DeletePost(ctx, post.ID))

	comments, err = store.ListCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.Empty(t, store.comments)
}

func TestStore_CreateComment(t *testing.T) {
	store, author, _, post := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Text: "First comment!"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: author.ID, Text: "Second comment!"})
	require.NoError(t, err)

	comments, err := store.ListCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "Second comment!", comments[0].Text)

	_, err = store.CreateComment(ctx, &domain.Comment{PostID: 999, AuthorID: author.ID, Text: "orphan"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_Follow_Idempotent(t *testing.T) {
	store, author, _, _ := newTestStore(t)
	ctx := context.Background()
	reader, err := store.CreateUser(ctx, &domain.User{Username: "reader"})
	require.NoError(t, err)

	created, err := store.CreateFollow(ctx, &domain.Follow{UserID: reader.ID, AuthorID: author.ID})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateFollow(ctx, &domain.Follow{UserID: reader.ID, AuthorID: author.ID})
	require.NoError(t, err)
	assert.False(t, created)

	n, err := store.CountFollows(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	following, err := store.IsFollowing(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// Обратное направление - другая подписка
	following, err = store.IsFollowing(ctx, author.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, following)

	require.NoError(t, store.DeleteFollow(ctx, reader.ID, author.ID))
	require.NoError(t, store.DeleteFollow(ctx, reader.ID, author.ID))
	following, err = store.IsFollowing(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestStore_GetByIDsForLoaders(t *testing.T) {
	store, author, group, _ := newTestStore(t)
	ctx := context.Background()

	users, err := store.GetUsersByIDs(ctx, []int64{author.ID, 999})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "author", users[author.ID].Username)

	groups, err := store.GetGroupsByIDs(ctx, []int64{group.ID})
	require.NoError(t, err)
	assert.Equal(t, "test-slug", groups[group.ID].Slug)
}

func texts(posts []*domain.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Text)
	}
	return out
}
