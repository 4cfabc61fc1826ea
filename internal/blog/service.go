// Package blog содержит операции блога: ленты, посты, комментарии и подписки.
// Сервис не хранит состояния между запросами, все данные лежат в storage.
package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/UkralStul/yatube/internal/cache"
	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/live"
	"github.com/UkralStul/yatube/internal/media"
	"github.com/UkralStul/yatube/internal/paginator"
	"github.com/UkralStul/yatube/internal/storage"
)

type Service struct {
	store    storage.Storage
	cache    cache.Cache
	observer *live.Observer
	images   ImageSaver
	pageSize int
}

type Option func(*Service)

func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithObserver включает рассылку новых постов подписчикам живой ленты.
func WithObserver(o *live.Observer) Option {
	return func(s *Service) { s.observer = o }
}

func WithImages(images ImageSaver) Option {
	return func(s *Service) { s.images = images }
}

func New(store storage.Storage, c cache.Cache, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cache:    c,
		pageSize: paginator.PostsPerPage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Feed - страница ленты.
type Feed struct {
	Page  paginator.Page
	Posts []*domain.Post
}

type GroupFeed struct {
	Group *domain.Group
	Feed
}

type ProfileFeed struct {
	Author *domain.User
	// Following - подписан ли смотрящий на автора; для анонима всегда false.
	Following bool
	Feed
}

type PostDetail struct {
	Post     *domain.Post
	Comments []*domain.Comment
	// AuthorPosts - сколько всего постов у автора.
	AuthorPosts int
}

// === Feeds ===

func (s *Service) Index(ctx context.Context, rawPage string) (*Feed, error) {
	return s.feed(ctx, storage.PostFilter{}, rawPage)
}

// IndexPage возвращает страницу главной ленты с номером, прижатым к диапазону.
func (s *Service) IndexPage(ctx context.Context, rawPage string) (paginator.Page, error) {
	total, err := s.store.CountPosts(ctx, storage.PostFilter{})
	if err != nil {
		return paginator.Page{}, fmt.Errorf("count posts: %w", err)
	}
	return paginator.New(total, rawPage, s.pageSize), nil
}

func (s *Service) GroupPosts(ctx context.Context, slug, rawPage string) (*GroupFeed, error) {
	group, err := s.store.GetGroupBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	feed, err := s.feed(ctx, storage.PostFilter{GroupID: group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Feed: *feed}, nil
}

// Profile возвращает посты автора. viewer может быть nil.
func (s *Service) Profile(ctx context.Context, username string, viewer *domain.User, rawPage string) (*ProfileFeed, error) {
	author, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	feed, err := s.feed(ctx, storage.PostFilter{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	following := false
	if viewer != nil && viewer.ID != author.ID {
		following, err = s.store.IsFollowing(ctx, viewer.ID, author.ID)
		if err != nil {
			return nil, fmt.Errorf("check following: %w", err)
		}
	}
	return &ProfileFeed{Author: author, Following: following, Feed: *feed}, nil
}

// FollowIndex - посты авторов, на которых подписан viewer.
func (s *Service) FollowIndex(ctx context.Context, viewer *domain.User, rawPage string) (*Feed, error) {
	return s.feed(ctx, storage.PostFilter{FollowerID: viewer.ID}, rawPage)
}

func (s *Service) feed(ctx context.Context, filter storage.PostFilter, rawPage string) (*Feed, error) {
	total, err := s.store.CountPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	page := paginator.New(total, rawPage, s.pageSize)
	posts, err := s.store.ListPosts(ctx, filter, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return &Feed{Page: page, Posts: posts}, nil
}

// === Posts ===

func (s *Service) PostDetail(ctx context.Context, id int64) (*PostDetail, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListCommentsByPostID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	count, err := s.store.CountPosts(ctx, storage.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return nil, fmt.Errorf("count author posts: %w", err)
	}
	return &PostDetail{Post: post, Comments: comments, AuthorPosts: count}, nil
}

func (s *Service) CreatePost(ctx context.Context, author *domain.User, form PostForm) (*domain.Post, error) {
	if err := s.validatePost(ctx, form); err != nil {
		return nil, err
	}
	image, err := s.saveImage(form.Image)
	if err != nil {
		return nil, err
	}

	post := &domain.Post{
		Text:     strings.TrimSpace(form.Text),
		AuthorID: author.ID,
		GroupID:  groupRef(form.GroupID),
		Image:    image,
	}
	post, err = s.store.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.invalidate(ctx)
	s.publish(ctx, author, post)
	return post, nil
}

// PostForEdit возвращает пост, если editor - его автор.
func (s *Service) PostForEdit(ctx context.Context, editor *domain.User, id int64) (*domain.Post, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != editor.ID {
		return nil, ErrUnauthorized
	}
	return post, nil
}

// EditPost меняет текст, группу и, если загружена новая, картинку поста.
func (s *Service) EditPost(ctx context.Context, editor *domain.User, id int64, form PostForm) (*domain.Post, error) {
	post, err := s.PostForEdit(ctx, editor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validatePost(ctx, form); err != nil {
		return nil, err
	}
	image, err := s.saveImage(form.Image)
	if err != nil {
		return nil, err
	}

	post.Text = strings.TrimSpace(form.Text)
	post.GroupID = groupRef(form.GroupID)
	if image != "" {
		post.Image = image
	}
	post, err = s.store.UpdatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	s.invalidate(ctx)
	return post, nil
}

func (s *Service) saveImage(upload *Upload) (string, error) {
	if upload == nil {
		return "", nil
	}
	if s.images == nil {
		return "", &ValidationError{Fields: map[string]string{"image": "Image uploads are disabled."}}
	}
	path, err := s.images.Save(upload.Name, upload.Body)
	switch {
	case errors.Is(err, media.ErrNotImage):
		return "", &ValidationError{Fields: map[string]string{"image": "Upload a valid image."}}
	case errors.Is(err, media.ErrTooLarge):
		return "", &ValidationError{Fields: map[string]string{"image": "Image is too large."}}
	case err != nil:
		return "", fmt.Errorf("save image: %w", err)
	}
	return path, nil
}

// === Comments ===

func (s *Service) AddComment(ctx context.Context, author *domain.User, postID int64, form CommentForm) (*domain.Comment, error) {
	if _, err := s.store.GetPostByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := validateComment(form); err != nil {
		return nil, err
	}
	comment, err := s.store.CreateComment(ctx, &domain.Comment{
		PostID:   postID,
		AuthorID: author.ID,
		Text:     strings.TrimSpace(form.Text),
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// === Follows ===

// Follow подписывает user на автора username. Подписка на себя ничего не делает,
// повторная подписка не создает второй записи.
func (s *Service) Follow(ctx context.Context, user *domain.User, username string) error {
	author, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if author.ID != user.ID {
		created, err := s.store.CreateFollow(ctx, &domain.Follow{UserID: user.ID, AuthorID: author.ID})
		if err != nil {
			return fmt.Errorf("create follow: %w", err)
		}
		if created {
			log.Debugf("[blog] %s follows %s", user.Username, author.Username)
		}
	}
	s.invalidate(ctx)
	return nil
}

// Unfollow удаляет подписку, если она есть.
func (s *Service) Unfollow(ctx context.Context, user *domain.User, username string) error {
	author, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFollow(ctx, user.ID, author.ID); err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

// === Groups ===

func (s *Service) Groups(ctx context.Context) ([]*domain.Group, error) {
	return s.store.ListGroups(ctx)
}

// invalidate очищает кэш ленты до возврата из операции записи.
// Ошибка кэша не отменяет запись, кэш сам устареет по ttl.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Warnf("[blog] failed to invalidate feed cache: %v", err)
	}
}

func (s *Service) publish(ctx context.Context, author *domain.User, post *domain.Post) {
	if s.observer == nil {
		return
	}
	ev := live.PostEvent{
		ID:      post.ID,
		Author:  author.Username,
		Text:    post.Text,
		Created: post.Created,
	}
	if post.GroupID != nil {
		if g, err := s.store.GetGroupByID(ctx, *post.GroupID); err == nil {
			ev.Group = g.Slug
		}
	}
	s.observer.Publish(ev)
}

func groupRef(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
