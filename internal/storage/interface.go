package storage

import (
	"context"
	"errors"

	"github.com/UkralStul/yatube/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// PostFilter ограничивает выборку постов. Нулевые поля не участвуют в фильтрации,
// нулевой фильтр означает "все посты".
type PostFilter struct {
	GroupID  int64
	AuthorID int64
	// FollowerID оставляет только посты авторов, на которых подписан этот пользователь.
	FollowerID int64
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error)
	GetGroupByID(ctx context.Context, id int64) (*domain.Group, error)
	ListGroups(ctx context.Context) ([]*domain.Group, error)
	// DeleteGroup удаляет группу, посты группы остаются без группы.
	DeleteGroup(ctx context.Context, id int64) error

	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id int64) (*domain.Post, error)
	UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	// DeletePost удаляет пост вместе с комментариями.
	DeletePost(ctx context.Context, id int64) error

	// Посты всегда отдаются от новых к старым.
	ListPosts(ctx context.Context, filter PostFilter, limit, offset int) ([]*domain.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int, error)

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	ListCommentsByPostID(ctx context.Context, postID int64) ([]*domain.Comment, error)

	// CreateFollow идемпотентен: повторная подписка не создает вторую запись
	// и не является ошибкой. created сообщает, была ли вставлена новая запись.
	CreateFollow(ctx context.Context, follow *domain.Follow) (created bool, err error)
	DeleteFollow(ctx context.Context, userID, authorID int64) error
	IsFollowing(ctx context.Context, userID, authorID int64) (bool, error)
	CountFollows(ctx context.Context, userID int64) (int, error)

	// Методы для Dataloader'ов
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*domain.User, error)
	GetGroupsByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Group, error)
}
