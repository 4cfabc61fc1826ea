package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const newestFirst = "created DESC, id DESC"

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
// Схема не мигрируется автоматически, для этого есть Migrate.
func New(dsn string, logLevel logger.LogLevel) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// Migrate выполняет миграцию схемы.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&domain.User{},
		&domain.Group{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Follow{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Ping проверяет соединение с базой.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate приводит ошибки gorm к ошибкам пакета storage.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, storage.ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.Joined.IsZero() {
		user.Joined = s.db.NowFunc()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("username %q", user.Username))
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("user with id %d", id))
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("user %q", username))
	}
	return &user, nil
}

// === Group Methods ===

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("group slug %q", group.Slug))
	}
	return group, nil
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	var group domain.Group
	if err := s.db.WithContext(ctx).First(&group, "slug = ?", slug).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("group %q", slug))
	}
	return &group, nil
}

func (s *Store) GetGroupByID(ctx context.Context, id int64) (*domain.Group, error) {
	var group domain.Group
	if err := s.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("group with id %d", id))
	}
	return &group, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	var groups []*domain.Group
	err := s.db.WithContext(ctx).Order("title ASC").Find(&groups).Error
	return groups, err
}

func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	// Посты группы остаются, group_id обнуляется в той же транзакции
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Post{}).Where("group_id = ?", id).Update("group_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Group{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("group with id %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	post.Created = s.db.NowFunc()
	// Связи (Author, Group) не сохраняем, только внешние ключи
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, translate(err, "create post")
	}
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id int64) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("post with id %d", id))
	}
	return &post, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	var updated domain.Post
	// Используем транзакцию для атомарности операции чтения-записи
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, "id = ?", post.ID).Error; err != nil {
			return err
		}
		updated.Text = post.Text
		updated.Image = post.Image
		updated.GroupID = post.GroupID
		return tx.Model(&updated).
			Updates(map[string]any{"text": updated.Text, "image": updated.Image, "group_id": updated.GroupID}).
			Error
	})
	if err != nil {
		return nil, translate(err, fmt.Sprintf("post with id %d", post.ID))
	}
	return &updated, nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) postsQuery(ctx context.Context, filter storage.PostFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&domain.Post{})
	if filter.GroupID != 0 {
		query = query.Where("group_id = ?", filter.GroupID)
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.FollowerID != 0 {
		followed := s.db.Model(&domain.Follow{}).Select("author_id").Where("user_id = ?", filter.FollowerID)
		query = query.Where("author_id IN (?)", followed)
	}
	return query
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, limit, offset int) ([]*domain.Post, error) {
	posts := make([]*domain.Post, 0, limit)
	err := s.postsQuery(ctx, filter).
		Order(newestFirst).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (s *Store) CountPosts(ctx context.Context, filter storage.PostFilter) (int, error) {
	var n int64
	if err := s.postsQuery(ctx, filter).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	comment.Created = s.db.NowFunc()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.Post{}).Where("id = ?", comment.PostID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("post with id %d: %w", comment.PostID, storage.ErrNotFound)
		}
		return tx.Omit(clause.Associations).Create(comment).Error
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, translate(err, "create comment")
	}
	return comment, nil
}

func (s *Store) ListCommentsByPostID(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	comments := make([]*domain.Comment, 0)
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order(newestFirst).
		Find(&comments).Error
	return comments, err
}

// === Follow Methods ===

func (s *Store) CreateFollow(ctx context.Context, follow *domain.Follow) (bool, error) {
	follow.Created = s.db.NowFunc()
	// Уникальный индекс idx_follow_pair делает вставку идемпотентной без чтения перед записью
	res := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "author_id"}},
			DoNothing: true,
		}).
		Create(follow)
	if res.Error != nil {
		return false, translate(res.Error, "create follow")
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) DeleteFollow(ctx context.Context, userID, authorID int64) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&domain.Follow{}).Error
}

func (s *Store) IsFollowing(ctx context.Context, userID, authorID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) CountFollows(ctx context.Context, userID int64) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return int(count), err
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*domain.User, error) {
	var users []*domain.User
	// Загружаем всех пользователей одним запросом
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	result := make(map[int64]*domain.User, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (s *Store) GetGroupsByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Group, error) {
	var groups []*domain.Group
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, err
	}
	result := make(map[int64]*domain.Group, len(groups))
	for _, g := range groups {
		result[g.ID] = g
	}
	return result, nil
}
