package commands

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the configured store with demo data",
	Long: `Create demo users, groups, posts, comments and a follow.
Existing users and groups with the same names are reused.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		return seed(ctx, store)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seed заполняет хранилище тестовыми данными.
func seed(ctx context.Context, s storage.Storage) error {
	// 1. Авторы
	leo, err := ensureUser(ctx, s, "leo")
	if err != nil {
		return err
	}
	anna, err := ensureUser(ctx, s, "anna")
	if err != nil {
		return err
	}

	// 2. Группы
	gophers, err := ensureGroup(ctx, s, &domain.Group{
		Title:       "Gophers",
		Slug:        "gophers",
		Description: "Everything about Go.",
	})
	if err != nil {
		return err
	}
	if _, err := ensureGroup(ctx, s, &domain.Group{
		Title:       "Travel",
		Slug:        "travel",
		Description: "Notes from the road.",
	}); err != nil {
		return err
	}

	// 3. Посты: один в группе, один без группы
	post, err := s.CreatePost(ctx, &domain.Post{
		Text:     "Первый пост в группе Gophers. Здесь мы обсуждаем Go.",
		AuthorID: leo.ID,
		GroupID:  &gophers.ID,
	})
	if err != nil {
		return fmt.Errorf("seed: failed to create post: %w", err)
	}
	if _, err := s.CreatePost(ctx, &domain.Post{
		Text:     "Пост без группы.",
		AuthorID: anna.ID,
	}); err != nil {
		return fmt.Errorf("seed: failed to create post: %w", err)
	}

	// 4. Комментарии к первому посту
	for _, c := range []*domain.Comment{
		{PostID: post.ID, AuthorID: anna.ID, Text: "Отличный пост! Очень информативно."},
		{PostID: post.ID, AuthorID: leo.ID, Text: "Спасибо! Рад, что вам понравилось."},
	} {
		if _, err := s.CreateComment(ctx, c); err != nil {
			return fmt.Errorf("seed: failed to create comment: %w", err)
		}
	}

	// 5. anna подписана на leo
	if _, err := s.CreateFollow(ctx, &domain.Follow{UserID: anna.ID, AuthorID: leo.ID}); err != nil {
		return fmt.Errorf("seed: failed to create follow: %w", err)
	}

	log.Infof("[seed] demo data filled, post ID: %d", post.ID)
	return nil
}

func ensureUser(ctx context.Context, s storage.Storage, username string) (*domain.User, error) {
	u, err := s.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		u, err = s.CreateUser(ctx, &domain.User{Username: username})
	}
	if err != nil {
		return nil, fmt.Errorf("seed: user %s: %w", username, err)
	}
	return u, nil
}

func ensureGroup(ctx context.Context, s storage.Storage, group *domain.Group) (*domain.Group, error) {
	g, err := s.GetGroupBySlug(ctx, group.Slug)
	if errors.Is(err, storage.ErrNotFound) {
		g, err = s.CreateGroup(ctx, group)
	}
	if err != nil {
		return nil, fmt.Errorf("seed: group %s: %w", group.Slug, err)
	}
	return g, nil
}
