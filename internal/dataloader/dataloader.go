package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	UserByID  *dataloader.Loader
	GroupByID *dataloader.Loader
}

// NewLoaders создает лоадеры поверх хранилища. Лоадеры кэшируют результаты,
// поэтому живут не дольше одного запроса.
func NewLoaders(store storage.Storage) *Loaders {
	usersFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids, err := parseKeys(keys)
		if err != nil {
			return errorResults(len(keys), err)
		}
		// Вызываем метод хранилища, который делает ОДИН запрос к БД
		users, err := store.GetUsersByIDs(ctx, ids)
		if err != nil {
			return errorResults(len(keys), err)
		}
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if u, ok := users[id]; ok {
				results[i] = &dataloader.Result{Data: u}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("user with id %d: %w", id, storage.ErrNotFound)}
			}
		}
		return results
	}

	groupsFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids, err := parseKeys(keys)
		if err != nil {
			return errorResults(len(keys), err)
		}
		groups, err := store.GetGroupsByIDs(ctx, ids)
		if err != nil {
			return errorResults(len(keys), err)
		}
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if g, ok := groups[id]; ok {
				results[i] = &dataloader.Result{Data: g}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("group with id %d: %w", id, storage.ErrNotFound)}
			}
		}
		return results
	}

	return &Loaders{
		UserByID:  dataloader.NewBatchedLoader(usersFn, dataloader.WithWait(time.Millisecond*1)),
		GroupByID: dataloader.NewBatchedLoader(groupsFn, dataloader.WithWait(time.Millisecond*1)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) (*Loaders, bool) {
	l, ok := ctx.Value(key).(*Loaders)
	return l, ok
}

// AttachPosts заполняет Author и Group у постов страницы.
// Все обращения к хранилищу собираются в один батч на каждый тип.
func (l *Loaders) AttachPosts(ctx context.Context, posts []*domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	authorKeys := make(dataloader.Keys, len(posts))
	var groupKeys dataloader.Keys
	var grouped []*domain.Post
	for i, p := range posts {
		authorKeys[i] = idKey(p.AuthorID)
		if p.GroupID != nil {
			groupKeys = append(groupKeys, idKey(*p.GroupID))
			grouped = append(grouped, p)
		}
	}

	authorsThunk := l.UserByID.LoadMany(ctx, authorKeys)
	var groupsThunk dataloader.ThunkMany
	if len(groupKeys) > 0 {
		groupsThunk = l.GroupByID.LoadMany(ctx, groupKeys)
	}

	authors, errs := authorsThunk()
	if err := firstError(errs); err != nil {
		return fmt.Errorf("load post authors: %w", err)
	}
	for i, p := range posts {
		p.Author = authors[i].(*domain.User)
	}

	if groupsThunk != nil {
		groups, errs := groupsThunk()
		if err := firstError(errs); err != nil {
			return fmt.Errorf("load post groups: %w", err)
		}
		for i, p := range grouped {
			p.Group = groups[i].(*domain.Group)
		}
	}
	return nil
}

// AttachComments заполняет Author у комментариев.
func (l *Loaders) AttachComments(ctx context.Context, comments []*domain.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	keys := make(dataloader.Keys, len(comments))
	for i, c := range comments {
		keys[i] = idKey(c.AuthorID)
	}
	authors, errs := l.UserByID.LoadMany(ctx, keys)()
	if err := firstError(errs); err != nil {
		return fmt.Errorf("load comment authors: %w", err)
	}
	for i, c := range comments {
		c.Author = authors[i].(*domain.User)
	}
	return nil
}

func idKey(id int64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatInt(id, 10))
}

func parseKeys(keys dataloader.Keys) ([]int64, error) {
	ids := make([]int64, len(keys))
	for i, k := range keys {
		id, err := strconv.ParseInt(k.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid loader key %q: %w", k.String(), err)
		}
		ids[i] = id
	}
	return ids, nil
}

func errorResults(n int, err error) []*dataloader.Result {
	// В случае ошибки, возвращаем ее для всех ключей
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
