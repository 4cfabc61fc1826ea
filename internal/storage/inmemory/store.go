package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
)

type followKey struct {
	userID, authorID int64
}

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются копии записей, чтобы вызывающий код не мог менять состояние хранилища.
type Store struct {
	mu       sync.RWMutex
	lastID   int64
	now      func() time.Time
	users    map[int64]*domain.User
	groups   map[int64]*domain.Group
	posts    map[int64]*domain.Post
	comments map[int64]*domain.Comment
	follows  map[followKey]*domain.Follow

	usernames map[string]int64
	slugs     map[string]int64
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		now:       func() time.Time { return time.Now().UTC() },
		users:     make(map[int64]*domain.User),
		groups:    make(map[int64]*domain.Group),
		posts:     make(map[int64]*domain.Post),
		comments:  make(map[int64]*domain.Comment),
		follows:   make(map[followKey]*domain.Follow),
		usernames: make(map[string]int64),
		slugs:     make(map[string]int64),
	}
}

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernames[user.Username]; ok {
		return nil, fmt.Errorf("username %q: %w", user.Username, storage.ErrDuplicate)
	}
	u := *user
	u.ID = s.nextID()
	if u.Joined.IsZero() {
		u.Joined = s.now()
	}
	s.users[u.ID] = &u
	s.usernames[u.Username] = u.ID
	out := u
	return &out, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %d: %w", id, storage.ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
	}
	out := *s.users[id]
	return &out, nil
}

// === Group Methods ===

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slugs[group.Slug]; ok {
		return nil, fmt.Errorf("group slug %q: %w", group.Slug, storage.ErrDuplicate)
	}
	g := *group
	g.ID = s.nextID()
	s.groups[g.ID] = &g
	s.slugs[g.Slug] = g.ID
	out := g
	return &out, nil
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slugs[slug]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", slug, storage.ErrNotFound)
	}
	out := *s.groups[id]
	return &out, nil
}

func (s *Store) GetGroupByID(ctx context.Context, id int64) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group with id %d: %w", id, storage.ErrNotFound)
	}
	out := *g
	return &out, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*domain.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out := *g
		groups = append(groups, &out)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Title < groups[j].Title
	})
	return groups, nil
}

func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return fmt.Errorf("group with id %d: %w", id, storage.ErrNotFound)
	}
	// Посты не удаляются, у них просто обнуляется ссылка на группу
	for _, p := range s.posts {
		if p.GroupID != nil && *p.GroupID == id {
			p.GroupID = nil
		}
	}
	delete(s.slugs, g.Slug)
	delete(s.groups, id)
	return nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPostRefs(post); err != nil {
		return nil, err
	}
	p := clonePost(post)
	p.ID = s.nextID()
	p.Created = s.now()
	s.posts[p.ID] = p
	return clonePost(p), nil
}

func (s *Store) GetPostByID(ctx context.Context, id int64) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	return clonePost(p), nil
}

func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.posts[post.ID]
	if !ok {
		return nil, fmt.Errorf("post with id %d: %w", post.ID, storage.ErrNotFound)
	}
	if err := s.checkPostRefs(post); err != nil {
		return nil, err
	}
	// Автор и дата создания не меняются при редактировании
	stored.Text = post.Text
	stored.Image = post.Image
	stored.GroupID = cloneID(post.GroupID)
	return clonePost(stored), nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post with id %d: %w", id, storage.ErrNotFound)
	}
	for cID, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cID)
		}
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, limit, offset int) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.filterPosts(filter)
	sort.Slice(posts, func(i, j int) bool {
		return newer(posts[i].Created, posts[i].ID, posts[j].Created, posts[j].ID)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(posts) {
		return []*domain.Post{}, nil
	}
	end := len(posts)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*domain.Post, 0, end-offset)
	for _, p := range posts[offset:end] {
		out = append(out, clonePost(p))
	}
	return out, nil
}

func (s *Store) CountPosts(ctx context.Context, filter storage.PostFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.filterPosts(filter)), nil
}

// filterPosts вызывается под блокировкой.
func (s *Store) filterPosts(filter storage.PostFilter) []*domain.Post {
	var followed map[int64]bool
	if filter.FollowerID != 0 {
		followed = make(map[int64]bool)
		for k := range s.follows {
			if k.userID == filter.FollowerID {
				followed[k.authorID] = true
			}
		}
	}

	posts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if filter.GroupID != 0 && p.GroupIDValue() != filter.GroupID {
			continue
		}
		if filter.AuthorID != 0 && p.AuthorID != filter.AuthorID {
			continue
		}
		if followed != nil && !followed[p.AuthorID] {
			continue
		}
		posts = append(posts, p)
	}
	return posts
}

func (s *Store) checkPostRefs(post *domain.Post) error {
	if _, ok := s.users[post.AuthorID]; !ok {
		return fmt.Errorf("author with id %d: %w", post.AuthorID, storage.ErrNotFound)
	}
	if post.GroupID != nil {
		if _, ok := s.groups[*post.GroupID]; !ok {
			return fmt.Errorf("group with id %d: %w", *post.GroupID, storage.ErrNotFound)
		}
	}
	return nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[comment.PostID]; !ok {
		return nil, fmt.Errorf("post with id %d: %w", comment.PostID, storage.ErrNotFound)
	}
	if _, ok := s.users[comment.AuthorID]; !ok {
		return nil, fmt.Errorf("author with id %d: %w", comment.AuthorID, storage.ErrNotFound)
	}

	c := *comment
	c.Author = nil
	c.ID = s.nextID()
	c.Created = s.now()
	s.comments[c.ID] = &c
	out := c
	return &out, nil
}

func (s *Store) ListCommentsByPostID(ctx context.Context, postID int64) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]*domain.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID {
			out := *c
			comments = append(comments, &out)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return newer(comments[i].Created, comments[i].ID, comments[j].Created, comments[j].ID)
	})
	return comments, nil
}

// === Follow Methods ===

func (s *Store) CreateFollow(ctx context.Context, follow *domain.Follow) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []int64{follow.UserID, follow.AuthorID} {
		if _, ok := s.users[id]; !ok {
			return false, fmt.Errorf("user with id %d: %w", id, storage.ErrNotFound)
		}
	}

	// Проверка и вставка под одной блокировкой, гонки за дубликат нет
	key := followKey{follow.UserID, follow.AuthorID}
	if existing, ok := s.follows[key]; ok {
		follow.ID = existing.ID
		follow.Created = existing.Created
		return false, nil
	}

	f := *follow
	f.User, f.Author = nil, nil
	f.ID = s.nextID()
	f.Created = s.now()
	s.follows[key] = &f
	follow.ID = f.ID
	follow.Created = f.Created
	return true, nil
}

func (s *Store) DeleteFollow(ctx context.Context, userID, authorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.follows, followKey{userID, authorID})
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, userID, authorID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.follows[followKey{userID, authorID}]
	return ok, nil
}

func (s *Store) CountFollows(ctx context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.follows {
		if k.userID == userID {
			n++
		}
	}
	return n, nil
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[int64]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out := *u
			results[id] = &out
		}
	}
	return results, nil
}

func (s *Store) GetGroupsByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[int64]*domain.Group, len(ids))
	for _, id := range ids {
		if g, ok := s.groups[id]; ok {
			out := *g
			results[id] = &out
		}
	}
	return results, nil
}

// newer - порядок "сначала новые"; при равном времени выше запись с большим id.
func newer(aCreated time.Time, aID int64, bCreated time.Time, bID int64) bool {
	if aCreated.Equal(bCreated) {
		return aID > bID
	}
	return aCreated.After(bCreated)
}

func clonePost(p *domain.Post) *domain.Post {
	out := *p
	out.GroupID = cloneID(p.GroupID)
	out.Author = nil
	out.Group = nil
	out.Comments = nil
	return &out
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
