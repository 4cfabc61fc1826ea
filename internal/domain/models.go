package domain

import "time"

// User - внешний пользователь (автор постов, комментариев и подписок).
type User struct {
	ID       int64     `json:"id" gorm:"primaryKey"`
	Username string    `json:"username" gorm:"type:varchar(150);uniqueIndex;not null"`
	Joined   time.Time `json:"joined" gorm:"not null;default:now()"`
}

// Group - сообщество, к которому может относиться пост.
type Group struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"type:varchar(200);not null"`
	Slug        string `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text;not null"`
}

// Post представляет пост в системе.
type Post struct {
	ID       int64      `json:"id" gorm:"primaryKey"`
	Text     string     `json:"text" gorm:"type:text;not null"`
	Created  time.Time  `json:"created" gorm:"not null;index"`
	AuthorID int64      `json:"authorId" gorm:"not null;index"`
	Author   *User      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	GroupID  *int64     `json:"groupId,omitempty" gorm:"index"`
	Group    *Group     `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	Image    string     `json:"image,omitempty" gorm:"type:varchar(255);not null;default:''"`
	Comments []*Comment `json:"-" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"` // gorm only
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID       int64     `json:"id" gorm:"primaryKey"`
	PostID   int64     `json:"postId" gorm:"not null;index"`
	AuthorID int64     `json:"authorId" gorm:"not null;index"`
	Author   *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	Created  time.Time `json:"created" gorm:"not null;index"`
}

// Follow - подписка пользователя UserID на автора AuthorID.
// Пара (user, author) уникальна, за это отвечает хранилище.
type Follow struct {
	ID       int64     `json:"id" gorm:"primaryKey"`
	UserID   int64     `json:"userId" gorm:"not null;uniqueIndex:idx_follow_pair"`
	User     *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	AuthorID int64     `json:"authorId" gorm:"not null;index;uniqueIndex:idx_follow_pair"`
	Author   *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Created  time.Time `json:"created" gorm:"not null"`
}

// GroupIDValue возвращает id группы поста или 0, если группы нет.
func (p *Post) GroupIDValue() int64 {
	if p.GroupID == nil {
		return 0
	}
	return *p.GroupID
}
