package blog

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/UkralStul/yatube/internal/storage"
)

const MaxCommentLength = 2000

// Upload - файл картинки из формы поста.
type Upload struct {
	Name string
	Body io.Reader
}

// PostForm - данные формы создания и редактирования поста.
type PostForm struct {
	Text    string
	GroupID int64
	Image   *Upload
}

type CommentForm struct {
	Text string
}

// ImageSaver сохраняет картинку и возвращает путь к ней.
type ImageSaver interface {
	Save(name string, r io.Reader) (string, error)
}

func (s *Service) validatePost(ctx context.Context, form PostForm) error {
	verr := &ValidationError{}
	if strings.TrimSpace(form.Text) == "" {
		verr.add("text", "Post text is required.")
	}
	if form.GroupID != 0 {
		if _, err := s.store.GetGroupByID(ctx, form.GroupID); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			verr.add("group", "Select a valid group.")
		}
	}
	return verr.orNil()
}

func validateComment(form CommentForm) error {
	verr := &ValidationError{}
	text := strings.TrimSpace(form.Text)
	switch {
	case text == "":
		verr.add("text", "Comment text is required.")
	case utf8.RuneCountInString(form.Text) > MaxCommentLength:
		verr.add("text", "Comment is too long.")
	}
	return verr.orNil()
}
