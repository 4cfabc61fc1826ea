// Package media сохраняет загруженные к постам картинки.
package media

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize - предельный размер загружаемой картинки.
const MaxImageSize = 5 << 20

const uploadDir = "posts"

var (
	ErrNotImage = errors.New("uploaded file is not an image")
	ErrTooLarge = errors.New("uploaded file is too large")
)

type Store struct {
	dir     string
	maxSize int64
}

func New(dir string) *Store {
	return &Store{dir: dir, maxSize: MaxImageSize}
}

// Save проверяет, что r содержит картинку, и сохраняет ее под случайным именем.
// Возвращает путь относительно корня медиа, например "posts/<uuid>.gif".
func (s *Store) Save(name string, r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return "", ErrNotImage
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}

	if err := os.MkdirAll(filepath.Join(s.dir, uploadDir), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	rel := path.Join(uploadDir, uuid.NewString()+extension(name, contentType))
	dst := filepath.Join(s.dir, filepath.FromSlash(rel))

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(br, s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return rel, nil
}

// Handler раздает сохраненные файлы, путь запроса - без префикса.
func (s *Store) Handler() http.Handler {
	return http.FileServer(http.Dir(s.dir))
}

func extension(name, contentType string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".gif", ".jpg", ".jpeg", ".png", ".webp", ".bmp":
		return ext
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
