// Package paginator делит упорядоченную выборку на страницы фиксированного размера.
package paginator

import (
	"strconv"
	"strings"
)

// PostsPerPage - размер страницы по умолчанию.
const PostsPerPage = 10

// Page описывает одну страницу выборки. Номер страницы начинается с 1.
type Page struct {
	Number   int
	NumPages int
	Size     int
	Total    int
}

// New возвращает страницу с номером из raw для выборки длиной total.
// Пустой или нечисловой номер дает первую страницу, номер за пределами
// диапазона прижимается к ближайшей существующей странице.
func New(total int, raw string, size int) Page {
	if size <= 0 {
		size = PostsPerPage
	}
	if total < 0 {
		total = 0
	}

	numPages := (total + size - 1) / size
	if numPages == 0 {
		// Пустая выборка - одна пустая страница
		numPages = 1
	}

	number, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	return Page{Number: number, NumPages: numPages, Size: size, Total: total}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Page) Limit() int {
	return p.Size
}

func (p Page) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}

func (p Page) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

func (p Page) NextNumber() int {
	if !p.HasNext() {
		return p.Number
	}
	return p.Number + 1
}

func (p Page) PreviousNumber() int {
	if !p.HasPrevious() {
		return p.Number
	}
	return p.Number - 1
}

// Range возвращает номера всех страниц, для ссылок в шаблоне.
func (p Page) Range() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Slice применяет страницу к срезу, уже загруженному в память.
func Slice[T any](items []T, p Page) []T {
	start := p.Offset()
	if start >= len(items) {
		return items[len(items):]
	}
	end := start + p.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
