package paginator

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_PageCount(t *testing.T) {
	for _, size := range []int{1, 3, 10} {
		for total := 0; total <= 35; total++ {
			p := New(total, "1", size)

			wantPages := (total + size - 1) / size
			if wantPages == 0 {
				wantPages = 1
			}
			assert.Equal(t, wantPages, p.NumPages, "total=%d size=%d", total, size)

			items := make([]int, total)
			assert.Len(t, Slice(items, p), min(total, size), "total=%d size=%d", total, size)
		}
	}
}

func TestNew_Clamping(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "absent", raw: "", want: 1},
		{name: "garbage", raw: "abc", want: 1},
		{name: "zero", raw: "0", want: 1},
		{name: "negative", raw: "-3", want: 1},
		{name: "valid", raw: "2", want: 2},
		{name: "padded", raw: " 3 ", want: 3},
		{name: "last", raw: "3", want: 3},
		{name: "beyond last", raw: "42", want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(25, tt.raw, 10)
			assert.Equal(t, tt.want, p.Number)
		})
	}
}

func TestPage_Navigation(t *testing.T) {
	first := New(25, "1", 10)
	assert.False(t, first.HasPrevious())
	assert.True(t, first.HasNext())
	assert.Equal(t, 2, first.NextNumber())
	assert.Equal(t, 0, first.Offset())
	assert.Equal(t, 10, first.Limit())

	last := New(25, "3", 10)
	assert.True(t, last.HasPrevious())
	assert.False(t, last.HasNext())
	assert.Equal(t, 2, last.PreviousNumber())
	assert.Equal(t, 3, last.NextNumber())
	assert.Equal(t, 20, last.Offset())
	assert.Equal(t, []int{1, 2, 3}, last.Range())

	single := New(3, "", 10)
	assert.False(t, single.HasOtherPages())
}

func TestSlice(t *testing.T) {
	items := make([]string, 25)
	for i := range items {
		items[i] = strconv.Itoa(i)
	}

	assert.Equal(t, items[:10], Slice(items, New(len(items), "1", 10)))
	assert.Equal(t, items[20:], Slice(items, New(len(items), "3", 10)))
	// За пределами - последняя страница
	assert.Equal(t, items[20:], Slice(items, New(len(items), "100", 10)))
	assert.Empty(t, Slice([]string{}, New(0, "5", 10)))
}

func TestNew_DefaultSize(t *testing.T) {
	p := New(11, "", 0)
	assert.Equal(t, PostsPerPage, p.Size)
	assert.Equal(t, 2, p.NumPages)
}
