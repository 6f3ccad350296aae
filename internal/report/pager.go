package report

import (
	"encoding/json"
	"strconv"
)

// PageSize is the fixed page size of the top-items and category views.
const PageSize = 5

type Page[T any] struct {
	Items       []T `json:"items"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
}

// Paginate slices items into 1-indexed pages. An out of range page is clamped
// into [1, TotalPages] instead of failing.
func Paginate[T any](items []T, pageSize int, currentPage int) Page[T] {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	totalPages := (len(items) + pageSize - 1) / pageSize
	if totalPages == 0 {
		return Page[T]{Items: []T{}, TotalPages: 0, CurrentPage: 1}
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	start := (currentPage - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	pageItems := make([]T, end-start)
	copy(pageItems, items[start:end])
	return Page[T]{Items: pageItems, TotalPages: totalPages, CurrentPage: currentPage}
}

// PageToken is either a page number or an ellipsis marker.
type PageToken struct {
	Number   int
	Ellipsis bool
}

func (t PageToken) String() string {
	if t.Ellipsis {
		return "..."
	}
	return strconv.Itoa(t.Number)
}

func (t PageToken) MarshalJSON() ([]byte, error) {
	if t.Ellipsis {
		return json.Marshal("...")
	}
	return json.Marshal(t.Number)
}

var ellipsis = PageToken{Ellipsis: true}

// PageNumbers builds the compact page index shown under a ranked list, e.g.
// total=10 current=5 gives 1 … 4 5 6 … 10.
func PageNumbers(total int, current int) []PageToken {
	if total <= 0 {
		return []PageToken{}
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	out := make([]PageToken, 0, 7)
	seen := make(map[int]struct{}, 7)
	push := func(n int) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, PageToken{Number: n})
	}

	if total <= 5 {
		for n := 1; n <= total; n++ {
			push(n)
		}
		return out
	}

	start := maxInt(2, current-1)
	end := minInt(total-1, current+1)
	// Keep three pages in the window at either edge.
	if current <= 2 {
		end = minInt(total-1, 3)
	}
	if current >= total-1 {
		start = maxInt(2, total-2)
	}

	push(1)
	if start > 2 {
		out = append(out, ellipsis)
	}
	for n := start; n <= end; n++ {
		push(n)
	}
	if end < total-1 {
		out = append(out, ellipsis)
	}
	push(total)
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
