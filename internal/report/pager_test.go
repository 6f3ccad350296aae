package report

import (
	"encoding/json"
	"strings"
	"testing"
)

func renderTokens(tokens []PageToken) string {
	parts := make([]string, 0, len(tokens))
	for _, token := range tokens {
		parts = append(parts, token.String())
	}
	return strings.Join(parts, " ")
}

func TestPageNumbers(t *testing.T) {
	cases := []struct {
		total    int
		current  int
		expected string
	}{
		{total: 10, current: 1, expected: "1 2 3 ... 10"},
		{total: 10, current: 2, expected: "1 2 3 ... 10"},
		{total: 10, current: 5, expected: "1 ... 4 5 6 ... 10"},
		{total: 10, current: 9, expected: "1 ... 8 9 10"},
		{total: 10, current: 10, expected: "1 ... 8 9 10"},
		{total: 6, current: 3, expected: "1 2 3 4 ... 6"},
		{total: 3, current: 2, expected: "1 2 3"},
		{total: 5, current: 5, expected: "1 2 3 4 5"},
		{total: 1, current: 1, expected: "1"},
		{total: 0, current: 1, expected: ""},
	}

	for _, tc := range cases {
		got := renderTokens(PageNumbers(tc.total, tc.current))
		if got != tc.expected {
			t.Fatalf("total=%d current=%d: expected %q, got %q", tc.total, tc.current, tc.expected, got)
		}
	}
}

func TestPageNumbersNoDuplicates(t *testing.T) {
	for total := 1; total <= 20; total++ {
		for current := 1; current <= total; current++ {
			seen := map[int]bool{}
			tokens := PageNumbers(total, current)
			for i, token := range tokens {
				if token.Ellipsis {
					if i > 0 && tokens[i-1].Ellipsis {
						t.Fatalf("total=%d current=%d: adjacent ellipses", total, current)
					}
					continue
				}
				if seen[token.Number] {
					t.Fatalf("total=%d current=%d: duplicate page %d", total, current, token.Number)
				}
				seen[token.Number] = true
			}
			if !seen[1] || !seen[total] || !seen[current] {
				t.Fatalf("total=%d current=%d: missing first, last or current in %s", total, current, renderTokens(tokens))
			}
		}
	}
}

func TestPageTokenJSON(t *testing.T) {
	data, err := json.Marshal(PageNumbers(10, 5))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	expected := `[1,"...",4,5,6,"...",10]`
	if string(data) != expected {
		t.Fatalf("expected %s, got %s", expected, data)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	cases := []struct {
		name        string
		page        int
		wantItems   []int
		wantCurrent int
	}{
		{name: "first page", page: 1, wantItems: []int{1, 2, 3, 4, 5}, wantCurrent: 1},
		{name: "last partial page", page: 3, wantItems: []int{11, 12}, wantCurrent: 3},
		{name: "clamped high", page: 9, wantItems: []int{11, 12}, wantCurrent: 3},
		{name: "clamped low", page: 0, wantItems: []int{1, 2, 3, 4, 5}, wantCurrent: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page := Paginate(items, PageSize, tc.page)
			if page.TotalPages != 3 {
				t.Fatalf("expected 3 pages, got %d", page.TotalPages)
			}
			if page.CurrentPage != tc.wantCurrent {
				t.Fatalf("expected current page %d, got %d", tc.wantCurrent, page.CurrentPage)
			}
			if len(page.Items) != len(tc.wantItems) {
				t.Fatalf("expected %v, got %v", tc.wantItems, page.Items)
			}
			for i := range tc.wantItems {
				if page.Items[i] != tc.wantItems[i] {
					t.Fatalf("expected %v, got %v", tc.wantItems, page.Items)
				}
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate([]ItemStat{}, 5, 1)
	if page.TotalPages != 0 || page.CurrentPage != 1 {
		t.Fatalf("expected {0 1}, got {%d %d}", page.TotalPages, page.CurrentPage)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %v", page.Items)
	}
}

func TestPaginateDoesNotAliasInput(t *testing.T) {
	items := []int{1, 2, 3}
	page := Paginate(items, 5, 1)
	page.Items[0] = 99
	if items[0] != 1 {
		t.Fatalf("expected input untouched")
	}
}
