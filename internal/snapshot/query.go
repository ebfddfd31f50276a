package snapshot

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder orders query results
type SortOrder string

const (
	SortNone   SortOrder = ""
	SortLatest SortOrder = "latest"
	SortOldest SortOrder = "oldest"
	SortTitle  SortOrder = "title"
)

// DefaultPageSize is used when a query does not set one
const DefaultPageSize = 20

// Query filters and pages the books of a snapshot
type Query struct {
	Search    string   // case-insensitive match on title or author
	Libraries []string // library codes or names; empty means all
	Category  string   // KDC class number prefix, e.g. "8" or "813"
	NewOnly   bool
	Sort      SortOrder
	Page      int // 1-based
	PageSize  int
}

// Result is one page of a query
type Result struct {
	Books      []Book `json:"books"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
}

// HasMore reports whether a later page exists
func (r Result) HasMore() bool {
	return r.Page < r.TotalPages
}

// Query applies q to the snapshot's books
func (s *Snapshot) Query(q Query) Result {
	matched := make([]Book, 0, len(s.Books))
	search := strings.ToLower(strings.TrimSpace(q.Search))

	for _, b := range s.Books {
		if search != "" &&
			!strings.Contains(strings.ToLower(b.Title), search) &&
			!strings.Contains(strings.ToLower(b.Author), search) {
			continue
		}
		if len(q.Libraries) > 0 && !matchesLibrary(b, q.Libraries) {
			continue
		}
		if q.Category != "" && !strings.HasPrefix(b.ClassNo, q.Category) {
			continue
		}
		if q.NewOnly && !b.IsNew {
			continue
		}
		matched = append(matched, b)
	}

	sortBooks(matched, q.Sort)

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	totalPages := len(matched) / size
	if len(matched)%size != 0 {
		totalPages++
	}

	// page-1 < totalPages bounds the product by len(matched)
	start := len(matched)
	if page-1 < totalPages {
		start = (page - 1) * size
	}
	end := start + min(size, len(matched)-start)

	return Result{
		Books:      matched[start:end],
		Total:      len(matched),
		Page:       page,
		TotalPages: totalPages,
	}
}

func matchesLibrary(b Book, libraries []string) bool {
	for _, l := range libraries {
		if l == b.LibraryCode || l == b.Library {
			return true
		}
	}
	return false
}

// acquired is the best date we have for a book: registration date, else
// publication year.
func acquired(b Book) string {
	if b.RegDate != "" {
		return b.RegDate
	}
	return b.Year
}

func sortBooks(books []Book, order SortOrder) {
	switch order {
	case SortLatest:
		sort.SliceStable(books, func(i, j int) bool {
			return acquired(books[i]) > acquired(books[j])
		})
	case SortOldest:
		sort.SliceStable(books, func(i, j int) bool {
			return acquired(books[i]) < acquired(books[j])
		})
	case SortTitle:
		c := collate.New(language.Korean)
		sort.SliceStable(books, func(i, j int) bool {
			return c.CompareString(books[i].Title, books[j].Title) < 0
		})
	}
}
