// Package snapshot defines the JSON artifact a collection run produces and
// the helpers that write, read, query and check it.
package snapshot

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// DefaultSource is recorded in every snapshot built from the public API
	DefaultSource = "https://www.data4library.kr"
	// DefaultMarkedGroup is the JSON key of the marked library group
	DefaultMarkedGroup = "dalseong"

	// LoanStatusUnknown is used until the upstream reports live availability
	LoanStatusUnknown = "unknown"

	othersKey     = "others"
	totalCountKey = "totalCount"
)

// Library is a library the collector visited
type Library struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Telephone   string `json:"telephone,omitempty"`
	HomepageURL string `json:"homepageUrl,omitempty"`
}

// Book is the canonical book record served to readers
type Book struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Publisher   string `json:"publisher"`
	Year        string `json:"year"`
	ISBN        string `json:"isbn"`
	Category    string `json:"category"`
	Library     string `json:"library"`
	LibraryCode string `json:"libraryCode"`
	CallNumber  string `json:"callNumber"`
	ClassNo     string `json:"classNo"`
	ImageURL    string `json:"imageUrl"`
	Available   bool   `json:"available"`
	LoanStatus  string `json:"loanStatus"`
	RegDate     string `json:"regDate,omitempty"`
	IsNew       bool   `json:"isNew,omitempty"`
	LoanCount   int    `json:"loanCount,omitempty"`
	Ranking     int    `json:"ranking,omitempty"`
}

// Failure records a library (or one of its stages) that did not finish
type Failure struct {
	LibraryCode string `json:"libraryCode"`
	Library     string `json:"library"`
	Stage       string `json:"stage"` // items, popular
	Page        int    `json:"page,omitempty"`
	Status      int    `json:"status,omitempty"`
	Error       string `json:"error"`
}

// LibraryGroups is the libraries object of a snapshot. The marked group is
// written under MarkedKey, ahead of "others" and "totalCount".
type LibraryGroups struct {
	MarkedKey  string
	Marked     []Library
	Others     []Library
	TotalCount int
}

// All returns the marked group followed by the others
func (g LibraryGroups) All() []Library {
	out := make([]Library, 0, len(g.Marked)+len(g.Others))
	out = append(out, g.Marked...)
	return append(out, g.Others...)
}

func (g LibraryGroups) markedKey() string {
	if g.MarkedKey == "" || g.MarkedKey == othersKey || g.MarkedKey == totalCountKey {
		return DefaultMarkedGroup
	}
	return g.MarkedKey
}

// MarshalJSON implements json.Marshaler
func (g LibraryGroups) MarshalJSON() ([]byte, error) {
	marked := g.Marked
	if marked == nil {
		marked = []Library{}
	}
	others := g.Others
	if others == nil {
		others = []Library{}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range []struct {
		key   string
		value interface{}
	}{
		{g.markedKey(), marked},
		{othersKey, others},
		{totalCountKey, g.TotalCount},
	} {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Any array key other than
// "others" is taken as the marked group.
func (g *LibraryGroups) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*g = LibraryGroups{}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw := fields[k]
		switch k {
		case othersKey:
			if err := json.Unmarshal(raw, &g.Others); err != nil {
				return fmt.Errorf("libraries.others: %w", err)
			}
		case totalCountKey:
			if err := json.Unmarshal(raw, &g.TotalCount); err != nil {
				return fmt.Errorf("libraries.totalCount: %w", err)
			}
		default:
			if g.MarkedKey != "" || len(bytes.TrimSpace(raw)) == 0 || bytes.TrimSpace(raw)[0] != '[' {
				continue
			}
			g.MarkedKey = k
			if err := json.Unmarshal(raw, &g.Marked); err != nil {
				return fmt.Errorf("libraries.%s: %w", k, err)
			}
		}
	}
	return nil
}

// Snapshot is the aggregate written by one collection run
type Snapshot struct {
	UpdatedAt      time.Time     `json:"updatedAt"`
	Source         string        `json:"source"`
	Region         string        `json:"region"`
	Libraries      LibraryGroups `json:"libraries"`
	Books          []Book        `json:"books"`
	TotalBookCount int           `json:"totalBookCount"`
	Popular        []Book        `json:"popular,omitempty"`
	Failures       []Failure     `json:"failures,omitempty"`
}

// LibraryByCode finds a library in either group
func (s *Snapshot) LibraryByCode(code string) (Library, bool) {
	for _, lib := range s.Libraries.All() {
		if lib.Code == code {
			return lib, true
		}
	}
	return Library{}, false
}
