package collector

import (
	"fmt"
	"strings"

	"github.com/billmal071/narubooks/internal/snapshot"
)

// Scope selects whether the owning library is part of a book's identity
type Scope string

const (
	// ScopeLibrary keeps one record per title per library
	ScopeLibrary Scope = "library"
	// ScopeGlobal keeps one record per title across all libraries
	ScopeGlobal Scope = "global"
)

// ParseScope parses a dedupe scope, defaulting to ScopeLibrary
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeLibrary:
		return ScopeLibrary, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	default:
		return "", fmt.Errorf("unknown dedupe scope %q (use library or global)", s)
	}
}

// Key returns b's identity: ISBN when present, else title and author,
// prefixed by the library code under ScopeLibrary.
func Key(b snapshot.Book, scope Scope) string {
	var key string
	if b.ISBN != "" {
		key = "isbn\x00" + b.ISBN
	} else {
		key = "ta\x00" + b.Title + "\x00" + b.Author
	}
	if scope == ScopeGlobal {
		return key
	}
	return b.LibraryCode + "\x00" + key
}

// Dedupe keeps the first record for each key, in input order, and
// reports how many were dropped.
func Dedupe(books []snapshot.Book, scope Scope) ([]snapshot.Book, int) {
	seen := make(map[string]bool, len(books))
	unique := make([]snapshot.Book, 0, len(books))
	for _, b := range books {
		k := Key(b, scope)
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, b)
	}
	return unique, len(books) - len(unique)
}
