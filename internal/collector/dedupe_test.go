package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billmal071/narubooks/internal/snapshot"
)

func TestDedupeFirstSeenWins(t *testing.T) {
	in := []snapshot.Book{
		{ISBN: "111", Title: "A", LibraryCode: "L1"},
		{ISBN: "111", Title: "A-reprint", LibraryCode: "L1"},
	}

	out, removed := Dedupe(in, ScopeLibrary)
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].Title)
	assert.Equal(t, 1, removed)
}

func TestDedupeWithoutISBN(t *testing.T) {
	in := []snapshot.Book{
		{Title: "토지", Author: "박경리", LibraryCode: "L1", ID: "1"},
		{Title: "토지", Author: "박경리", LibraryCode: "L1", ID: "2"},
		{Title: "토지", Author: "다른 저자", LibraryCode: "L1", ID: "3"},
	}

	out, removed := Dedupe(in, ScopeLibrary)
	assert.Equal(t, []string{"1", "3"}, bookIDs(out))
	assert.Equal(t, 1, removed)
}

func TestDedupeScope(t *testing.T) {
	in := []snapshot.Book{
		{ID: "a", ISBN: "111", LibraryCode: "L1"},
		{ID: "b", ISBN: "111", LibraryCode: "L2"},
		{ID: "c", ISBN: "222", LibraryCode: "L2"},
	}

	perLibrary, removed := Dedupe(in, ScopeLibrary)
	assert.Equal(t, []string{"a", "b", "c"}, bookIDs(perLibrary))
	assert.Zero(t, removed)

	global, removed := Dedupe(in, ScopeGlobal)
	assert.Equal(t, []string{"a", "c"}, bookIDs(global))
	assert.Equal(t, 1, removed)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeLibrary, s)

	s, err = ParseScope("Global")
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, s)

	_, err = ParseScope("branch")
	assert.Error(t, err)
}

func bookIDs(books []snapshot.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}
