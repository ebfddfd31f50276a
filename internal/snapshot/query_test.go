package snapshot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func querySnapshot() *Snapshot {
	return &Snapshot{Books: []Book{
		{ID: "1", Title: "토지", Author: "박경리", LibraryCode: "L1", Library: "다사도서관", ClassNo: "813.6", RegDate: "2026-01-10"},
		{ID: "2", Title: "Harry Potter", Author: "J.K. Rowling", LibraryCode: "L2", Library: "논공도서관", ClassNo: "843", RegDate: "2026-09-01", IsNew: true},
		{ID: "3", Title: "가시고기", Author: "조창인", LibraryCode: "L1", Library: "다사도서관", ClassNo: "813.7", Year: "2000"},
		{ID: "4", Title: "코스모스", Author: "칼 세이건", LibraryCode: "L3", Library: "중앙도서관", ClassNo: "440", RegDate: "2025-05-05"},
	}}
}

func ids(books []Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestQuerySearch(t *testing.T) {
	s := querySnapshot()

	assert.Equal(t, []string{"2"}, ids(s.Query(Query{Search: "harry"}).Books))
	assert.Equal(t, []string{"2"}, ids(s.Query(Query{Search: "ROWLING"}).Books))
	assert.Equal(t, []string{"1"}, ids(s.Query(Query{Search: "박경리"}).Books))
	assert.Len(t, s.Query(Query{}).Books, 4)
}

func TestQueryFilters(t *testing.T) {
	s := querySnapshot()

	assert.Equal(t, []string{"1", "2", "3"}, ids(s.Query(Query{Libraries: []string{"L1", "논공도서관"}}).Books))
	assert.Equal(t, []string{"1", "3"}, ids(s.Query(Query{Category: "813"}).Books))
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.Query(Query{Category: "8"}).Books))
	assert.Equal(t, []string{"2"}, ids(s.Query(Query{NewOnly: true}).Books))
}

func TestQuerySort(t *testing.T) {
	s := querySnapshot()

	assert.Equal(t, []string{"2", "1", "4", "3"}, ids(s.Query(Query{Sort: SortLatest}).Books))
	assert.Equal(t, []string{"3", "4", "1", "2"}, ids(s.Query(Query{Sort: SortOldest}).Books))
	assert.Equal(t, []string{"2", "3", "4", "1"}, ids(s.Query(Query{Sort: SortTitle}).Books))

	// sorting works on a copy
	assert.Equal(t, "1", s.Books[0].ID)
}

func TestQueryPagination(t *testing.T) {
	s := querySnapshot()

	first := s.Query(Query{PageSize: 3})
	require.Len(t, first.Books, 3)
	assert.Equal(t, 4, first.Total)
	assert.Equal(t, 2, first.TotalPages)
	assert.True(t, first.HasMore())

	second := s.Query(Query{PageSize: 3, Page: 2})
	assert.Equal(t, []string{"4"}, ids(second.Books))
	assert.False(t, second.HasMore())

	beyond := s.Query(Query{PageSize: 3, Page: 9})
	assert.Empty(t, beyond.Books)
}

func TestQueryPaginationHugeValues(t *testing.T) {
	s := querySnapshot()

	var res Result
	require.NotPanics(t, func() { res = s.Query(Query{Page: math.MaxInt, PageSize: 3}) })
	assert.Empty(t, res.Books)
	assert.Equal(t, 2, res.TotalPages)

	require.NotPanics(t, func() { res = s.Query(Query{Page: 1, PageSize: math.MaxInt}) })
	assert.Len(t, res.Books, 4)
	assert.Equal(t, 1, res.TotalPages)

	require.NotPanics(t, func() { res = s.Query(Query{Page: math.MaxInt, PageSize: math.MaxInt}) })
	assert.Empty(t, res.Books)
}
