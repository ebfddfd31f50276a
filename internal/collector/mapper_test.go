package collector

import (
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billmal071/narubooks/internal/naru"
	"github.com/billmal071/narubooks/internal/snapshot"
)

var testLib = snapshot.Library{Code: "LIB140003", Name: "다사도서관"}

func TestToCanonicalBookDefaults(t *testing.T) {
	b := ToCanonicalBook(naru.Doc{}, testLib, MapOptions{})

	assert.Equal(t, DefaultTitle, b.Title)
	assert.Equal(t, DefaultAuthor, b.Author)
	assert.Equal(t, DefaultPublisher, b.Publisher)
	assert.Equal(t, DefaultCategory, b.Category)
	assert.Equal(t, "다사도서관", b.Library)
	assert.Equal(t, "LIB140003", b.LibraryCode)
	assert.True(t, b.Available)
	assert.Equal(t, snapshot.LoanStatusUnknown, b.LoanStatus)
	assert.Zero(t, b.LoanCount)
	assert.Zero(t, b.Ranking)
	assert.False(t, b.IsNew)
	assert.True(t, strings.HasPrefix(b.ID, "LIB140003-"))
}

func TestToCanonicalBookFallbackIDsDiffer(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	a := ToCanonicalBook(naru.Doc{}, testLib, MapOptions{Now: now})
	b := ToCanonicalBook(naru.Doc{}, testLib, MapOptions{Now: now})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestToCanonicalBookFields(t *testing.T) {
	var doc naru.Doc
	require.NoError(t, json.Unmarshal([]byte(`{
		"no": 17,
		"bookname": "소년이 온다",
		"authors": "한강 지음",
		"publisher": "창비",
		"publication_year": 2014,
		"isbn13": "9788936434120",
		"addition_symbol": "03810",
		"class_no": "813.7",
		"class_nm": "문학 > 한국문학 > 소설",
		"vol": "",
		"bookImageURL": "https://image.aladin.co.kr/x.jpg",
		"loan_count": "1,024",
		"ranking": "3",
		"reg_date": "2026-10-10"
	}`), &doc))

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)
	b := ToCanonicalBook(doc, testLib, MapOptions{Now: now, NewArrivalWindow: 30 * 24 * time.Hour})

	assert.Equal(t, "9788936434120", b.ID)
	assert.Equal(t, "2014", b.Year)
	assert.Equal(t, "9788936434120", b.ISBN)
	assert.Equal(t, "문학 > 한국문학 > 소설", b.Category)
	assert.Equal(t, "813.7", b.ClassNo)
	assert.Equal(t, "03810 813.7", b.CallNumber)
	assert.Equal(t, 1024, b.LoanCount)
	assert.Equal(t, 3, b.Ranking)
	assert.Equal(t, "2026-10-10", b.RegDate)
	assert.True(t, b.IsNew)

	old := ToCanonicalBook(doc, testLib, MapOptions{Now: now.AddDate(1, 0, 0), NewArrivalWindow: 30 * 24 * time.Hour})
	assert.False(t, old.IsNew)
}

func TestToCanonicalBookIDPrecedence(t *testing.T) {
	doc := naru.Doc{ISBN13: "9788937460449", ClassNo: "813"}
	b := ToCanonicalBook(doc, testLib, MapOptions{})
	assert.Equal(t, "9788937460449", b.ID)
	assert.Equal(t, "813", b.Category)

	again := ToCanonicalBook(doc, testLib, MapOptions{})
	assert.Equal(t, b.ID, again.ID, "ISBN ids are stable across runs")
}

func TestToCanonicalBookIDIgnoresRowNumber(t *testing.T) {
	// the same holding listed at a different row on the next run
	first := ToCanonicalBook(naru.Doc{No: "17", ISBN13: "9788936434120"}, testLib, MapOptions{})
	next := ToCanonicalBook(naru.Doc{No: "18", ISBN13: "9788936434120"}, testLib, MapOptions{})
	assert.Equal(t, "9788936434120", first.ID)
	assert.Equal(t, first.ID, next.ID)

	noISBN := ToCanonicalBook(naru.Doc{No: "42"}, testLib, MapOptions{})
	assert.Equal(t, "42", noISBN.ID)
}
