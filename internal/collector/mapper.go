package collector

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/billmal071/narubooks/internal/naru"
	"github.com/billmal071/narubooks/internal/snapshot"
)

// Defaults for fields the upstream left empty
const (
	DefaultTitle     = "제목 없음"
	DefaultAuthor    = "저자 미상"
	DefaultPublisher = "출판사 미상"
	DefaultCategory  = "미분류"
)

var regDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"20060102",
	"2006.01.02",
}

// MapOptions configures ToCanonicalBook
type MapOptions struct {
	Now              time.Time     // zero means time.Now()
	NewArrivalWindow time.Duration // 0 disables isNew
}

// ToCanonicalBook maps an upstream record held by lib. Every field has a
// fallback, so it never fails.
func ToCanonicalBook(doc naru.Doc, lib snapshot.Library, opts MapOptions) snapshot.Book {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	isbn := doc.ISBN13.String()
	classNo := doc.ClassNo.String()

	b := snapshot.Book{
		ID:          bookID(doc, lib.Code, now),
		Title:       orDefault(doc.Bookname.String(), DefaultTitle),
		Author:      orDefault(doc.Authors.String(), DefaultAuthor),
		Publisher:   orDefault(doc.Publisher.String(), DefaultPublisher),
		Year:        doc.PublicationYear.String(),
		ISBN:        isbn,
		Category:    orDefault(doc.ClassNm.String(), orDefault(classNo, DefaultCategory)),
		Library:     lib.Name,
		LibraryCode: lib.Code,
		CallNumber:  callNumber(doc),
		ClassNo:     classNo,
		ImageURL:    doc.BookImageURL.String(),
		Available:   true,
		LoanStatus:  snapshot.LoanStatusUnknown,
		LoanCount:   doc.Loans(),
		Ranking:     doc.Ranking.Int(),
	}

	if reg, ok := parseRegDate(doc.RegDate.String()); ok {
		b.RegDate = reg.Format("2006-01-02")
		if opts.NewArrivalWindow > 0 {
			age := now.Sub(reg)
			b.IsNew = age >= -24*time.Hour && age <= opts.NewArrivalWindow
		}
	}
	return b
}

// bookID prefers the ISBN: "no" is the row number of the listing and
// shifts whenever a library adds a book.
func bookID(doc naru.Doc, libCode string, now time.Time) string {
	if isbn := doc.ISBN13.String(); isbn != "" {
		return isbn
	}
	if id := doc.No.String(); id != "" {
		return id
	}
	return fmt.Sprintf("%s-%d-%s", libCode, now.UnixNano(), uuid.NewString()[:8])
}

func callNumber(doc naru.Doc) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{doc.AdditionSymbol.String(), doc.ClassNo.String(), doc.Vol.String()} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func parseRegDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range regDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
