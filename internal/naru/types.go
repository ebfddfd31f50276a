package naru

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
)

// Library is a library record from libSrch / libSrchByBook
type Library struct {
	Code      FlexString `json:"libCode"`
	Name      FlexString `json:"libName"`
	Address   FlexString `json:"address"`
	Tel       FlexString `json:"tel"`
	Homepage  FlexString `json:"homepage"`
	Latitude  FlexString `json:"latitude"`
	Longitude FlexString `json:"longitude"`
	BookCount FlexString `json:"BookCount"`
}

// Doc is a book record. Its fields differ between itemSrch,
// loanItemSrchByLib and srchBooks; any of them may be missing.
type Doc struct {
	No              FlexString `json:"no"`
	Ranking         FlexString `json:"ranking"`
	Bookname        FlexString `json:"bookname"`
	Authors         FlexString `json:"authors"`
	Publisher       FlexString `json:"publisher"`
	PublicationYear FlexString `json:"publication_year"`
	ISBN13          FlexString `json:"isbn13"`
	AdditionSymbol  FlexString `json:"addition_symbol"`
	Vol             FlexString `json:"vol"`
	ClassNo         FlexString `json:"class_no"`
	ClassNm         FlexString `json:"class_nm"`
	BookImageURL    FlexString `json:"bookImageURL"`
	BookDtlURL      FlexString `json:"bookDtlUrl"`
	LoanCount       FlexString `json:"loan_count"`
	LoanCnt         FlexString `json:"loanCnt"`
	RegDate         FlexString `json:"reg_date"`
}

// Loans returns the loan count from whichever field the endpoint used
func (d Doc) Loans() int {
	if n := d.LoanCount.Int(); n > 0 {
		return n
	}
	return d.LoanCnt.Int()
}

// Page is one page of normalized records plus the upstream-reported total
type Page[T any] struct {
	Items []T
	Total int // 0 when the upstream did not report one
}

// envelope is the JSON body every endpoint returns
type envelope struct {
	Response struct {
		Error     string          `json:"error"`
		NumFound  FlexInt         `json:"numFound"`
		ResultNum FlexInt         `json:"resultNum"`
		Libs      json.RawMessage `json:"libs"`
		Docs      json.RawMessage `json:"docs"`
	} `json:"response"`
}

func (e *envelope) total() int {
	if e.Response.NumFound > 0 {
		return int(e.Response.NumFound)
	}
	return int(e.Response.ResultNum)
}

// API is the subset of the 정보나루 API the collector and commands use
type API interface {
	// Libraries lists libraries in a region (libSrch)
	Libraries(ctx context.Context, region string, page, size int) (*Page[Library], error)

	// Items lists a library's holdings (itemSrch)
	Items(ctx context.Context, libCode string, page, size int) (*Page[Doc], error)

	// LoanRanking lists a library's most borrowed books in a date range (loanItemSrchByLib)
	LoanRanking(ctx context.Context, libCode string, start, end time.Time, page, size int) (*Page[Doc], error)

	// SearchBooks searches the national catalog by keyword (srchBooks)
	SearchBooks(ctx context.Context, keyword string, page, size int) (*Page[Doc], error)

	// LibrariesByBook lists region libraries holding an ISBN (libSrchByBook)
	LibrariesByBook(ctx context.Context, isbn, region string, page, size int) (*Page[Library], error)
}
