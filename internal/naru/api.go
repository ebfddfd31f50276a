package naru

import (
	"context"
	"net/url"
	"time"
)

const dateLayout = "2006-01-02"

// Libraries lists libraries in a region
func (c *Client) Libraries(ctx context.Context, region string, page, size int) (*Page[Library], error) {
	params := pageParams(page, size)
	if region != "" {
		params.Set("region", region)
	}
	return c.libraryPage(ctx, "libSrch", params)
}

// Items lists the holdings of one library
func (c *Client) Items(ctx context.Context, libCode string, page, size int) (*Page[Doc], error) {
	params := pageParams(page, size)
	params.Set("libCode", libCode)
	return c.docPage(ctx, "itemSrch", params)
}

// LoanRanking lists the most borrowed books of a library between start and end
func (c *Client) LoanRanking(ctx context.Context, libCode string, start, end time.Time, page, size int) (*Page[Doc], error) {
	params := pageParams(page, size)
	params.Set("libCode", libCode)
	params.Set("startDt", start.Format(dateLayout))
	params.Set("endDt", end.Format(dateLayout))
	return c.docPage(ctx, "loanItemSrchByLib", params)
}

// SearchBooks searches books by keyword
func (c *Client) SearchBooks(ctx context.Context, keyword string, page, size int) (*Page[Doc], error) {
	params := pageParams(page, size)
	params.Set("keyword", keyword)
	return c.docPage(ctx, "srchBooks", params)
}

// LibrariesByBook lists the libraries of a region that hold isbn
func (c *Client) LibrariesByBook(ctx context.Context, isbn, region string, page, size int) (*Page[Library], error) {
	params := pageParams(page, size)
	params.Set("isbn", isbn)
	if region != "" {
		params.Set("region", region)
	}
	return c.libraryPage(ctx, "libSrchByBook", params)
}

func (c *Client) docPage(ctx context.Context, endpoint string, params url.Values) (*Page[Doc], error) {
	env, err := c.fetchEnvelope(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	docs, err := DecodeRecords[Doc](env.Response.Docs, "doc")
	if err != nil {
		return nil, &NetworkError{Op: "decode", URL: endpoint, Err: err}
	}
	return &Page[Doc]{Items: docs, Total: env.total()}, nil
}

func (c *Client) libraryPage(ctx context.Context, endpoint string, params url.Values) (*Page[Library], error) {
	env, err := c.fetchEnvelope(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	libs, err := DecodeRecords[Library](env.Response.Libs, "lib")
	if err != nil {
		return nil, &NetworkError{Op: "decode", URL: endpoint, Err: err}
	}
	return &Page[Library]{Items: libs, Total: env.total()}, nil
}
