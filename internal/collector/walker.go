package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/billmal071/narubooks/internal/metrics"
	"github.com/billmal071/narubooks/internal/naru"
)

const (
	// DefaultPageSize is the upstream's maximum page size
	DefaultPageSize = 100
	// DefaultMaxPages caps a walk when nothing else stops it
	DefaultMaxPages = 20
)

// PageFunc fetches one page of records
type PageFunc[T any] func(ctx context.Context, page, size int) (*naru.Page[T], error)

// WalkOptions configures CollectPages
type WalkOptions struct {
	PageSize int
	MaxPages int
	Delay    time.Duration // pause between pages
	Target   string        // metrics label
}

// PageError reports the page a walk stopped on
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// sleep is swapped out in tests
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CollectPages fetches pages 1, 2, ... and accumulates their records. It
// stops on an empty page, a short page, once the reported total is
// reached, or after MaxPages. When a fetch fails the records gathered so
// far are returned together with a *PageError.
func CollectPages[T any](ctx context.Context, fetch PageFunc[T], opts WalkOptions) ([]T, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Target == "" {
		opts.Target = "unknown"
	}

	records := make([]T, 0)
	for page := 1; page <= opts.MaxPages; page++ {
		res, err := fetch(ctx, page, opts.PageSize)
		if err != nil {
			return records, &PageError{Page: page, Err: err}
		}
		metrics.PagesFetched.WithLabelValues(opts.Target).Inc()

		if res == nil || len(res.Items) == 0 {
			break
		}
		records = append(records, res.Items...)

		if res.Total > 0 && len(records) >= res.Total {
			break
		}
		if len(res.Items) < opts.PageSize || page == opts.MaxPages {
			break
		}

		if err := sleep(ctx, opts.Delay); err != nil {
			return records, &PageError{Page: page + 1, Err: err}
		}
	}
	return records, nil
}
