package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billmal071/narubooks/internal/naru"
)

// stubSleep records requested pauses without waiting
func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var calls []time.Duration
	orig := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		calls = append(calls, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = orig })
	return &calls
}

type fakePages struct {
	full     int // pages 1..full return size items
	total    int
	requests int
	failOn   int
}

func (f *fakePages) fetch(ctx context.Context, page, size int) (*naru.Page[int], error) {
	f.requests++
	if page == f.failOn {
		return nil, &naru.HTTPError{Status: 502, URL: "itemSrch"}
	}
	if f.full >= 0 && page > f.full {
		return &naru.Page[int]{Total: f.total}, nil
	}
	items := make([]int, size)
	for i := range items {
		items[i] = (page-1)*size + i
	}
	return &naru.Page[int]{Items: items, Total: f.total}, nil
}

func TestCollectPagesStopsAtReportedTotal(t *testing.T) {
	delays := stubSleep(t)
	f := &fakePages{full: 3, total: 30}

	got, err := CollectPages(context.Background(), f.fetch, WalkOptions{PageSize: 10, MaxPages: 20, Delay: 120 * time.Millisecond})
	require.NoError(t, err)
	assert.Len(t, got, 30)
	assert.Equal(t, 3, f.requests)
	assert.Len(t, *delays, 2)
	assert.Equal(t, 29, got[29])
}

func TestCollectPagesStopsOnEmptyPage(t *testing.T) {
	stubSleep(t)
	f := &fakePages{full: 3}

	got, err := CollectPages(context.Background(), f.fetch, WalkOptions{PageSize: 10, MaxPages: 20})
	require.NoError(t, err)
	assert.Len(t, got, 30)
	assert.Equal(t, 4, f.requests)
}

func TestCollectPagesStopsOnShortPage(t *testing.T) {
	stubSleep(t)
	requests := 0
	fetch := func(ctx context.Context, page, size int) (*naru.Page[int], error) {
		requests++
		if page == 2 {
			return &naru.Page[int]{Items: []int{1, 2, 3}}, nil
		}
		return &naru.Page[int]{Items: make([]int, size)}, nil
	}

	got, err := CollectPages(context.Background(), fetch, WalkOptions{PageSize: 10, MaxPages: 20})
	require.NoError(t, err)
	assert.Len(t, got, 13)
	assert.Equal(t, 2, requests)
}

func TestCollectPagesSafetyCap(t *testing.T) {
	delays := stubSleep(t)
	f := &fakePages{full: -1}

	got, err := CollectPages(context.Background(), f.fetch, WalkOptions{PageSize: 5, MaxPages: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, f.requests)
	assert.Len(t, got, 35)
	assert.Len(t, *delays, 6, "no pause after the last allowed page")
}

func TestCollectPagesPartialOnError(t *testing.T) {
	stubSleep(t)
	f := &fakePages{full: -1, failOn: 3}

	got, err := CollectPages(context.Background(), f.fetch, WalkOptions{PageSize: 10, MaxPages: 20})
	require.Error(t, err)
	assert.Len(t, got, 20)

	var pageErr *PageError
	require.True(t, errors.As(err, &pageErr))
	assert.Equal(t, 3, pageErr.Page)
	assert.Equal(t, 502, naru.StatusCode(err))
}

func TestCollectPagesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakePages{full: -1}
	fetch := func(ctx context.Context, page, size int) (*naru.Page[int], error) {
		cancel()
		return f.fetch(ctx, page, size)
	}

	got, err := CollectPages(ctx, fetch, WalkOptions{PageSize: 10, MaxPages: 20, Delay: time.Hour})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, got, 10)
	assert.Equal(t, 1, f.requests)
}

func TestCollectPagesTermination(t *testing.T) {
	stubSleep(t)
	for _, k := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			f := &fakePages{full: k, total: k * 10}
			got, err := CollectPages(context.Background(), f.fetch, WalkOptions{PageSize: 10, MaxPages: 30})
			require.NoError(t, err)
			assert.Len(t, got, k*10)
			assert.Contains(t, []int{k, k + 1}, f.requests)
		})
	}
}
