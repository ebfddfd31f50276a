// Package collector walks the upstream API library by library and builds
// a deduplicated snapshot.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/logging"
	"github.com/billmal071/narubooks/internal/metrics"
	"github.com/billmal071/narubooks/internal/naru"
	"github.com/billmal071/narubooks/internal/snapshot"
)

// DefaultPopularSize is how many ranked books are kept per library
const DefaultPopularSize = 20

// Options configures a Collector
type Options struct {
	Region           string
	MarkedGroup      string
	Markers          []string
	Items            WalkOptions
	LibraryDelay     time.Duration
	DedupeScope      Scope
	IncludePopular   bool
	PopularDays      int
	PopularSize      int
	NewArrivalWindow time.Duration
	Now              func() time.Time
	Progress         io.Writer // nil disables the progress bar
}

// OptionsFromConfig builds collector options from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	scope, err := ParseScope(cfg.Collect.DedupeScope)
	if err != nil {
		scope = ScopeLibrary
	}
	return Options{
		Region:      cfg.Naru.Region,
		MarkedGroup: cfg.Collect.MarkedGroup,
		Markers:     cfg.Collect.Markers,
		Items: WalkOptions{
			PageSize: cfg.Collect.PageSize,
			MaxPages: cfg.Collect.LibraryMaxPages,
			Delay:    cfg.Network.PageDelay,
		},
		LibraryDelay:     cfg.Network.LibraryDelay,
		DedupeScope:      scope,
		IncludePopular:   cfg.Collect.IncludePopular,
		PopularDays:      cfg.Collect.PopularDays,
		NewArrivalWindow: time.Duration(cfg.Collect.NewArrivalDays) * 24 * time.Hour,
	}
}

// Summary describes a finished run
type Summary struct {
	Libraries       int
	Marked          int
	Others          int
	LibrariesOK     int
	LibrariesFailed int
	Collected       int
	Unique          int
	Duplicates      int
	Popular         int
	Duration        time.Duration
}

// Collector runs one collection pass
type Collector struct {
	api    naru.API
	source LibrarySource
	opts   Options
	log    zerolog.Logger
}

// New creates a Collector
func New(api naru.API, source LibrarySource, opts Options) *Collector {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DedupeScope == "" {
		opts.DedupeScope = ScopeLibrary
	}
	if opts.MarkedGroup == "" {
		opts.MarkedGroup = snapshot.DefaultMarkedGroup
	}
	if opts.PopularSize <= 0 {
		opts.PopularSize = DefaultPopularSize
	}
	if opts.PopularDays <= 0 {
		opts.PopularDays = 30
	}
	opts.Items.Target = "items"

	return &Collector{
		api:    api,
		source: source,
		opts:   opts,
		log:    logging.With().Str("component", "collector").Logger(),
	}
}

// Run enumerates libraries, collects every library's holdings and returns
// the snapshot to write. A library that fails keeps whatever was collected
// before the failure and the run moves on; only enumeration failures with
// no libraries at all, or cancellation, are returned as errors.
func (c *Collector) Run(ctx context.Context) (*snapshot.Snapshot, *Summary, error) {
	started := c.opts.Now()

	libs, err := ListLibraries(ctx, c.source)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		if len(libs) == 0 {
			return nil, nil, fmt.Errorf("failed to list libraries: %w", err)
		}
		c.log.Warn().Err(err).Int("libraries", len(libs)).Msg("library listing incomplete, continuing with partial list")
	}

	groups := Partition(libs, c.opts.Markers)
	ordered := groups.Ordered()
	c.log.Info().
		Str("region", c.opts.Region).
		Int("marked", len(groups.Marked)).
		Int("others", len(groups.Others)).
		Msg("libraries listed")

	summary := &Summary{
		Libraries: len(ordered),
		Marked:    len(groups.Marked),
		Others:    len(groups.Others),
	}

	var bar *progressbar.ProgressBar
	if c.opts.Progress != nil && len(ordered) > 0 {
		bar = progressbar.NewOptions(len(ordered),
			progressbar.OptionSetWriter(c.opts.Progress),
			progressbar.OptionSetDescription("Collecting"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}

	var (
		books    []snapshot.Book
		popular  []snapshot.Book
		failures []snapshot.Failure
	)

	for i, lib := range ordered {
		if bar != nil {
			bar.Describe(lib.Name)
		}

		libBooks, failure := c.collectLibrary(ctx, lib)
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		books = append(books, libBooks...)

		switch {
		case failure == nil:
			summary.LibrariesOK++
			metrics.LibrariesProcessed.WithLabelValues("ok").Inc()
		case len(libBooks) > 0:
			summary.LibrariesFailed++
			failures = append(failures, *failure)
			metrics.LibrariesProcessed.WithLabelValues("partial").Inc()
		default:
			summary.LibrariesFailed++
			failures = append(failures, *failure)
			metrics.LibrariesProcessed.WithLabelValues("failed").Inc()
		}

		if c.opts.IncludePopular {
			ranked, pf := c.collectPopular(ctx, lib)
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			popular = append(popular, ranked...)
			if pf != nil {
				failures = append(failures, *pf)
			}
		}

		if bar != nil {
			_ = bar.Add(1)
		}
		if i < len(ordered)-1 {
			if err := sleep(ctx, c.opts.LibraryDelay); err != nil {
				return nil, nil, err
			}
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	unique, removed := Dedupe(books, c.opts.DedupeScope)
	applyRanking(unique, popular)

	summary.Collected = len(books)
	summary.Unique = len(unique)
	summary.Duplicates = removed
	summary.Popular = len(popular)
	summary.Duration = c.opts.Now().Sub(started)

	metrics.BooksCollected.Add(float64(len(books)))
	metrics.BooksUnique.Set(float64(len(unique)))
	metrics.DuplicatesRemoved.Set(float64(removed))
	metrics.RunDuration.Set(summary.Duration.Seconds())
	metrics.LastRunTimestamp.Set(float64(c.opts.Now().Unix()))

	snap := &snapshot.Snapshot{
		UpdatedAt: started.UTC(),
		Source:    snapshot.DefaultSource,
		Region:    c.opts.Region,
		Libraries: snapshot.LibraryGroups{
			MarkedKey:  c.opts.MarkedGroup,
			Marked:     groups.Marked,
			Others:     groups.Others,
			TotalCount: len(ordered),
		},
		Books:          unique,
		TotalBookCount: len(unique),
		Popular:        popular,
		Failures:       failures,
	}
	return snap, summary, nil
}

func (c *Collector) collectLibrary(ctx context.Context, lib snapshot.Library) ([]snapshot.Book, *snapshot.Failure) {
	docs, err := CollectPages(ctx, func(ctx context.Context, page, size int) (*naru.Page[naru.Doc], error) {
		return c.api.Items(ctx, lib.Code, page, size)
	}, c.opts.Items)

	mapOpts := MapOptions{Now: c.opts.Now(), NewArrivalWindow: c.opts.NewArrivalWindow}
	books := make([]snapshot.Book, 0, len(docs))
	for _, doc := range docs {
		books = append(books, ToCanonicalBook(doc, lib, mapOpts))
	}

	if err != nil {
		f := c.failure(lib, "items", err)
		c.log.Warn().
			Err(err).
			Str("library", lib.Name).
			Str("code", lib.Code).
			Int("page", f.Page).
			Int("status", f.Status).
			Str("category", naru.CategorizeError(err).String()).
			Int("kept", len(books)).
			Msg("library collection stopped early")
		return books, &f
	}

	c.log.Info().Str("library", lib.Name).Str("code", lib.Code).Int("books", len(books)).Msg("library collected")
	return books, nil
}

func (c *Collector) collectPopular(ctx context.Context, lib snapshot.Library) ([]snapshot.Book, *snapshot.Failure) {
	end := c.opts.Now()
	start := end.AddDate(0, 0, -c.opts.PopularDays)

	docs, err := CollectPages(ctx, func(ctx context.Context, page, size int) (*naru.Page[naru.Doc], error) {
		return c.api.LoanRanking(ctx, lib.Code, start, end, page, size)
	}, WalkOptions{PageSize: c.opts.PopularSize, MaxPages: 1, Target: "popular"})

	mapOpts := MapOptions{Now: end}
	books := make([]snapshot.Book, 0, len(docs))
	for _, doc := range docs {
		books = append(books, ToCanonicalBook(doc, lib, mapOpts))
	}

	if err != nil {
		f := c.failure(lib, "popular", err)
		c.log.Warn().Err(err).Str("library", lib.Name).Str("code", lib.Code).Int("status", f.Status).Msg("loan ranking unavailable")
		return books, &f
	}
	return books, nil
}

func (c *Collector) failure(lib snapshot.Library, stage string, err error) snapshot.Failure {
	f := snapshot.Failure{
		LibraryCode: lib.Code,
		Library:     lib.Name,
		Stage:       stage,
		Status:      naru.StatusCode(err),
		Error:       err.Error(),
	}
	var pageErr *PageError
	if errors.As(err, &pageErr) {
		f.Page = pageErr.Page
	}
	return f
}

// applyRanking copies loan ranking data onto the matching holdings
func applyRanking(books, popular []snapshot.Book) {
	if len(popular) == 0 {
		return
	}
	type rank struct{ ranking, loans int }
	ranks := make(map[string]rank, len(popular))
	for _, p := range popular {
		if p.ISBN == "" {
			continue
		}
		key := p.LibraryCode + "\x00" + p.ISBN
		if _, ok := ranks[key]; !ok {
			ranks[key] = rank{p.Ranking, p.LoanCount}
		}
	}
	for i := range books {
		r, ok := ranks[books[i].LibraryCode+"\x00"+books[i].ISBN]
		if !ok || books[i].ISBN == "" {
			continue
		}
		if books[i].Ranking == 0 {
			books[i].Ranking = r.ranking
		}
		if books[i].LoanCount == 0 {
			books[i].LoanCount = r.loans
		}
	}
}

// Log writes the end-of-run summary
func (s *Summary) Log(log zerolog.Logger) {
	log.Info().
		Int("libraries", s.Libraries).
		Int("marked", s.Marked).
		Int("others", s.Others).
		Int("ok", s.LibrariesOK).
		Int("failed", s.LibrariesFailed).
		Int("collected", s.Collected).
		Int("unique", s.Unique).
		Int("duplicates_removed", s.Duplicates).
		Int("popular", s.Popular).
		Dur("duration", s.Duration).
		Msg("collection finished")
}
