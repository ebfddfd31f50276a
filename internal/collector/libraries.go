package collector

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/billmal071/narubooks/internal/config"
	"github.com/billmal071/narubooks/internal/naru"
	"github.com/billmal071/narubooks/internal/snapshot"
)

// LibrarySource supplies the libraries a run visits
type LibrarySource interface {
	Libraries(ctx context.Context) ([]snapshot.Library, error)
}

// RegionSource lists a region's libraries through libSrch
type RegionSource struct {
	API    naru.API
	Region string
	Walk   WalkOptions
}

// Libraries implements LibrarySource. On a page failure the libraries
// read so far are returned with the error.
func (s *RegionSource) Libraries(ctx context.Context) ([]snapshot.Library, error) {
	walk := s.Walk
	walk.Target = "libraries"
	raw, err := CollectPages(ctx, func(ctx context.Context, page, size int) (*naru.Page[naru.Library], error) {
		return s.API.Libraries(ctx, s.Region, page, size)
	}, walk)

	libs := make([]snapshot.Library, 0, len(raw))
	for _, l := range raw {
		libs = append(libs, toLibrary(l))
	}
	return libs, err
}

// HoldingSource lists the region's libraries that hold an ISBN through
// libSrchByBook
type HoldingSource struct {
	API    naru.API
	ISBN   string
	Region string
	Walk   WalkOptions
}

// Libraries implements LibrarySource
func (s *HoldingSource) Libraries(ctx context.Context) ([]snapshot.Library, error) {
	walk := s.Walk
	walk.Target = "holdings"
	raw, err := CollectPages(ctx, func(ctx context.Context, page, size int) (*naru.Page[naru.Library], error) {
		return s.API.LibrariesByBook(ctx, s.ISBN, s.Region, page, size)
	}, walk)

	libs := make([]snapshot.Library, 0, len(raw))
	for _, l := range raw {
		libs = append(libs, toLibrary(l))
	}
	return libs, err
}

// StaticSource returns a configured list
type StaticSource struct {
	Entries []snapshot.Library
}

// Libraries implements LibrarySource
func (s *StaticSource) Libraries(ctx context.Context) ([]snapshot.Library, error) {
	out := make([]snapshot.Library, len(s.Entries))
	copy(out, s.Entries)
	return out, nil
}

// SourceFromConfig picks StaticSource when libraries are configured and
// RegionSource otherwise
func SourceFromConfig(cfg *config.Config, api naru.API) LibrarySource {
	if len(cfg.Collect.Libraries) > 0 {
		entries := make([]snapshot.Library, 0, len(cfg.Collect.Libraries))
		for _, e := range cfg.Collect.Libraries {
			entries = append(entries, snapshot.Library{Code: e.Code, Name: e.Name, Address: e.Address})
		}
		return &StaticSource{Entries: entries}
	}
	return &RegionSource{
		API:    api,
		Region: cfg.Naru.Region,
		Walk: WalkOptions{
			PageSize: cfg.Collect.PageSize,
			MaxPages: cfg.Collect.MaxPages,
			Delay:    cfg.Network.PageDelay,
		},
	}
}

func toLibrary(l naru.Library) snapshot.Library {
	return snapshot.Library{
		Code:        l.Code.String(),
		Name:        l.Name.String(),
		Address:     l.Address.String(),
		Telephone:   l.Tel.String(),
		HomepageURL: l.Homepage.String(),
	}
}

// ListLibraries reads src and drops records without a code or with a code
// already seen; the first occurrence keeps its position.
func ListLibraries(ctx context.Context, src LibrarySource) ([]snapshot.Library, error) {
	libs, err := src.Libraries(ctx)

	seen := make(map[string]bool, len(libs))
	unique := make([]snapshot.Library, 0, len(libs))
	for _, lib := range libs {
		lib.Code = strings.TrimSpace(lib.Code)
		if lib.Code == "" || seen[lib.Code] {
			continue
		}
		seen[lib.Code] = true
		unique = append(unique, lib)
	}
	return unique, err
}

// Groups is the partitioned library set
type Groups struct {
	Marked []snapshot.Library
	Others []snapshot.Library
}

// Ordered returns the marked group followed by the others
func (g Groups) Ordered() []snapshot.Library {
	out := make([]snapshot.Library, 0, len(g.Marked)+len(g.Others))
	out = append(out, g.Marked...)
	return append(out, g.Others...)
}

// Partition splits libs by whether name + " " + address contains any
// marker (case-sensitive) and sorts each group by name in Korean order.
func Partition(libs []snapshot.Library, markers []string) Groups {
	g := Groups{
		Marked: make([]snapshot.Library, 0),
		Others: make([]snapshot.Library, 0),
	}
	for _, lib := range libs {
		if matchesMarker(lib.Name+" "+lib.Address, markers) {
			g.Marked = append(g.Marked, lib)
		} else {
			g.Others = append(g.Others, lib)
		}
	}
	SortByName(g.Marked)
	SortByName(g.Others)
	return g
}

func matchesMarker(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// SortByName sorts libraries by name using Korean collation
func SortByName(libs []snapshot.Library) {
	c := collate.New(language.Korean)
	sort.SliceStable(libs, func(i, j int) bool {
		return c.CompareString(libs[i].Name, libs[j].Name) < 0
	})
}
