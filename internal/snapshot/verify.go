package snapshot

import (
	"fmt"
	"strings"
)

// VerifyError lists the consistency problems found in a snapshot
type VerifyError struct {
	Problems []string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("snapshot has %d problem(s): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Verify checks that the count fields agree with the content, that library
// codes are unique, and that each book id is unique within its library.
func Verify(s *Snapshot) error {
	var problems []string

	if s.TotalBookCount != len(s.Books) {
		problems = append(problems, fmt.Sprintf("totalBookCount is %d but %d books are present", s.TotalBookCount, len(s.Books)))
	}

	libs := s.Libraries.All()
	if len(libs) > 0 && s.Libraries.TotalCount != len(libs) {
		problems = append(problems, fmt.Sprintf("libraries.totalCount is %d but %d libraries are listed", s.Libraries.TotalCount, len(libs)))
	}

	codes := make(map[string]bool, len(libs))
	for _, lib := range libs {
		if lib.Code == "" {
			problems = append(problems, fmt.Sprintf("library %q has no code", lib.Name))
			continue
		}
		if codes[lib.Code] {
			problems = append(problems, fmt.Sprintf("library code %s is listed twice", lib.Code))
		}
		codes[lib.Code] = true
	}

	ids := make(map[string]bool, len(s.Books))
	for i, b := range s.Books {
		key := b.LibraryCode + "/" + b.ID
		if b.ID == "" {
			problems = append(problems, fmt.Sprintf("book #%d has no id", i))
		} else if ids[key] {
			problems = append(problems, fmt.Sprintf("book id %s is not unique in library %s", b.ID, b.LibraryCode))
		}
		ids[key] = true

		if len(codes) > 0 && b.LibraryCode != "" && !codes[b.LibraryCode] {
			problems = append(problems, fmt.Sprintf("book %s belongs to unlisted library %s", b.ID, b.LibraryCode))
		}
	}

	if len(problems) > 0 {
		return &VerifyError{Problems: problems}
	}
	return nil
}
