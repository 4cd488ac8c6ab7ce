package request

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/search"

	"github.com/leajer/leajer/internal/shared"
)

// Filter returns the requests matching term, ordered by createdAt
// descending. Matching is a case-insensitive substring test against
// retailerName, productName, description and uniqueId; any single hit
// qualifies. The input slice is never modified, so the function is pure
// and may be re-run with different terms.
func Filter(requests []RetailerRequest, term string) []RetailerRequest {
	matcher := search.New(language.Und, search.IgnoreCase)
	var pattern *search.Pattern
	if term = strings.TrimSpace(term); term != "" {
		pattern = matcher.CompileString(term)
	}

	out := make([]RetailerRequest, 0, len(requests))
	for _, req := range requests {
		if pattern == nil || matches(pattern, req) {
			out = append(out, req)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matches(pattern *search.Pattern, req RetailerRequest) bool {
	for _, field := range []string{req.RetailerName, req.ProductName, req.Description, req.UniqueID} {
		if field == "" {
			continue
		}
		if start, _ := pattern.IndexString(field); start >= 0 {
			return true
		}
	}
	return false
}

// Paginate slices requests into the 1-indexed page. pageSize and
// pageNumber below 1 are invalid; a pageNumber past the last available
// page clamps to the last page rather than failing. The caller resets to
// page 1 whenever the filtered set changes.
func Paginate(requests []RetailerRequest, pageSize, pageNumber int) ([]RetailerRequest, shared.Pagination, error) {
	if pageSize < 1 || pageNumber < 1 {
		return nil, shared.Pagination{}, shared.ErrInvalidPage
	}
	meta := shared.NewPagination(pageNumber, pageSize, len(requests))
	start, end := meta.PageBounds()
	page := make([]RetailerRequest, end-start)
	copy(page, requests[start:end])
	return page, meta, nil
}
