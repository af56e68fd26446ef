package catalog

import (
	"strings"

	"github.com/shelfmark/shelfmark/internal/tracker"
)

// StatusUnmarked selects items with no stored status. An empty status
// filter, or "all", selects everything.
const (
	StatusAll      = "all"
	StatusUnmarked = "unmarked"
)

// FilterOptions narrows a catalog listing. Zero values disable a bound.
type FilterOptions struct {
	YearFrom       int
	YearTo         int
	RatingMin      float64
	RatingMax      float64
	Tags           []string
	Status         string
	MinCollections float64
	Query          string
}

// StatusLookup reports the stored status for a subject, if any.
type StatusLookup func(subjectID int64) (tracker.Status, bool)

// Filter returns the items matching opts in catalog order. statusOf is only
// consulted when opts.Status is set; it may be nil otherwise.
//
// Items without an average rating or collection count pass the rating and
// collection bounds. A tag filter matches when any requested tag is a
// case-insensitive substring of any item tag.
func (c *Catalog) Filter(opts FilterOptions, statusOf StatusLookup) []Item {
	if c == nil {
		return nil
	}

	query := strings.ToLower(strings.TrimSpace(opts.Query))
	wantTags := make([]string, 0, len(opts.Tags))
	for _, t := range opts.Tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			wantTags = append(wantTags, t)
		}
	}

	out := make([]Item, 0)
	for _, it := range c.items {
		if opts.YearFrom != 0 && it.Year < opts.YearFrom {
			continue
		}
		if opts.YearTo != 0 && it.Year > opts.YearTo {
			continue
		}
		if it.AvgRating != nil {
			if opts.RatingMin != 0 && *it.AvgRating < opts.RatingMin {
				continue
			}
			if opts.RatingMax != 0 && *it.AvgRating > opts.RatingMax {
				continue
			}
		}
		if len(wantTags) > 0 && !matchesAnyTag(it.TagList(), wantTags) {
			continue
		}
		if !matchesStatus(it.SubjectID, opts.Status, statusOf) {
			continue
		}
		if opts.MinCollections > 0 && it.Collections != nil && *it.Collections < opts.MinCollections {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(it.Title), query) &&
			!strings.Contains(strings.ToLower(it.AltTitle), query) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesAnyTag(itemTags, want []string) bool {
	for _, w := range want {
		for _, t := range itemTags {
			if strings.Contains(strings.ToLower(t), w) {
				return true
			}
		}
	}
	return false
}

func matchesStatus(subjectID int64, want string, statusOf StatusLookup) bool {
	if want == "" || want == StatusAll {
		return true
	}
	var (
		got    tracker.Status
		marked bool
	)
	if statusOf != nil {
		got, marked = statusOf(subjectID)
	}
	if want == StatusUnmarked {
		return !marked
	}
	return marked && string(got) == want
}
