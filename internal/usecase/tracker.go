// Package usecase implements the commands shared by the CLI and the MCP
// server.
package usecase

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/flatlog"
	"github.com/shelfmark/shelfmark/internal/services"
	"github.com/shelfmark/shelfmark/internal/tracker"
	"github.com/shelfmark/shelfmark/internal/validation"
)

// topTagLimit caps Stats.TopTags.
const topTagLimit = 10

type Tracker struct {
	statuses *services.StatusService
	actions  *services.ActionLogService
	catalog  *catalog.Catalog
	validate *validation.Validator
	logger   *slog.Logger
	now      func() time.Time
}

func NewTracker(statuses *services.StatusService, actions *services.ActionLogService, cat *catalog.Catalog, logger *slog.Logger) *Tracker {
	return &Tracker{
		statuses: statuses,
		actions:  actions,
		catalog:  cat,
		validate: validation.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// ListInput selects catalog items. Status may be a tracker status,
// "unmarked" or "all".
type ListInput struct {
	YearFrom       int      `json:"year_from,omitempty" validate:"gte=0"`
	YearTo         int      `json:"year_to,omitempty" validate:"omitempty,gtefield=YearFrom"`
	RatingMin      float64  `json:"rating_min,omitempty" validate:"gte=0,lte=10"`
	RatingMax      float64  `json:"rating_max,omitempty" validate:"gte=0,lte=10"`
	Tags           []string `json:"tags,omitempty"`
	Status         string   `json:"status,omitempty" validate:"omitempty,oneof=all unmarked watched wishlist skipped"`
	MinCollections float64  `json:"min_collections,omitempty" validate:"gte=0"`
	Query          string   `json:"query,omitempty"`
	Limit          int      `json:"limit,omitempty" validate:"gte=0"`
}

// ListCatalog returns the catalog items matching input, in catalog order.
func (u *Tracker) ListCatalog(ctx context.Context, input ListInput) ([]catalog.Item, error) {
	if err := u.validate.Validate(input); err != nil {
		return nil, err
	}

	var lookup catalog.StatusLookup
	if input.Status != "" && input.Status != catalog.StatusAll {
		byID, err := u.statusMap(ctx)
		if err != nil {
			return nil, err
		}
		lookup = func(id int64) (tracker.Status, bool) {
			s, ok := byID[id]
			return s, ok
		}
	}

	items := u.catalog.Filter(catalog.FilterOptions{
		YearFrom:       input.YearFrom,
		YearTo:         input.YearTo,
		RatingMin:      input.RatingMin,
		RatingMax:      input.RatingMax,
		Tags:           input.Tags,
		Status:         input.Status,
		MinCollections: input.MinCollections,
		Query:          input.Query,
	}, lookup)

	if input.Limit > 0 && len(items) > input.Limit {
		items = items[:input.Limit]
	}
	return items, nil
}

// MarkInput sets the status of one catalog item.
type MarkInput struct {
	SubjectID int64   `json:"subject_id" validate:"gt=0"`
	Status    string  `json:"status" validate:"required,oneof=watched wishlist skipped"`
	Rating    *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=10"`
	Tags      *string `json:"tags,omitempty"`
}

// Mark stores a status for one item, stamped with the current time, and
// returns the stored record.
func (u *Tracker) Mark(ctx context.Context, input MarkInput) (*tracker.UserStatus, error) {
	if err := u.validate.Validate(input); err != nil {
		return nil, err
	}

	rec := tracker.UserStatus{
		SubjectID: input.SubjectID,
		Status:    tracker.Status(input.Status),
		Rating:    input.Rating,
		Tags:      input.Tags,
		MarkedAt:  u.now().UTC(),
	}
	if err := u.statuses.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	u.logger.Debug("marked", "subject_id", rec.SubjectID, "status", rec.Status)
	return &rec, nil
}

// BatchMarkInput sets the same status on several items.
type BatchMarkInput struct {
	SubjectIDs []int64 `json:"subject_ids" validate:"required,min=1,dive,gt=0"`
	Status     string  `json:"status" validate:"required,oneof=watched wishlist skipped"`
}

// BatchMark stores one status for every id in a single transaction. All
// records share one timestamp. Duplicate ids are written once. It returns
// the number of records written.
func (u *Tracker) BatchMark(ctx context.Context, input BatchMarkInput) (int, error) {
	if err := u.validate.Validate(input); err != nil {
		return 0, err
	}

	now := u.now().UTC()
	seen := make(map[int64]struct{}, len(input.SubjectIDs))
	recs := make([]tracker.UserStatus, 0, len(input.SubjectIDs))
	for _, id := range input.SubjectIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		recs = append(recs, tracker.UserStatus{
			SubjectID: id,
			Status:    tracker.Status(input.Status),
			MarkedAt:  now,
		})
	}

	if err := u.statuses.BatchUpsert(ctx, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Unmark deletes the stored status for subjectID and reports whether one
// existed.
func (u *Tracker) Unmark(ctx context.Context, subjectID int64) (bool, error) {
	if subjectID <= 0 {
		return false, errors.Validation("subject_id must be greater than 0")
	}
	return u.statuses.Delete(ctx, subjectID)
}

// GetStatus returns the stored status for subjectID, or nil when the item
// is unmarked.
func (u *Tracker) GetStatus(ctx context.Context, subjectID int64) (*tracker.UserStatus, error) {
	if subjectID <= 0 {
		return nil, errors.Validation("subject_id must be greater than 0")
	}
	return u.statuses.Get(ctx, subjectID)
}

// ListStatuses returns every stored status.
func (u *Tracker) ListStatuses(ctx context.Context) ([]tracker.UserStatus, error) {
	return u.statuses.GetAll(ctx)
}

// GetStats counts stored statuses against the catalog. It reads the store
// once per call and never caches.
func (u *Tracker) GetStats(ctx context.Context) (tracker.Stats, error) {
	records, err := u.statuses.GetAll(ctx)
	if err != nil {
		return tracker.Stats{}, err
	}

	stats := tracker.Stats{Total: u.catalog.Len()}
	ratingSum := 0
	tagCounts := make(map[string]int)
	for _, rec := range records {
		switch rec.Status {
		case tracker.StatusWatched:
			stats.Watched++
			if item, ok := u.catalog.Get(rec.SubjectID); ok {
				for _, tag := range item.TagList() {
					tagCounts[tag]++
				}
			}
		case tracker.StatusWishlist:
			stats.Wishlist++
		case tracker.StatusSkipped:
			stats.Skipped++
		}
		if rec.Rating != nil {
			stats.Rated++
			ratingSum += *rec.Rating
		}
	}

	// Records for items missing from the catalog can push this below zero.
	stats.Unmarked = max(stats.Total-stats.Watched-stats.Wishlist-stats.Skipped, 0)
	if stats.Rated > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.Rated)
	}
	stats.TopTags = topTags(tagCounts, topTagLimit)
	return stats, nil
}

func topTags(counts map[string]int, limit int) []tracker.TagCount {
	tags := make([]tracker.TagCount, 0, len(counts))
	for tag, n := range counts {
		tags = append(tags, tracker.TagCount{Tag: tag, Count: n})
	}
	slices.SortFunc(tags, func(a, b tracker.TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

func (u *Tracker) statusMap(ctx context.Context) (map[int64]tracker.Status, error) {
	records, err := u.statuses.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]tracker.Status, len(records))
	for _, rec := range records {
		byID[rec.SubjectID] = rec.Status
	}
	return byID, nil
}

// LogActionInput is one action to append to the flat log. A zero Timestamp
// is replaced by the current time.
type LogActionInput struct {
	SubjectID int64     `json:"subject_id" validate:"gt=0"`
	Status    string    `json:"status" validate:"required,oneof=watched wishlist skipped"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// LogAppendInput wraps the actions so they validate as one struct.
type LogAppendInput struct {
	Actions []LogActionInput `json:"actions" validate:"omitempty,dive"`
}

// LogAppend adds actions to the end of the flat log.
func (u *Tracker) LogAppend(input LogAppendInput) error {
	if err := u.validate.Validate(input); err != nil {
		return err
	}

	now := u.now().UTC()
	actions := make([]tracker.Action, 0, len(input.Actions))
	for _, a := range input.Actions {
		ts := a.Timestamp
		if ts.IsZero() {
			ts = now
		}
		actions = append(actions, tracker.Action{
			SubjectID: a.SubjectID,
			Status:    tracker.Status(a.Status),
			Timestamp: ts,
		})
	}
	return u.actions.Append(actions)
}

// LogLoad reads every decodable row of the flat log.
func (u *Tracker) LogLoad() (flatlog.LoadResult, error) {
	return u.actions.LoadAll()
}

// LogDelete removes the most recent log row for subjectID.
func (u *Tracker) LogDelete(subjectID int64) (bool, error) {
	if subjectID <= 0 {
		return false, errors.Validation("subject_id must be greater than 0")
	}
	return u.actions.DeleteLastMatch(subjectID)
}

// LogClear truncates the flat log to its header.
func (u *Tracker) LogClear() error {
	return u.actions.Clear()
}
