// Package tracker provides data types for tracked media status.
package tracker

import (
	"strings"
	"time"

	"github.com/shelfmark/shelfmark/internal/errors"
)

// Status is the user's verdict on a catalog item.
type Status string

const (
	StatusWatched  Status = "watched"
	StatusWishlist Status = "wishlist"
	StatusSkipped  Status = "skipped"
)

// Statuses lists every known status in display order.
var Statuses = []Status{StatusWatched, StatusWishlist, StatusSkipped}

// ParseStatus converts the persisted representation into a Status,
// rejecting anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(s)) {
	case StatusWatched:
		return StatusWatched, nil
	case StatusWishlist:
		return StatusWishlist, nil
	case StatusSkipped:
		return StatusSkipped, nil
	default:
		return "", errors.Validationf("invalid status: %q (valid values: watched, wishlist, skipped)", s)
	}
}

func (s Status) String() string {
	return string(s)
}

// UserStatus is the current user record for one catalog item.
type UserStatus struct {
	SubjectID int64     `json:"subject_id"`
	Status    Status    `json:"status"`
	Rating    *int      `json:"rating,omitempty"`
	Tags      *string   `json:"tags,omitempty"`
	MarkedAt  time.Time `json:"marked_at"`
}

// Action is one row of the flat action log.
type Action struct {
	SubjectID int64     `json:"subject_id"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ToUserStatus maps a logged action onto a status record. Rating and tags
// are never logged.
func (a Action) ToUserStatus() UserStatus {
	return UserStatus{
		SubjectID: a.SubjectID,
		Status:    a.Status,
		MarkedAt:  a.Timestamp,
	}
}

// TagCount is a tag with the number of items carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats aggregates status counts against the catalog size.
type Stats struct {
	Total         int        `json:"total"`
	Watched       int        `json:"watched"`
	Wishlist      int        `json:"wishlist"`
	Skipped       int        `json:"skipped"`
	Unmarked      int        `json:"unmarked"`
	Rated         int        `json:"rated"`
	AverageRating float64    `json:"average_rating"`
	TopTags       []TagCount `json:"top_tags,omitempty"`
}

// FormatTime renders a timestamp the way it is persisted.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses a persisted timestamp. Any RFC3339 form is accepted.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
