package tracker

import (
	"testing"
	"time"

	"github.com/shelfmark/shelfmark/internal/errors"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		if err != nil {
			t.Fatalf("ParseStatus(%q) returned error: %v", s, err)
		}
		if got != s {
			t.Fatalf("expected %q, got %q", s, got)
		}
	}

	for _, bad := range []string{"", "interested", "WATCHED", "unmarked"} {
		_, err := ParseStatus(bad)
		if !errors.Is(err, errors.ErrValidation) {
			t.Fatalf("ParseStatus(%q) expected validation error, got %v", bad, err)
		}
	}
}

func TestTimeRoundTripAcceptsOffsets(t *testing.T) {
	ts, err := ParseTime("2024-03-01T12:30:00+08:00")
	if err != nil {
		t.Fatalf("ParseTime error: %v", err)
	}
	if got := FormatTime(ts); got != "2024-03-01T04:30:00Z" {
		t.Fatalf("unexpected formatted time %q", got)
	}

	now := time.Now()
	back, err := ParseTime(FormatTime(now))
	if err != nil {
		t.Fatalf("ParseTime error: %v", err)
	}
	if !back.Equal(now) {
		t.Fatalf("expected %v, got %v", now, back)
	}
}

func TestActionToUserStatus(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := Action{SubjectID: 7, Status: StatusSkipped, Timestamp: ts}.ToUserStatus()
	if rec.SubjectID != 7 || rec.Status != StatusSkipped || !rec.MarkedAt.Equal(ts) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Rating != nil || rec.Tags != nil {
		t.Fatalf("expected rating and tags to be nil, got %+v", rec)
	}
}
