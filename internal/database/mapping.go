package database

import (
	"fmt"

	sqldb "github.com/shelfmark/shelfmark/internal/database/sqlc"
	"github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

// UserStatusFromRow converts a database row to a tracker.UserStatus. Rows
// with an unknown status or an unparseable timestamp are reported as
// corrupt rather than passed through.
func UserStatusFromRow(row sqldb.UserStatus) (tracker.UserStatus, error) {
	status, err := tracker.ParseStatus(row.Status)
	if err != nil {
		return tracker.UserStatus{}, errors.Corrupt(fmt.Sprintf("subject %d has unknown status %q", row.SubjectID, row.Status)).WithOp("read")
	}

	markedAt, err := tracker.ParseTime(row.MarkedAt)
	if err != nil {
		return tracker.UserStatus{}, errors.Corrupt(fmt.Sprintf("subject %d has invalid marked_at %q", row.SubjectID, row.MarkedAt)).WithOp("read").WithCause(err)
	}

	return tracker.UserStatus{
		SubjectID: row.SubjectID,
		Status:    status,
		Rating:    optionalInt(row.Rating),
		Tags:      optionalString(row.Tags),
		MarkedAt:  markedAt,
	}, nil
}

// UpsertParams creates upsert parameters from a status record.
func UpsertParams(rec tracker.UserStatus) (sqldb.UpsertUserStatusParams, error) {
	status, err := tracker.ParseStatus(string(rec.Status))
	if err != nil {
		return sqldb.UpsertUserStatusParams{}, errors.Validationf("subject %d: invalid status %q", rec.SubjectID, rec.Status)
	}
	if rec.MarkedAt.IsZero() {
		return sqldb.UpsertUserStatusParams{}, errors.Validationf("subject %d: marked_at is required", rec.SubjectID)
	}

	return sqldb.UpsertUserStatusParams{
		SubjectID: rec.SubjectID,
		Status:    string(status),
		Rating:    intPtrToNullInt64(rec.Rating),
		Tags:      stringPtrToNullString(rec.Tags),
		MarkedAt:  tracker.FormatTime(rec.MarkedAt),
	}, nil
}
