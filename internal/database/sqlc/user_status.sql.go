package sqldb

import (
	"context"
	"database/sql"
)

// UserStatus is one row of the user_status table.
type UserStatus struct {
	SubjectID int64
	Status    string
	Rating    sql.NullInt64
	Tags      sql.NullString
	MarkedAt  string
}

const upsertUserStatus = `INSERT OR REPLACE INTO user_status (subject_id, status, rating, tags, marked_at)
VALUES (?, ?, ?, ?, ?)`

type UpsertUserStatusParams struct {
	SubjectID int64
	Status    string
	Rating    sql.NullInt64
	Tags      sql.NullString
	MarkedAt  string
}

func (q *Queries) UpsertUserStatus(ctx context.Context, arg UpsertUserStatusParams) error {
	_, err := q.db.ExecContext(ctx, upsertUserStatus,
		arg.SubjectID,
		arg.Status,
		arg.Rating,
		arg.Tags,
		arg.MarkedAt,
	)
	return err
}

const getUserStatus = `SELECT subject_id, status, rating, tags, marked_at
FROM user_status
WHERE subject_id = ?`

func (q *Queries) GetUserStatus(ctx context.Context, subjectID int64) (UserStatus, error) {
	row := q.db.QueryRowContext(ctx, getUserStatus, subjectID)
	var i UserStatus
	err := row.Scan(
		&i.SubjectID,
		&i.Status,
		&i.Rating,
		&i.Tags,
		&i.MarkedAt,
	)
	return i, err
}

const listUserStatus = `SELECT subject_id, status, rating, tags, marked_at
FROM user_status
ORDER BY subject_id`

func (q *Queries) ListUserStatus(ctx context.Context) ([]UserStatus, error) {
	rows, err := q.db.QueryContext(ctx, listUserStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserStatus
	for rows.Next() {
		var i UserStatus
		if err := rows.Scan(
			&i.SubjectID,
			&i.Status,
			&i.Rating,
			&i.Tags,
			&i.MarkedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteUserStatus = `DELETE FROM user_status WHERE subject_id = ?`

func (q *Queries) DeleteUserStatus(ctx context.Context, subjectID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUserStatus, subjectID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
