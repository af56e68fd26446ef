package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqldb "github.com/shelfmark/shelfmark/internal/database/sqlc"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

// UserStatusRepository stores at most one status record per subject.
//
// It does no locking of its own; services.StatusService serializes access.
type UserStatusRepository struct {
	ctx *Context
}

func NewUserStatusRepository(dbCtx *Context) *UserStatusRepository {
	return &UserStatusRepository{ctx: dbCtx}
}

// Upsert inserts rec or replaces the existing record for the same subject.
func (r *UserStatusRepository) Upsert(ctx context.Context, rec tracker.UserStatus) error {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return errMissingContext
	}

	params, err := UpsertParams(rec)
	if err != nil {
		return err
	}

	if err := queries.UpsertUserStatus(ctx, params); err != nil {
		return domainerrors.IO("upsert", fmt.Sprintf("subject %d", rec.SubjectID), err)
	}
	return nil
}

// BatchUpsert writes every record in a single transaction. Either all of
// them are committed or, on any failure, none are.
func (r *UserStatusRepository) BatchUpsert(ctx context.Context, recs []tracker.UserStatus) error {
	if len(recs) == 0 {
		return nil
	}

	params := make([]sqldb.UpsertUserStatusParams, 0, len(recs))
	for _, rec := range recs {
		p, err := UpsertParams(rec)
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	return r.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		for _, p := range params {
			if err := q.UpsertUserStatus(txCtx, p); err != nil {
				return domainerrors.IO("batch upsert", fmt.Sprintf("subject %d", p.SubjectID), err)
			}
		}
		return nil
	})
}

// Get returns the record for subjectID, or nil when there is none.
func (r *UserStatusRepository) Get(ctx context.Context, subjectID int64) (*tracker.UserStatus, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, errMissingContext
	}

	row, err := queries.GetUserStatus(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domainerrors.IO("get", fmt.Sprintf("subject %d", subjectID), err)
	}

	record, err := UserStatusFromRow(row)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetAll returns every record. Callers must not rely on the order.
func (r *UserStatusRepository) GetAll(ctx context.Context) ([]tracker.UserStatus, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, errMissingContext
	}

	rows, err := queries.ListUserStatus(ctx)
	if err != nil {
		return nil, domainerrors.IO("list", "user_status", err)
	}

	result := make([]tracker.UserStatus, 0, len(rows))
	for _, row := range rows {
		record, err := UserStatusFromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, nil
}

// Delete removes the record for subjectID. Deleting an absent record is not
// an error; the boolean reports whether a row was removed.
func (r *UserStatusRepository) Delete(ctx context.Context, subjectID int64) (bool, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return false, errMissingContext
	}

	affected, err := queries.DeleteUserStatus(ctx, subjectID)
	if err != nil {
		return false, domainerrors.IO("delete", fmt.Sprintf("subject %d", subjectID), err)
	}

	return affected > 0, nil
}

func (r *UserStatusRepository) withTx(ctx context.Context, fn func(context.Context, *sqldb.Queries) error) error {
	if r.ctx == nil || r.ctx.DB == nil {
		return errMissingContext
	}

	tx, err := r.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return domainerrors.IO("begin", "user_status", err)
	}

	if err := fn(ctx, sqldb.New(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %w)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return domainerrors.IO("commit", "user_status", err)
	}

	return nil
}
