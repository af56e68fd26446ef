package sqldb

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every query can run
// either standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Querier lists the statements available against the user_status table.
type Querier interface {
	UpsertUserStatus(ctx context.Context, arg UpsertUserStatusParams) error
	GetUserStatus(ctx context.Context, subjectID int64) (UserStatus, error)
	ListUserStatus(ctx context.Context) ([]UserStatus, error)
	DeleteUserStatus(ctx context.Context, subjectID int64) (int64, error)
}

var _ Querier = (*Queries)(nil)

// Queries binds the user_status statements to a DBTX.
type Queries struct {
	db DBTX
}

// New constructs a Queries helper around the provided DB interface.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of the Queries helper scoped to the supplied transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
