// Package services places each store behind its own guard. Calls on the
// same store are strictly serialized; calls on different stores never wait
// on each other.
package services

import (
	"context"
	"log/slog"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/guard"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

// StatusService exposes the status repository under the records guard.
type StatusService struct {
	repo   *database.UserStatusRepository
	guard  *guard.Guard
	logger *slog.Logger
}

// NewStatusService creates a new StatusService.
func NewStatusService(dbCtx *database.Context, logger *slog.Logger) *StatusService {
	return &StatusService{
		repo:   database.NewUserStatusRepository(dbCtx),
		guard:  guard.New("records"),
		logger: logger,
	}
}

// Upsert stores rec, replacing any record for the same subject.
func (s *StatusService) Upsert(ctx context.Context, rec tracker.UserStatus) error {
	err := s.guard.Do(func() error {
		return s.repo.Upsert(ctx, rec)
	})
	if err != nil {
		s.logger.Warn("upsert failed", "subject_id", rec.SubjectID, "error", err)
	}
	return err
}

// BatchUpsert stores every record in one transaction.
func (s *StatusService) BatchUpsert(ctx context.Context, recs []tracker.UserStatus) error {
	err := s.guard.Do(func() error {
		return s.repo.BatchUpsert(ctx, recs)
	})
	if err != nil {
		s.logger.Warn("batch upsert failed", "count", len(recs), "error", err)
		return err
	}
	s.logger.Debug("batch upsert committed", "count", len(recs))
	return nil
}

// Get returns the record for subjectID, or nil when there is none.
func (s *StatusService) Get(ctx context.Context, subjectID int64) (*tracker.UserStatus, error) {
	return guard.Run(s.guard, func() (*tracker.UserStatus, error) {
		return s.repo.Get(ctx, subjectID)
	})
}

// GetAll returns every stored record.
func (s *StatusService) GetAll(ctx context.Context) ([]tracker.UserStatus, error) {
	return guard.Run(s.guard, func() ([]tracker.UserStatus, error) {
		return s.repo.GetAll(ctx)
	})
}

// Delete removes the record for subjectID and reports whether one existed.
func (s *StatusService) Delete(ctx context.Context, subjectID int64) (bool, error) {
	return guard.Run(s.guard, func() (bool, error) {
		return s.repo.Delete(ctx, subjectID)
	})
}
