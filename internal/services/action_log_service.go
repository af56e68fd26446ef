package services

import (
	"log/slog"

	"github.com/shelfmark/shelfmark/internal/flatlog"
	"github.com/shelfmark/shelfmark/internal/guard"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

// ActionLogService exposes the flat action log under the log guard. The
// whole read-modify-write cycle of DeleteLastMatch and Clear runs while the
// guard is held.
type ActionLogService struct {
	log    *flatlog.Log
	guard  *guard.Guard
	logger *slog.Logger
}

// NewActionLogService creates a new ActionLogService for the log at path.
func NewActionLogService(path string, logger *slog.Logger) *ActionLogService {
	return &ActionLogService{
		log:    flatlog.New(path),
		guard:  guard.New("action log"),
		logger: logger,
	}
}

// Path returns the log file location.
func (s *ActionLogService) Path() string {
	return s.log.Path()
}

// Append adds actions to the end of the log.
func (s *ActionLogService) Append(actions []tracker.Action) error {
	err := s.guard.Do(func() error {
		return s.log.Append(actions)
	})
	if err != nil {
		s.logger.Warn("log append failed", "path", s.log.Path(), "error", err)
	}
	return err
}

// LoadAll reads the whole log. Undecodable rows are skipped and reported in
// the result.
func (s *ActionLogService) LoadAll() (flatlog.LoadResult, error) {
	result, err := guard.Run(s.guard, s.log.LoadAll)
	if err != nil {
		return flatlog.LoadResult{}, err
	}
	if result.Skipped > 0 {
		s.logger.Warn("skipped malformed log rows", "path", s.log.Path(), "count", result.Skipped)
	}
	return result, nil
}

// DeleteLastMatch removes the most recent row for subjectID.
func (s *ActionLogService) DeleteLastMatch(subjectID int64) (bool, error) {
	return guard.Run(s.guard, func() (bool, error) {
		return s.log.DeleteLastMatch(subjectID)
	})
}

// Clear truncates the log to its header.
func (s *ActionLogService) Clear() error {
	return s.guard.Do(s.log.Clear)
}
