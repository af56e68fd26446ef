// Package mcp serves the tracker commands over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/shelfmark/shelfmark/internal/catalog"
	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/tracker"
	"github.com/shelfmark/shelfmark/internal/usecase"
)

// Server wraps the MCP server with shelfmark's tools. Tool calls may run
// concurrently; the tracker serializes access to each store.
type Server struct {
	server  *mcp.Server
	tracker *usecase.Tracker
	logger  *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(t *usecase.Tracker, logger *slog.Logger, version string) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "shelfmark",
		Version: version,
	}, nil)

	s := &Server{
		server:  mcpServer,
		tracker: t,
		logger:  logger,
	}
	s.registerTools()
	return s
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_list_catalog",
		Description: "List catalog items, optionally filtered by year, rating, tags, status, collections or title",
	}, s.handleListCatalog)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_mark",
		Description: "Set the status of one catalog item, with an optional rating and tags",
	}, s.handleMark)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_batch_mark",
		Description: "Set the same status on several catalog items in one transaction",
	}, s.handleBatchMark)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_unmark",
		Description: "Remove the stored status of a catalog item",
	}, s.handleUnmark)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_get_status",
		Description: "Get the stored status of a catalog item",
	}, s.handleGetStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_list_statuses",
		Description: "List every stored status",
	}, s.handleListStatuses)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_stats",
		Description: "Count statuses against the catalog",
	}, s.handleStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_log_append",
		Description: "Append actions to the flat action log",
	}, s.handleLogAppend)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_log_load",
		Description: "Read every action in the flat action log",
	}, s.handleLogLoad)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_log_delete",
		Description: "Remove the most recent action logged for a catalog item",
	}, s.handleLogDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "shelf_log_clear",
		Description: "Remove every action from the flat action log",
	}, s.handleLogClear)
}

// Input/Output types for each tool

type SubjectInput struct {
	SubjectID int64 `json:"subject_id" jsonschema:"The catalog item id"`
}

type StatusRecord struct {
	SubjectID int64   `json:"subject_id"`
	Status    string  `json:"status"`
	Rating    *int    `json:"rating,omitempty"`
	Tags      *string `json:"tags,omitempty"`
	MarkedAt  string  `json:"marked_at"`
}

type CatalogOutput struct {
	Items []catalog.Item `json:"items"`
	Count int            `json:"count"`
}

type MarkOutput struct {
	Record StatusRecord `json:"record"`
}

type BatchMarkOutput struct {
	Count int `json:"count"`
}

type RemovedOutput struct {
	Removed bool `json:"removed"`
}

type GetStatusOutput struct {
	Found  bool          `json:"found"`
	Record *StatusRecord `json:"record,omitempty"`
}

type ListStatusesOutput struct {
	Records []StatusRecord `json:"records"`
}

type EmptyInput struct{}

type LogAction struct {
	SubjectID int64  `json:"subject_id" jsonschema:"The catalog item id"`
	Status    string `json:"status" jsonschema:"One of watched, wishlist or skipped"`
	Timestamp string `json:"timestamp,omitempty" jsonschema:"RFC3339 time of the action; defaults to now"`
}

type LogAppendInput struct {
	Actions []LogAction `json:"actions" jsonschema:"Actions to append in order"`
}

type LogAppendOutput struct {
	Appended int `json:"appended"`
}

type LogLoadOutput struct {
	Records []StatusRecord `json:"records"`
	Skipped int            `json:"skipped"`
}

type OKOutput struct {
	OK bool `json:"ok"`
}

func toRecord(rec tracker.UserStatus) StatusRecord {
	return StatusRecord{
		SubjectID: rec.SubjectID,
		Status:    string(rec.Status),
		Rating:    rec.Rating,
		Tags:      rec.Tags,
		MarkedAt:  tracker.FormatTime(rec.MarkedAt),
	}
}

func toRecords(recs []tracker.UserStatus) []StatusRecord {
	out := make([]StatusRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecord(rec))
	}
	return out
}

// fail flattens err into the message returned to the client.
func (s *Server) fail(tool string, err error) error {
	s.logger.Warn("tool failed", "tool", tool, "error", err)
	return errors.New(domainerrors.Message(err))
}

// Tool handlers

func (s *Server) handleListCatalog(ctx context.Context, _ *mcp.CallToolRequest, input usecase.ListInput) (*mcp.CallToolResult, CatalogOutput, error) {
	items, err := s.tracker.ListCatalog(ctx, input)
	if err != nil {
		return nil, CatalogOutput{}, s.fail("shelf_list_catalog", err)
	}
	return nil, CatalogOutput{Items: items, Count: len(items)}, nil
}

func (s *Server) handleMark(ctx context.Context, _ *mcp.CallToolRequest, input usecase.MarkInput) (*mcp.CallToolResult, MarkOutput, error) {
	rec, err := s.tracker.Mark(ctx, input)
	if err != nil {
		return nil, MarkOutput{}, s.fail("shelf_mark", err)
	}
	return nil, MarkOutput{Record: toRecord(*rec)}, nil
}

func (s *Server) handleBatchMark(ctx context.Context, _ *mcp.CallToolRequest, input usecase.BatchMarkInput) (*mcp.CallToolResult, BatchMarkOutput, error) {
	n, err := s.tracker.BatchMark(ctx, input)
	if err != nil {
		return nil, BatchMarkOutput{}, s.fail("shelf_batch_mark", err)
	}
	return nil, BatchMarkOutput{Count: n}, nil
}

func (s *Server) handleUnmark(ctx context.Context, _ *mcp.CallToolRequest, input SubjectInput) (*mcp.CallToolResult, RemovedOutput, error) {
	removed, err := s.tracker.Unmark(ctx, input.SubjectID)
	if err != nil {
		return nil, RemovedOutput{}, s.fail("shelf_unmark", err)
	}
	return nil, RemovedOutput{Removed: removed}, nil
}

func (s *Server) handleGetStatus(ctx context.Context, _ *mcp.CallToolRequest, input SubjectInput) (*mcp.CallToolResult, GetStatusOutput, error) {
	rec, err := s.tracker.GetStatus(ctx, input.SubjectID)
	if err != nil {
		return nil, GetStatusOutput{}, s.fail("shelf_get_status", err)
	}
	if rec == nil {
		return nil, GetStatusOutput{Found: false}, nil
	}
	out := toRecord(*rec)
	return nil, GetStatusOutput{Found: true, Record: &out}, nil
}

func (s *Server) handleListStatuses(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, ListStatusesOutput, error) {
	recs, err := s.tracker.ListStatuses(ctx)
	if err != nil {
		return nil, ListStatusesOutput{}, s.fail("shelf_list_statuses", err)
	}
	return nil, ListStatusesOutput{Records: toRecords(recs)}, nil
}

func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, tracker.Stats, error) {
	stats, err := s.tracker.GetStats(ctx)
	if err != nil {
		return nil, tracker.Stats{}, s.fail("shelf_stats", err)
	}
	return nil, stats, nil
}

func (s *Server) handleLogAppend(_ context.Context, _ *mcp.CallToolRequest, input LogAppendInput) (*mcp.CallToolResult, LogAppendOutput, error) {
	actions := make([]usecase.LogActionInput, 0, len(input.Actions))
	for _, a := range input.Actions {
		var ts time.Time
		if a.Timestamp != "" {
			parsed, err := tracker.ParseTime(a.Timestamp)
			if err != nil {
				return nil, LogAppendOutput{}, s.fail("shelf_log_append",
					domainerrors.Validationf("subject %d: invalid timestamp %q", a.SubjectID, a.Timestamp))
			}
			ts = parsed
		}
		actions = append(actions, usecase.LogActionInput{
			SubjectID: a.SubjectID,
			Status:    a.Status,
			Timestamp: ts,
		})
	}

	if err := s.tracker.LogAppend(usecase.LogAppendInput{Actions: actions}); err != nil {
		return nil, LogAppendOutput{}, s.fail("shelf_log_append", err)
	}
	return nil, LogAppendOutput{Appended: len(actions)}, nil
}

func (s *Server) handleLogLoad(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, LogLoadOutput, error) {
	result, err := s.tracker.LogLoad()
	if err != nil {
		return nil, LogLoadOutput{}, s.fail("shelf_log_load", err)
	}
	return nil, LogLoadOutput{Records: toRecords(result.Records), Skipped: result.Skipped}, nil
}

func (s *Server) handleLogDelete(_ context.Context, _ *mcp.CallToolRequest, input SubjectInput) (*mcp.CallToolResult, RemovedOutput, error) {
	removed, err := s.tracker.LogDelete(input.SubjectID)
	if err != nil {
		return nil, RemovedOutput{}, s.fail("shelf_log_delete", err)
	}
	return nil, RemovedOutput{Removed: removed}, nil
}

func (s *Server) handleLogClear(_ context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, OKOutput, error) {
	if err := s.tracker.LogClear(); err != nil {
		return nil, OKOutput{}, s.fail("shelf_log_clear", err)
	}
	return nil, OKOutput{OK: true}, nil
}
