// Package flatlog stores the user's action history as an append-only CSV
// file. The file may hold several rows for the same subject; the current
// status for a subject is its last row in file order.
package flatlog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/filesystem"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

// Header is the first row of every log file.
var Header = []string{"subject_id", "status", "timestamp"}

const (
	fieldCount = 3
	// maxLineSize bounds a single row; longer lines fail the read.
	maxLineSize = 1 << 20
)

// Log is a flat action log at a fixed path. It does no locking; callers
// serialize access through services.ActionLogService.
type Log struct {
	path string
}

// LoadResult is the outcome of LoadAll.
type LoadResult struct {
	Records []tracker.UserStatus `json:"records"`
	// Skipped counts rows that could not be decoded.
	Skipped int `json:"skipped"`
}

func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the file the log reads and writes.
func (l *Log) Path() string {
	return l.path
}

// Append writes one row per action, adding the header first if the file is
// new or empty. The file is synced before Append returns.
func (l *Log) Append(actions []tracker.Action) (err error) {
	normalized := make([]tracker.Action, 0, len(actions))
	for _, a := range actions {
		status, perr := tracker.ParseStatus(string(a.Status))
		if perr != nil {
			return domainerrors.Validationf("subject %d: invalid status %q", a.SubjectID, a.Status)
		}
		a.Status = status
		normalized = append(normalized, a)
	}

	if err := filesystem.EnsureDir(l.path); err != nil {
		return domainerrors.IO("open", l.path, err)
	}

	needHeader, err := filesystem.IsEmpty(l.path)
	if err != nil {
		return domainerrors.IO("open", l.path, err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // G304: path comes from config
	if err != nil {
		return domainerrors.IO("open", l.path, err)
	}
	defer func() {
		if f == nil {
			return
		}
		if cerr := f.Close(); cerr != nil && err == nil {
			err = domainerrors.IO("close", l.path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(Header); err != nil {
			return domainerrors.IO("write", l.path, err)
		}
	}
	for _, a := range normalized {
		if err := w.Write(encodeAction(a)); err != nil {
			return domainerrors.IO("write", l.path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return domainerrors.IO("flush", l.path, err)
	}
	if err := f.Sync(); err != nil {
		return domainerrors.IO("sync", l.path, err)
	}
	cerr := f.Close()
	f = nil
	if cerr != nil {
		return domainerrors.IO("close", l.path, cerr)
	}
	return nil
}

// LoadAll reads every row back. A missing file yields an empty result.
// Rows that cannot be decoded are skipped and counted in Skipped.
func (l *Log) LoadAll() (LoadResult, error) {
	lines, err := l.readLines()
	if err != nil {
		return LoadResult{}, err
	}

	result := LoadResult{Records: make([]tracker.UserStatus, 0, len(lines))}
	for _, ln := range lines {
		if ln.fields == nil {
			result.Skipped++
			continue
		}
		action, err := decodeAction(ln.fields)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Records = append(result.Records, action.ToUserStatus())
	}
	return result, nil
}

// DeleteLastMatch removes the last row for subjectID and rewrites the file
// atomically. Earlier rows for the same subject are kept, and every other
// line is written back verbatim. It reports whether a row was removed; a
// missing file or no match is not an error.
func (l *Log) DeleteLastMatch(subjectID int64) (bool, error) {
	lines, err := l.readLines()
	if err != nil {
		return false, err
	}

	key := strconv.FormatInt(subjectID, 10)
	idx := -1
	for i, ln := range slices.Backward(lines) {
		if len(ln.fields) > 0 && rowKey(ln.fields) == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	kept := make([]line, 0, len(lines)-1)
	kept = append(kept, lines[:idx]...)
	kept = append(kept, lines[idx+1:]...)
	if err := l.rewrite(kept); err != nil {
		return false, err
	}
	return true, nil
}

// Clear truncates the log to its header, creating the file if needed.
func (l *Log) Clear() error {
	if err := filesystem.EnsureDir(l.path); err != nil {
		return domainerrors.IO("open", l.path, err)
	}
	return l.rewrite(nil)
}

// line is one physical row of the log after the header. fields is nil when
// the row is not valid csv.
type line struct {
	raw    string
	fields []string
}

// readLines returns every non-blank line after the header. Each line is
// parsed on its own so a broken quote cannot spill into the rows below it.
// A first line that is not the header is kept as data.
func (l *Log) readLines() ([]line, error) {
	f, err := os.Open(l.path) //nolint:gosec // G304: path comes from config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domainerrors.IO("open", l.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []line
	first := true
	for sc.Scan() {
		raw := sc.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		ln := line{raw: raw, fields: parseLine(raw)}
		if first {
			first = false
			if isHeader(ln.fields) {
				continue
			}
		}
		lines = append(lines, ln)
	}
	if err := sc.Err(); err != nil {
		return nil, domainerrors.IO("read", l.path, err)
	}
	return lines, nil
}

func parseLine(raw string) []string {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return nil
	}
	return fields
}

func isHeader(fields []string) bool {
	if len(fields) != len(Header) {
		return false
	}
	for i, name := range Header {
		if strings.TrimSpace(strings.TrimPrefix(fields[i], "\ufeff")) != name {
			return false
		}
	}
	return true
}

func (l *Log) rewrite(lines []line) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return domainerrors.IO("write", l.path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domainerrors.IO("flush", l.path, err)
	}
	for _, ln := range lines {
		buf.WriteString(ln.raw)
		buf.WriteByte('\n')
	}

	f, err := filesystem.CreateAtomic(l.path)
	if err != nil {
		return domainerrors.IO("open", l.path, err)
	}
	defer f.Cancel()

	if _, err := f.Write(buf.Bytes()); err != nil {
		return domainerrors.IO("write", l.path, err)
	}
	if err := f.Close(); err != nil {
		return domainerrors.IO(f.Op, l.path, err)
	}
	return nil
}

func rowKey(row []string) string {
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return row[0]
	}
	return strconv.FormatInt(id, 10)
}

func encodeAction(a tracker.Action) []string {
	return []string{
		strconv.FormatInt(a.SubjectID, 10),
		string(a.Status),
		tracker.FormatTime(a.Timestamp),
	}
}

func decodeAction(row []string) (tracker.Action, error) {
	if len(row) != fieldCount {
		return tracker.Action{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(row))
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return tracker.Action{}, fmt.Errorf("invalid subject_id %q: %w", row[0], err)
	}
	status, err := tracker.ParseStatus(row[1])
	if err != nil {
		return tracker.Action{}, err
	}
	ts, err := tracker.ParseTime(row[2])
	if err != nil {
		return tracker.Action{}, fmt.Errorf("invalid timestamp %q: %w", row[2], err)
	}
	return tracker.Action{SubjectID: id, Status: status, Timestamp: ts}, nil
}
