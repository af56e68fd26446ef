package flatlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
	"github.com/shelfmark/shelfmark/internal/tracker"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "logs", "actions.csv"))
}

func ts(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Append([]tracker.Action{{SubjectID: 1, Status: tracker.StatusWatched, Timestamp: ts(100)}}))
	require.NoError(t, log.Append([]tracker.Action{{SubjectID: 2, Status: tracker.StatusSkipped, Timestamp: ts(200)}}))

	lines := readLines(t, log.Path())
	require.Len(t, lines, 3)
	assert.Equal(t, "subject_id,status,timestamp", lines[0])
	assert.Equal(t, "1,watched,1970-01-01T00:01:40Z", lines[1])
	assert.Equal(t, "2,skipped,1970-01-01T00:03:20Z", lines[2])
}

func TestAppendEmptyCreatesHeader(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Append(nil))
	require.NoError(t, log.Append(nil))

	assert.Equal(t, []string{"subject_id,status,timestamp"}, readLines(t, log.Path()))
}

func TestAppendAddsHeaderToEmptyFile(t *testing.T) {
	log := newTestLog(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(log.Path()), 0o750))
	require.NoError(t, os.WriteFile(log.Path(), nil, 0o600))

	require.NoError(t, log.Append([]tracker.Action{{SubjectID: 3, Status: tracker.StatusWishlist, Timestamp: ts(1)}}))

	lines := readLines(t, log.Path())
	require.Len(t, lines, 2)
	assert.Equal(t, "subject_id,status,timestamp", lines[0])
}

func TestAppendRejectsInvalidStatus(t *testing.T) {
	log := newTestLog(t)

	err := log.Append([]tracker.Action{
		{SubjectID: 1, Status: tracker.StatusWatched, Timestamp: ts(1)},
		{SubjectID: 2, Status: tracker.Status("dropped"), Timestamp: ts(2)},
	})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.NoFileExists(t, log.Path())
}

func TestAppendThenLoadFromFreshHandle(t *testing.T) {
	log := newTestLog(t)
	actions := []tracker.Action{
		{SubjectID: 10, Status: tracker.StatusWatched, Timestamp: time.Date(2024, 5, 1, 8, 0, 0, 500, time.UTC)},
		{SubjectID: 11, Status: tracker.StatusWishlist, Timestamp: ts(300)},
	}
	require.NoError(t, log.Append(actions))

	result, err := New(log.Path()).LoadAll()
	require.NoError(t, err)
	assert.Zero(t, result.Skipped)
	require.Len(t, result.Records, 2)

	for i, rec := range result.Records {
		assert.Equal(t, actions[i].SubjectID, rec.SubjectID)
		assert.Equal(t, actions[i].Status, rec.Status)
		assert.True(t, actions[i].Timestamp.Equal(rec.MarkedAt))
		assert.Nil(t, rec.Rating)
		assert.Nil(t, rec.Tags)
	}
}

func TestLoadAllMissingFile(t *testing.T) {
	result, err := newTestLog(t).LoadAll()
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Zero(t, result.Skipped)
}

func TestLoadAllSkipsMalformedRows(t *testing.T) {
	log := newTestLog(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(log.Path()), 0o750))
	content := strings.Join([]string{
		"subject_id,status,timestamp",
		"1,watched,2024-01-01T00:00:00Z",
		"abc,watched,2024-01-01T00:00:00Z",
		"2,dropped,2024-01-01T00:00:00Z",
		"3,wishlist,yesterday",
		"4,skipped",
		"5,skipped,2024-01-02T00:00:00Z,extra",
		"6,skipped,2024-01-03T00:00:00+09:00",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(log.Path(), []byte(content), 0o600))

	result, err := log.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 5, result.Skipped)
	require.Len(t, result.Records, 2)
	assert.Equal(t, int64(1), result.Records[0].SubjectID)
	assert.Equal(t, int64(6), result.Records[1].SubjectID)
	assert.Equal(t, tracker.StatusSkipped, result.Records[1].Status)
}

func writeLog(t *testing.T, log *Log, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(log.Path()), 0o750))
	require.NoError(t, os.WriteFile(log.Path(), []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

func TestUnclosedQuoteOnlySkipsItsOwnRow(t *testing.T) {
	log := newTestLog(t)
	writeLog(t, log,
		"subject_id,status,timestamp",
		"1,watched,2024-01-01T00:00:00Z",
		`2,"watched,2024-01-02T00:00:00Z`,
		"3,watched,2024-01-03T00:00:00Z",
		"4,skipped,2024-01-04T00:00:00Z",
	)

	result, err := log.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Records, 3)
	assert.Equal(t, int64(3), result.Records[1].SubjectID)
	assert.Equal(t, int64(4), result.Records[2].SubjectID)

	removed, err := log.DeleteLastMatch(4)
	require.NoError(t, err)
	require.True(t, removed)

	assert.Equal(t, []string{
		"subject_id,status,timestamp",
		"1,watched,2024-01-01T00:00:00Z",
		`2,"watched,2024-01-02T00:00:00Z`,
		"3,watched,2024-01-03T00:00:00Z",
	}, readLines(t, log.Path()))
}

func TestFirstRowIsOnlySkippedWhenItIsTheHeader(t *testing.T) {
	t.Run("broken header", func(t *testing.T) {
		log := newTestLog(t)
		writeLog(t, log,
			`subject_id,"status,timestamp`,
			"1,watched,2024-01-01T00:00:00Z",
		)

		result, err := log.LoadAll()
		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		require.Len(t, result.Records, 1)
		assert.Equal(t, int64(1), result.Records[0].SubjectID)
	})

	t.Run("no header", func(t *testing.T) {
		log := newTestLog(t)
		writeLog(t, log,
			"1,watched,2024-01-01T00:00:00Z",
			"2,skipped,2024-01-02T00:00:00Z",
		)

		result, err := log.LoadAll()
		require.NoError(t, err)
		assert.Zero(t, result.Skipped)
		require.Len(t, result.Records, 2)

		removed, err := log.DeleteLastMatch(2)
		require.NoError(t, err)
		require.True(t, removed)
		assert.Equal(t, []string{
			"subject_id,status,timestamp",
			"1,watched,2024-01-01T00:00:00Z",
		}, readLines(t, log.Path()))
	})

	t.Run("header with BOM and blank lines", func(t *testing.T) {
		log := newTestLog(t)
		writeLog(t, log,
			"\ufeffsubject_id,status,timestamp",
			"",
			"1,watched,2024-01-01T00:00:00Z",
		)

		result, err := log.LoadAll()
		require.NoError(t, err)
		assert.Zero(t, result.Skipped)
		assert.Len(t, result.Records, 1)
	})
}

func TestAppendStoresNormalizedStatus(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Append([]tracker.Action{{SubjectID: 1, Status: tracker.Status(" wishlist "), Timestamp: ts(1)}}))

	lines := readLines(t, log.Path())
	require.Len(t, lines, 2)
	assert.Equal(t, "1,wishlist,1970-01-01T00:00:01Z", lines[1])
}

func TestDeleteLastMatchKeepsEarlierRows(t *testing.T) {
	log := newTestLog(t)
	require.NoError(t, log.Append([]tracker.Action{
		{SubjectID: 7, Status: tracker.StatusWatched, Timestamp: ts(1)},
		{SubjectID: 8, Status: tracker.StatusSkipped, Timestamp: ts(2)},
		{SubjectID: 7, Status: tracker.StatusWishlist, Timestamp: ts(3)},
	}))

	removed, err := log.DeleteLastMatch(7)
	require.NoError(t, err)
	assert.True(t, removed)

	result, err := log.LoadAll()
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, int64(7), result.Records[0].SubjectID)
	assert.Equal(t, tracker.StatusWatched, result.Records[0].Status)
	assert.True(t, ts(1).Equal(result.Records[0].MarkedAt))
	assert.Equal(t, int64(8), result.Records[1].SubjectID)

	assert.Equal(t, "subject_id,status,timestamp", readLines(t, log.Path())[0])
}

func TestDeleteLastMatchNoop(t *testing.T) {
	log := newTestLog(t)

	removed, err := log.DeleteLastMatch(1)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoFileExists(t, log.Path())

	require.NoError(t, log.Append([]tracker.Action{{SubjectID: 2, Status: tracker.StatusWatched, Timestamp: ts(1)}}))
	before, err := os.ReadFile(log.Path())
	require.NoError(t, err)

	removed, err = log.DeleteLastMatch(1)
	require.NoError(t, err)
	assert.False(t, removed)

	after, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDeleteLastMatchPreservesMalformedRows(t *testing.T) {
	log := newTestLog(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(log.Path()), 0o750))
	content := "subject_id,status,timestamp\n" +
		"1,watched,2024-01-01T00:00:00Z\n" +
		"abc,watched,2024-01-01T00:00:00Z\n" +
		"1,skipped,2024-01-02T00:00:00Z\n"
	require.NoError(t, os.WriteFile(log.Path(), []byte(content), 0o600))

	removed, err := log.DeleteLastMatch(1)
	require.NoError(t, err)
	require.True(t, removed)

	assert.Equal(t, []string{
		"subject_id,status,timestamp",
		"1,watched,2024-01-01T00:00:00Z",
		"abc,watched,2024-01-01T00:00:00Z",
	}, readLines(t, log.Path()))
}

func TestClear(t *testing.T) {
	log := newTestLog(t)

	require.NoError(t, log.Clear())
	assert.Equal(t, []string{"subject_id,status,timestamp"}, readLines(t, log.Path()))

	require.NoError(t, log.Append([]tracker.Action{
		{SubjectID: 1, Status: tracker.StatusWatched, Timestamp: ts(1)},
		{SubjectID: 2, Status: tracker.StatusWatched, Timestamp: ts(2)},
	}))
	require.NoError(t, log.Clear())

	result, err := log.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, []string{"subject_id,status,timestamp"}, readLines(t, log.Path()))

	entries, err := os.ReadDir(filepath.Dir(log.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func TestOpenFailureIsTypedIOError(t *testing.T) {
	dir := t.TempDir()
	// The log path is a directory, so opening it for append fails.
	log := New(dir)

	err := log.Append([]tracker.Action{{SubjectID: 1, Status: tracker.StatusWatched, Timestamp: ts(1)}})
	require.ErrorIs(t, err, domainerrors.ErrIO)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "open", derr.Op)
}
