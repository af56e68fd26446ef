package errors

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Validationf("unknown status %q", "interested")
	assert.True(t, Is(err, ErrValidation))
	assert.False(t, Is(err, ErrIO))

	wrapped := fmt.Errorf("mark failed: %w", err)
	assert.True(t, Is(wrapped, ErrValidation))
	assert.Equal(t, CodeValidation, CodeOf(wrapped))
}

func TestIOErrorNamesOperationAndCause(t *testing.T) {
	err := IO("open", "/tmp/log.csv", fs.ErrPermission)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "open")
	assert.Contains(t, err.Error(), "/tmp/log.csv")
	assert.True(t, Is(err, fs.ErrPermission))
	assert.True(t, Is(err, ErrIO))
}

func TestMessageFlattens(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "plain", Message(New("plain")))
	assert.Equal(t, "flush: log.csv: disk full (IO)", Message(IO("flush", "log.csv", New("disk full"))))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(New("boom")))
}
