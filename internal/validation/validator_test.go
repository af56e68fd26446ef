package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/shelfmark/shelfmark/internal/errors"
)

type sample struct {
	ID     int64   `json:"subject_id" validate:"gt=0"`
	Status string  `json:"status" validate:"required,oneof=watched wishlist skipped"`
	Rating *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=10"`
	IDs    []int64 `json:"subject_ids" validate:"omitempty,dive,gt=0"`
}

func TestValidateAcceptsGoodInput(t *testing.T) {
	r := 10
	require.NoError(t, New().Validate(sample{ID: 1, Status: "watched", Rating: &r}))
	require.NoError(t, New().Validate(sample{ID: 1, Status: "skipped"}))
}

func TestValidateReportsEveryField(t *testing.T) {
	r := 11
	err := New().Validate(sample{ID: 0, Status: "dropped", Rating: &r, IDs: []int64{3, -1}})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	msg := err.Error()
	assert.Contains(t, msg, "subject_id must be greater than 0")
	assert.Contains(t, msg, "status must be one of: watched wishlist skipped")
	assert.Contains(t, msg, "rating must be less than or equal to 10")
	assert.Contains(t, msg, "subject_ids[1] must be greater than 0")
}

func TestValidateNonStruct(t *testing.T) {
	err := New().Validate(42)
	require.ErrorIs(t, err, domainerrors.ErrInternal)
}
