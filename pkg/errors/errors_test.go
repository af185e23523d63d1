package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrTCNotFound, ""))
	appErr := FromError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrTCNotFound.Code, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Contains(t, appErr.Error(), "boom")
	assert.Nil(t, FromError(nil))
}

func TestClonedErrorsMatchTemplate(t *testing.T) {
	err := Wrap(errors.New("bucket offline"), ErrTCIssueFailed.Code, ErrTCIssueFailed.Status, "upload failed")
	assert.True(t, errors.Is(err, ErrTCIssueFailed))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "upload failed: bucket offline", err.Error())

	clone := Clone(ErrValidation, "leaving date must be after admission date")
	assert.True(t, errors.Is(clone, ErrValidation))
	assert.Equal(t, "validation failed", ErrValidation.Message)
}
