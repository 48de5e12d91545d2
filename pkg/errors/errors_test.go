package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailDoesNotMutatePredefined(t *testing.T) {
	detailed := ErrInvalidBatchSize.WithDetail("got 0")

	assert.Equal(t, "got 0", detailed.Detail)
	assert.Empty(t, ErrInvalidBatchSize.Detail, "predefined error must stay pristine")
	assert.Equal(t, ErrInvalidBatchSize.Code, detailed.Code)
	assert.Equal(t, ErrInvalidBatchSize.HTTPStatus, detailed.HTTPStatus)

	// 两次派生互不影响
	other := ErrInvalidBatchSize.WithDetail("got -1")
	assert.Equal(t, "got 0", detailed.Detail)
	assert.Equal(t, "got -1", other.Detail)
}

func TestWithErrorDoesNotMutatePredefined(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	wrapped := ErrRunActive.WithError(cause)

	require.NotNil(t, wrapped.Err)
	assert.Nil(t, ErrRunActive.Err, "predefined error must stay pristine")
	assert.True(t, errors.Is(wrapped, cause))
}

func TestErrorFormatting(t *testing.T) {
	plain := New(CodeRunNotFound, "migration run not found")
	assert.Equal(t, "[4003] migration run not found", plain.Error())

	wrapped := Wrap(fmt.Errorf("no rows"), CodeDatabaseError, "query failed")
	assert.Equal(t, "[3001] query failed: no rows", wrapped.Error())
	assert.EqualError(t, wrapped.Unwrap(), "no rows")
}

func TestCodeToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, New(CodeInvalidBatchSize, "x").HTTPStatus)
	assert.Equal(t, http.StatusConflict, New(CodeRunActive, "x").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, New(CodeRunNotFound, "x").HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, New(CodeValidationFailed, "x").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, New(CodeMigrationFailed, "x").HTTPStatus)
}

func TestAsAppError(t *testing.T) {
	appErr := New(CodeConflict, "conflict")
	assert.Same(t, appErr, AsAppError(appErr))

	converted := AsAppError(fmt.Errorf("boom"))
	assert.Equal(t, CodeUnknown, converted.Code)
	assert.EqualError(t, converted.Unwrap(), "boom")
}
