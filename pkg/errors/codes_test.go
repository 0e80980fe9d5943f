package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusBadGateway, HTTPStatusForCode(ErrCodeFetchFailed))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusForCode(ErrCodeInvalidInput))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForCode(ErrorCode("NOPE")))
}

func TestIsDashboardCode(t *testing.T) {
	assert.True(t, IsDashboardCode(ErrCodeInconsistent))
	assert.False(t, IsDashboardCode(ErrCodeInternal))
}

func TestEveryDashboardCodeHasStatus(t *testing.T) {
	for _, code := range []ErrorCode{
		ErrCodeFetchFailed, ErrCodeCancelled, ErrCodeInconsistent, ErrCodeInvalidInput,
		ErrCodeGeometrySourceMissing, ErrCodeGeometryNotFound, ErrCodeNotReady, ErrCodeInvalidBBox,
	} {
		_, ok := ErrorCodeHTTPStatus[code]
		assert.True(t, ok, "missing status for %s", code)
	}
}
