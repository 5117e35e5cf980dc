package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAsMatchesSentinel(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := WrapAs(ErrSendFailure, cause, "smtp submit failed")

	assert.True(t, errors.Is(err, ErrSendFailure))
	assert.False(t, errors.Is(err, ErrStaleEntity))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "smtp submit failed: dial tcp: connection refused", err.Error())
}

func TestCloneKeepsCode(t *testing.T) {
	err := Clone(ErrTickInProgress, "busy")
	assert.True(t, errors.Is(err, ErrTickInProgress))
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Equal(t, "busy", err.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	err := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Nil(t, FromError(nil))
}
