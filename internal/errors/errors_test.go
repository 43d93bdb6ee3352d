package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"claimsim/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCode(t *testing.T) {
	base := ConfigInvalid("SIM_TRIALS must be positive")
	err := Wrap(base, "configuration validation failed")

	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.True(t, IsAppError(err))
	assert.True(t, stderrors.Is(err, base))
	assert.Equal(t, "configuration validation failed: SIM_TRIALS must be positive", err.Error())
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"not found", core.NewNotFoundError("run", "abc"), CodeNotFound, http.StatusNotFound},
		{"singular", fmt.Errorf("closure model: %w", core.ErrSingularFit), CodeFitFailed, http.StatusUnprocessableEntity},
		{"no data", fmt.Errorf("prepare: %w", core.ErrInsufficientData), CodeInvalidInput, http.StatusBadRequest},
		{"validation", core.NewValidationError("trials", "must be positive"), CodeInvalidInput, http.StatusBadRequest},
		{"app error", DatabaseError("connection refused"), CodeDatabaseError, http.StatusInternalServerError},
		{"other", stderrors.New("boom"), CodeInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, Classify(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeIOError, stderrors.New("disk full"))
	assert.Equal(t, CodeIOError, GetCode(err))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}
