package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	err := NewError(ErrCodeToolNotFound, "tool %q missing", "calculator")

	assert.Equal(t, ErrCodeToolNotFound, err.Code)
	assert.Equal(t, `tool "calculator" missing`, err.Message)
	assert.Equal(t, `TOOL_NOT_FOUND: tool "calculator" missing`, err.Error())
}

func TestWrapErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrCodeExecution, cause, "model call failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeExecution, err.Code)
}

func TestWithStep(t *testing.T) {
	base := NewError(ErrCodeTimeout, "deadline exceeded")
	stepped := base.WithStep("analyze")

	assert.Equal(t, "analyze", stepped.StepID)
	assert.Empty(t, base.StepID, "original error must stay untouched")
	assert.Equal(t, "TIMEOUT [step analyze]: deadline exceeded", stepped.Error())
}

func TestCodeOf(t *testing.T) {
	typed := NewError(ErrCodeAgentNotFound, "no such agent")

	assert.Equal(t, ErrCodeAgentNotFound, CodeOf(typed))
	assert.Equal(t, ErrCodeAgentNotFound, CodeOf(fmt.Errorf("outer: %w", typed)))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("untyped")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestIsCode(t *testing.T) {
	err := NewError(ErrCodeWorkflowExecution, "boom")

	assert.True(t, IsCode(err, ErrCodeWorkflowExecution))
	assert.False(t, IsCode(err, ErrCodeTimeout))
}
