package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", lockedError())

	assert.True(t, errors.Is(err, ErrLocked))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindLocked, KindOf(err))
	assert.Equal(t, MsgLocked, MessageOf(err))
}

func TestError_IsMatchesCodeWhenSet(t *testing.T) {
	err := validationError(CodePIRequiredFirst, MsgPIRequiredFirst)

	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, &Error{Kind: KindValidation, Code: CodePIRequiredFirst})
	assert.NotErrorIs(t, err, &Error{Kind: KindValidation, Code: CodeInvoiceLength})
	assert.Equal(t, CodePIRequiredFirst, CodeOf(err))
}

func TestMessageOf_HidesForeignErrors(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", MessageOf(errors.New("pq: relation missing")))
	assert.Equal(t, "An unexpected error occurred", MessageOf(internalError("failed", errors.New("x"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("x")))
}
