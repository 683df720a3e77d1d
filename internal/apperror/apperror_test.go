package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nortsur/pedidos/internal/apperror"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("service: %w", apperror.NotFound("order %d not found", 7))

	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.False(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, "service: order 7 not found", err.Error())

	kind, ok := apperror.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.KindNotFound, kind)
}

func TestError_DistinctMessagesDoNotMatch(t *testing.T) {
	a := apperror.Conflict("a")
	b := apperror.Conflict("b")

	assert.False(t, errors.Is(a, b))
	assert.True(t, errors.Is(a, apperror.ErrConflict))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := apperror.Wrap(apperror.KindConflict, cause, "product code %q already exists", "A1")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, `product code "A1" already exists`, err.Error())
}

func TestKindOf_PlainError(t *testing.T) {
	_, ok := apperror.KindOf(errors.New("boom"))
	assert.False(t, ok)
}
