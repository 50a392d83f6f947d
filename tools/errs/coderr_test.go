package errs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	// WithDetail 出的是克隆，按 code 仍视为同类错误
	err := ErrUnauthorized.WithDetail("token hash mismatch")
	assert.True(t, Is(err, ErrUnauthorized))
	assert.False(t, Is(err, ErrNotFound))

	// 带栈包装后依然能认出来
	wrapped := ErrStoreUnavailable.WrapMsg("mongo down")
	assert.True(t, Is(wrapped, ErrStoreUnavailable))

	// 普通错误不会误判成任何 CodeError
	assert.False(t, Is(New("boom"), ErrUnauthorized))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeUnauthorized, CodeOf(ErrUnauthorized.WithDetail("x")))
	assert.Equal(t, CodeStoreUnavailable, CodeOf(ErrStoreUnavailable.WrapMsg("y")))
	assert.Equal(t, CodeInternal, CodeOf(New("plain")))
	assert.Zero(t, CodeOf(nil))
}

func TestWithDetailDoesNotMutate(t *testing.T) {
	base := NewCodeError(429, "rate limited")
	derived := base.WithDetail("scope g1")
	assert.Empty(t, base.Detail)
	assert.Contains(t, derived.Error(), "scope g1")
}
