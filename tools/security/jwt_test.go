package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerify(t *testing.T) {
	opts := DefaultOptions([]byte("s3cret"))

	token, hash, err := Generate(opts, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, HashToken(token), hash)

	uid, err := Verify(opts, token, hash)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	// 不带期望哈希也能验签
	uid, err = Verify(opts, token, "")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("a")), "u1")
	require.NoError(t, err)

	_, err = Verify(DefaultOptions([]byte("b")), token, "")
	assert.Error(t, err)
}

func TestVerifyRejectsHashMismatch(t *testing.T) {
	opts := DefaultOptions([]byte("s"))
	t1, _, err := Generate(opts, "u1")
	require.NoError(t, err)
	t2, h2, err := Generate(opts, "u1")
	require.NoError(t, err)

	require.NotEqual(t, t1, t2, "two issues must never collide")
	_, err = Verify(opts, t1, h2)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	opts := DefaultOptions([]byte("s"))
	opts.TTL = time.Millisecond
	token, _, err := Generate(opts, "u1")
	require.NoError(t, err)

	// exp 精度是秒，等它跨过秒界
	time.Sleep(1200 * time.Millisecond)
	_, err = Verify(opts, token, "")
	assert.Error(t, err)
}

func TestNoTTLMeansNoExpiry(t *testing.T) {
	opts := DefaultOptions([]byte("s"))
	token, _, err := Generate(opts, "u1")
	require.NoError(t, err)

	uid, err := Verify(opts, token, "")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestUnsupportedAlg(t *testing.T) {
	opts := Options{Secret: []byte("s"), Alg: "RS256"}
	_, _, err := Generate(opts, "u1")
	assert.Error(t, err)
}

func TestPasswordCheck(t *testing.T) {
	h := HashPassword("hunter2")
	assert.True(t, CheckPassword("hunter2", h))
	assert.False(t, CheckPassword("hunter3", h))
}
