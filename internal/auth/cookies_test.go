package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCookieRoundTrip(t *testing.T) {
	codec := NewCookieCodec("test-secret")
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)

	value, err := codec.EncodeSession("token-123", expiresAt)
	require.NoError(t, err)

	token, exp, err := codec.DecodeSession(value)
	require.NoError(t, err)
	assert.Equal(t, "token-123", token)
	assert.True(t, exp.Equal(expiresAt))
}

func TestSessionCookieRejections(t *testing.T) {
	codec := NewCookieCodec("test-secret")

	t.Run("Wrong secret", func(t *testing.T) {
		value, err := NewCookieCodec("other-secret").EncodeSession("token", time.Now().Add(time.Hour))
		require.NoError(t, err)
		_, _, err = codec.DecodeSession(value)
		assert.ErrorIs(t, err, ErrInvalidCookie)
	})

	t.Run("Expired", func(t *testing.T) {
		value, err := codec.EncodeSession("token", time.Now().Add(-time.Minute))
		require.NoError(t, err)
		_, _, err = codec.DecodeSession(value)
		assert.ErrorIs(t, err, ErrInvalidCookie)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, _, err := codec.DecodeSession("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidCookie)
	})

	t.Run("State cookie is not a session cookie", func(t *testing.T) {
		value, err := codec.EncodeState("state", "/dashboard")
		require.NoError(t, err)
		_, _, err = codec.DecodeSession(value)
		assert.ErrorIs(t, err, ErrInvalidCookie)
	})
}

func TestStateCookieRoundTrip(t *testing.T) {
	codec := NewCookieCodec("test-secret")

	value, err := codec.EncodeState("abc", "/gitlab")
	require.NoError(t, err)

	state, redirectTo, err := codec.DecodeState(value)
	require.NoError(t, err)
	assert.Equal(t, "abc", state)
	assert.Equal(t, "/gitlab", redirectTo)
}

func TestVerifyState(t *testing.T) {
	codec := NewCookieCodec("test-secret")
	value, err := codec.EncodeState("abc", "/gitlab")
	require.NoError(t, err)

	redirectTo, err := codec.VerifyState(value, "abc")
	require.NoError(t, err)
	assert.Equal(t, "/gitlab", redirectTo)

	_, err = codec.VerifyState(value, "xyz")
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = codec.VerifyState(value, "")
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, err = codec.VerifyState("", "abc")
	assert.ErrorIs(t, err, ErrStateMismatch)

	forged, err := NewCookieCodec("other-secret").EncodeState("abc", "/")
	require.NoError(t, err)
	_, err = codec.VerifyState(forged, "abc")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestSafeRedirect(t *testing.T) {
	assert.Equal(t, "/dashboard", SafeRedirect("/dashboard", "/"))
	assert.Equal(t, "/", SafeRedirect("", "/"))
	assert.Equal(t, "/", SafeRedirect("https://evil.example.com", "/"))
	assert.Equal(t, "/", SafeRedirect("//evil.example.com", "/"))
	assert.Equal(t, "/", SafeRedirect("/\\evil.example.com", "/"))
}
