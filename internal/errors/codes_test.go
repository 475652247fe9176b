package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := SessionNotFound("abc-123")
	require.Equal(t, "[SESSION_NOT_FOUND] session not found: abc-123", err.Error())

	cause := stderrors.New("connection refused")
	wrapped := StoreUnavailable("failed to list sessions", cause)
	require.Contains(t, wrapped.Error(), "STORE_UNAVAILABLE")
	require.Contains(t, wrapped.Error(), "connection refused")
	require.ErrorIs(t, wrapped, cause)
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", InvalidArgument("userId must not be empty"))
	require.True(t, IsCode(err, CodeInvalidArgument))
	require.False(t, IsCode(err, CodeTimeout))
	require.False(t, IsCode(stderrors.New("plain"), CodeInvalidArgument))
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, CodeTimeout, CodeOf(Timeout("too slow", nil), CodeStoreUnavailable))
	require.Equal(t, CodeStoreUnavailable, CodeOf(stderrors.New("plain"), CodeStoreUnavailable))
}
