package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolationMatchesCode23505(t *testing.T) {
	err := &pq.Error{Code: "23505"}
	require.True(t, isUniqueViolation(err))
}

func TestIsUniqueViolationRejectsOtherCodes(t *testing.T) {
	err := &pq.Error{Code: "23503"}
	require.False(t, isUniqueViolation(err))
}

func TestIsUniqueViolationUnwrapsWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("insert email: %w", &pq.Error{Code: "23505"})
	require.True(t, isUniqueViolation(wrapped))
}

func TestIsUniqueViolationRejectsNonPQError(t *testing.T) {
	require.False(t, isUniqueViolation(errors.New("connection reset")))
}
