package calcerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidInputError_MatchesSentinelThroughWrapping(t *testing.T) {
	err := fmt.Errorf("settle: %w", Invalid("amount", "must not be negative, got %s", "-1.00"))

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrAllocation))

	var target *InvalidInputError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "amount", target.Field)
	assert.Equal(t, "invalid input: amount: must not be negative, got -1.00", target.Error())
}

func TestAllocationError_MatchesSentinel(t *testing.T) {
	err := &AllocationError{Item: "Müllabfuhr", Key: "persons", Reason: "sum of measures is zero"}

	assert.True(t, errors.Is(err, ErrAllocation))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "Müllabfuhr")
	assert.Contains(t, err.Error(), "persons")
}

func TestInvalidInputError_WithoutField(t *testing.T) {
	err := &InvalidInputError{Reason: "period is empty"}
	assert.Equal(t, "invalid input: period is empty", err.Error())
}
