package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("submit report: %w", InvalidState("report %s is %s", "abc", "submitted"))

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "report abc is submitted")
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Storage(cause, "failed to get report")

	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "failed to get report: connection refused", err.Error())
}

func TestIncompleteCarriesMissingSections(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Incomplete([]string{"siteVisuals"}))

	assert.True(t, errors.Is(err, ErrIncompleteDraft))
	assert.Equal(t, []string{"siteVisuals"}, Missing(err))
	assert.Nil(t, Missing(errors.New("plain")))
}
