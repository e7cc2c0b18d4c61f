package browser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("extract title: %w", notFound("h4 a"))

	assert.True(t, IsKind(wrapped, ElementNotFound))
	assert.False(t, IsKind(wrapped, StaleReference))
	assert.Equal(t, ElementNotFound, KindOf(wrapped))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, Timeout))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("https://example.test/a.jpg", cause)

	assert.Equal(t, "network error (url https://example.test/a.jpg): connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `timeout (selector "li.item")`, timeout("li.item", nil).Error())
	assert.Equal(t, "stale reference", StaleReference.String())
}
