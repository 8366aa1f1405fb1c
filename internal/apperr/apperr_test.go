// ABOUTME: Tests for the tagged error type
// ABOUTME: Covers kind extraction through wrapping and the upstream fallback

package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("creating order: %w", Forbidden("store owned by another agent"))

	assert.Equal(t, KindForbidden, KindOf(err))
	assert.True(t, Is(err, KindForbidden))
	assert.False(t, Is(err, KindNotFound))
}

func TestKindOf_ForeignErrorIsUpstream(t *testing.T) {
	assert.Equal(t, KindUpstream, KindOf(errors.New("connection reset")))
	assert.False(t, Is(nil, KindUpstream))
}

func TestUpstream_KeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Upstream("saving order", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestWithDetails_DoesNotMutate(t *testing.T) {
	base := Validation("bad input")
	withDetails := base.WithDetails(map[string]string{"field": "price"})

	assert.Nil(t, base.Details)
	assert.Equal(t, map[string]string{"field": "price"}, withDetails.Details)
	assert.Equal(t, base.Message, withDetails.Message)
}
