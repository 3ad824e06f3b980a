package dherr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsIOErrorSeesThroughWrapping(t *testing.T) {
	base := IO("reading blob", fmt.Errorf("disk full"))
	assert.True(t, IsIOError(base))

	wrapped := fmt.Errorf("add failed: %w", base)
	assert.True(t, IsIOError(wrapped))
	assert.False(t, IsCorruptedStoreError(wrapped))
}

func TestIsCorruptedStoreErrorSeesThroughWrapping(t *testing.T) {
	base := Corrupt("bad magic", nil)
	assert.True(t, IsCorruptedStoreError(base))

	wrapped := fmt.Errorf("index bootstrap: %w", base)
	assert.True(t, IsCorruptedStoreError(wrapped))
	assert.False(t, IsIOError(wrapped))
}

func TestIOReturnsNilForNilCause(t *testing.T) {
	assert.NoError(t, IO("context", nil))
}
