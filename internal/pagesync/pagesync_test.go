// internal/pagesync/pagesync_test.go
package pagesync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkReadyAdvancesAtQuorum(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.MarkReady("123456", "p1", 2))
	assert.False(t, tr.MarkReady("123456", "p2", 2))
	assert.True(t, tr.MarkReady("123456", "p3", 2))

	// Advancing discards the page's state.
	assert.Equal(t, 0, tr.Ready("123456", 2))
}

func TestMarkReadyIsIdempotent(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.MarkReady("123456", "p1", 2))
	assert.False(t, tr.MarkReady("123456", "p1", 2))
	assert.Equal(t, 1, tr.Ready("123456", 2))
}

func TestAdvanceClearsEarlierPages(t *testing.T) {
	tr := NewTracker()

	tr.MarkReady("123456", "p1", 1)
	tr.MarkReady("123456", "p1", 2)
	tr.MarkReady("123456", "p2", 2)
	assert.True(t, tr.MarkReady("123456", "p3", 2))

	// The stale page-1 mark is gone too.
	assert.Equal(t, 0, tr.Ready("123456", 1))
}

func TestRoomsAreIndependent(t *testing.T) {
	tr := NewTracker()

	tr.MarkReady("111111", "p1", 1)
	tr.MarkReady("111111", "p2", 1)
	assert.False(t, tr.MarkReady("222222", "p3", 1))
	assert.True(t, tr.MarkReady("111111", "p3", 1))
	assert.Equal(t, 1, tr.Ready("222222", 1))
}

func TestReset(t *testing.T) {
	tr := NewTracker()

	tr.MarkReady("123456", "p1", 4)
	tr.Reset("123456")
	assert.Equal(t, 0, tr.Ready("123456", 4))
}
