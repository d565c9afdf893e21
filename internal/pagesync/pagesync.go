// internal/pagesync/pagesync.go

// Package pagesync keeps the three players of a room on the same survey
// page. Each player marks the page they are ready to advance to; once the
// whole room agrees the page flips for everyone at once.
package pagesync

import (
	"sync"

	"github.com/triadlab/triad/internal/models"
)

// Tracker is the per-room page agreement state. Memory is bounded: a
// room's state is dropped as soon as a page advances or the room resets.
type Tracker struct {
	mu     sync.Mutex
	rooms  map[string]map[int]map[string]struct{}
	quorum int
}

func NewTracker() *Tracker {
	return &Tracker{
		rooms:  make(map[string]map[int]map[string]struct{}),
		quorum: models.RoomCapacity,
	}
}

// MarkReady records that a participant is ready to move to page. Marking
// the same page twice is idempotent. Returns true when the whole room is
// now ready, in which case all state for the room up to and including
// that page is discarded.
func (t *Tracker) MarkReady(roomCode, participantID string, page int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pages, ok := t.rooms[roomCode]
	if !ok {
		pages = make(map[int]map[string]struct{})
		t.rooms[roomCode] = pages
	}
	ready, ok := pages[page]
	if !ok {
		ready = make(map[string]struct{})
		pages[page] = ready
	}
	ready[participantID] = struct{}{}
	if len(ready) < t.quorum {
		return false
	}

	for p := range pages {
		if p <= page {
			delete(pages, p)
		}
	}
	if len(pages) == 0 {
		delete(t.rooms, roomCode)
	}
	return true
}

// Ready returns how many participants have marked a page.
func (t *Tracker) Ready(roomCode string, page int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms[roomCode][page])
}

// Reset drops all page state for a room. Called when the room's status is
// reset or the room is torn down.
func (t *Tracker) Reset(roomCode string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rooms, roomCode)
}
