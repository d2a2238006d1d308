// Package presence tracks which participants currently hold at least one
// active connection.
package presence

import (
	"sort"
	"sync"
	"time"

	"chatwire/domain"
)

type entry struct {
	connections int
	lastSeen    time.Time
}

// Tracker is an injected, lifecycle-scoped service owned by the
// dispatcher wiring, not a process global. It counts connections per
// participant so that a user with several devices only goes offline once
// the last connection closes.
type Tracker struct {
	mu      sync.Mutex
	entries map[domain.ParticipantID]*entry
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[domain.ParticipantID]*entry),
		now:     time.Now,
	}
}

// MarkOnline records one more connection for the participant. It returns
// the online set after the transition and whether the participant's
// visible state changed (only the first connection flips it).
func (t *Tracker) MarkOnline(p domain.ParticipantID) ([]domain.ParticipantID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[p]
	if !ok {
		e = &entry{}
		t.entries[p] = e
	}
	e.connections++
	return t.onlineLocked(), e.connections == 1
}

// MarkOffline records one connection closing. The participant only goes
// offline, with lastSeen stamped, when the last connection is gone.
func (t *Tracker) MarkOffline(p domain.ParticipantID) ([]domain.ParticipantID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[p]
	if !ok || e.connections == 0 {
		return t.onlineLocked(), false
	}
	e.connections--
	if e.connections > 0 {
		return t.onlineLocked(), false
	}
	e.lastSeen = t.now().UTC()
	return t.onlineLocked(), true
}

// Online returns the current online set, sorted for determinism.
func (t *Tracker) Online() []domain.ParticipantID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onlineLocked()
}

// LastSeen reports when the participant last went fully offline.
func (t *Tracker) LastSeen(p domain.ParticipantID) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[p]
	if !ok || e.lastSeen.IsZero() {
		return time.Time{}, false
	}
	return e.lastSeen, true
}

// IsOnline reports whether the participant holds at least one connection.
func (t *Tracker) IsOnline(p domain.ParticipantID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[p]
	return ok && e.connections > 0
}

func (t *Tracker) onlineLocked() []domain.ParticipantID {
	var online []domain.ParticipantID
	for p, e := range t.entries {
		if e.connections > 0 {
			online = append(online, p)
		}
	}
	sort.Slice(online, func(i, j int) bool { return online[i] < online[j] })
	return online
}
