package presence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chatwire/domain"
)

func TestTracker_FirstConnectionFlipsOnline(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker()
	alice := domain.ParticipantID("alice")

	online, changed := tracker.MarkOnline(alice)

	req.True(changed)
	req.Equal([]domain.ParticipantID{alice}, online)
	req.True(tracker.IsOnline(alice))
}

func TestTracker_SecondDeviceDoesNotChangeState(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker()
	alice := domain.ParticipantID("alice")

	tracker.MarkOnline(alice)
	online, changed := tracker.MarkOnline(alice)

	req.False(changed)
	req.Equal([]domain.ParticipantID{alice}, online)
}

func TestTracker_OfflineOnlyAtLastConnection(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker()
	alice := domain.ParticipantID("alice")

	// Given two devices connected
	tracker.MarkOnline(alice)
	tracker.MarkOnline(alice)

	// When one device disconnects
	online, changed := tracker.MarkOffline(alice)

	// Then the participant is still online
	req.False(changed)
	req.Contains(online, alice)
	req.True(tracker.IsOnline(alice))

	// When the last device disconnects
	online, changed = tracker.MarkOffline(alice)

	// Then the participant goes offline with lastSeen stamped
	req.True(changed)
	req.Empty(online)
	req.False(tracker.IsOnline(alice))

	lastSeen, ok := tracker.LastSeen(alice)
	req.True(ok)
	req.False(lastSeen.IsZero())
}

func TestTracker_OfflineWithoutOnlineIsNoop(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker()

	online, changed := tracker.MarkOffline(domain.ParticipantID("ghost"))

	req.False(changed)
	req.Empty(online)
}

func TestTracker_OnlineSetIsSorted(t *testing.T) {
	req := require.New(t)
	tracker := NewTracker()

	tracker.MarkOnline(domain.ParticipantID("clara"))
	tracker.MarkOnline(domain.ParticipantID("alice"))
	tracker.MarkOnline(domain.ParticipantID("bob"))

	req.Equal([]domain.ParticipantID{"alice", "bob", "clara"}, tracker.Online())
}
