package runtime

import (
	"sync"

	"chatwire/contract"
	"chatwire/domain"
)

type Set map[domain.ConnID]struct{}

// Registry tracks live connections and their subscriptions.
// A connection is registered anonymously at upgrade time and becomes
// addressable by participant once it announces its identity; it is
// subscribed to every channel it references afterwards.
type Registry struct {
	mu             sync.RWMutex
	Sessions       map[domain.ConnID]contract.EventSink // conn -> outbox
	ChannelMembers map[domain.ChannelID]Set             // channel -> subscribed conns
	participants   map[domain.ParticipantID]Set         // participant -> their conns
	identities     map[domain.ConnID]domain.ParticipantID
}

func NewRegistry() *Registry {
	return &Registry{
		Sessions:       make(map[domain.ConnID]contract.EventSink),
		ChannelMembers: make(map[domain.ChannelID]Set),
		participants:   make(map[domain.ParticipantID]Set),
		identities:     make(map[domain.ConnID]domain.ParticipantID),
	}
}

// Register adds a freshly upgraded, still anonymous connection.
func (r *Registry) Register(conn domain.ConnID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sessions[conn] = sink
}

// Identify binds a connection to the participant it announced. It
// reports whether the connection was identified just now: a connection
// identifies once, repeated announcements are no-ops so callers can key
// presence counting off the first one.
func (r *Registry) Identify(conn domain.ConnID, participant domain.ParticipantID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Sessions[conn]; !ok {
		return false
	}
	if _, ok := r.identities[conn]; ok {
		return false
	}
	r.identities[conn] = participant
	if _, ok := r.participants[participant]; !ok {
		r.participants[participant] = make(Set)
	}
	r.participants[participant][conn] = struct{}{}
	return true
}

// Identity returns the participant a connection announced, if any.
func (r *Registry) Identity(conn domain.ConnID) (domain.ParticipantID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	participant, ok := r.identities[conn]
	return participant, ok
}

// SubscribeChannel adds the connection to a channel's fan-out set.
func (r *Registry) SubscribeChannel(conn domain.ConnID, channel domain.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Sessions[conn]; !ok {
		return
	}
	if _, ok := r.ChannelMembers[channel]; !ok {
		r.ChannelMembers[channel] = make(Set)
	}
	r.ChannelMembers[channel][conn] = struct{}{}
}

// Drop removes a connection everywhere. It returns the identity the
// connection had announced, if any, so the caller can update presence.
// Empty sets are cleaned up to avoid leaking entries over time.
func (r *Registry) Drop(conn domain.ConnID) (domain.ParticipantID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.Sessions, conn)
	for channel, members := range r.ChannelMembers {
		delete(members, conn)
		if len(members) == 0 {
			delete(r.ChannelMembers, channel)
		}
	}

	participant, identified := r.identities[conn]
	if !identified {
		return "", false
	}
	delete(r.identities, conn)
	if conns, ok := r.participants[participant]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.participants, participant)
		}
	}
	return participant, true
}

// SinksForChannel retrieves all active outboxes subscribed to a channel.
// Returns nil when the channel has no live subscribers.
func (r *Registry) SinksForChannel(channel domain.ChannelID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.ChannelMembers[channel]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for conn := range members {
		if sink, exists := r.Sessions[conn]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// SinksForParticipant retrieves the outboxes of every connection the
// participant currently holds, for targeted notifications.
func (r *Registry) SinksForParticipant(p domain.ParticipantID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.participants[p]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for conn := range conns {
		if sink, exists := r.Sessions[conn]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// Sink returns one connection's outbox.
func (r *Registry) Sink(conn domain.ConnID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.Sessions[conn]
	return sink, ok
}

// AllSinks returns every live outbox; presence changes go to everyone.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.Sessions))
	for _, sink := range r.Sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}
