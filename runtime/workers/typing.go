package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chatwire/contract"
	"chatwire/domain"
	"chatwire/domain/event"
)

type typingKey struct {
	Channel     domain.ChannelID
	Participant domain.ParticipantID
}

// TypingWorker expires typing indicators. Typing is ephemeral: nothing
// is persisted, and a "stopped typing" signal must follow a "started
// typing" one after a bounded delay if no further activity arrives.
// The dispatcher calls Touch on every typing event; the sweep loop emits
// the expiry to the channel's current subscriber set.
type TypingWorker struct {
	log           *slog.Logger
	registry      contract.IRegistry
	ttl           time.Duration
	sweepInterval time.Duration

	mu     sync.Mutex
	active map[typingKey]time.Time
}

func NewTypingWorker(log *slog.Logger, registry contract.IRegistry, ttl, sweepInterval time.Duration) *TypingWorker {
	return &TypingWorker{
		log:           log,
		registry:      registry,
		ttl:           ttl,
		sweepInterval: sweepInterval,
		active:        make(map[typingKey]time.Time),
	}
}

// Touch records typing activity, restarting the expiry clock for the
// (channel, participant) pair.
func (w *TypingWorker) Touch(channel domain.ChannelID, participant domain.ParticipantID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active[typingKey{Channel: channel, Participant: participant}] = time.Now()
}

// Clear drops the pair without emitting anything, for when the
// participant sends a message or disconnects.
func (w *TypingWorker) Clear(channel domain.ChannelID, participant domain.ParticipantID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.active, typingKey{Channel: channel, Participant: participant})
}

func (w *TypingWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping typing sweeps")
			return ctx.Err()
		case <-ticker.C:
			for _, key := range w.sweep() {
				w.emit(ctx, key)
			}
		}
	}
}

// sweep collects and removes every pair whose clock ran out.
func (w *TypingWorker) sweep() []typingKey {
	w.mu.Lock()
	defer w.mu.Unlock()

	deadline := time.Now().Add(-w.ttl)
	var expired []typingKey
	for key, touched := range w.active {
		if touched.Before(deadline) {
			expired = append(expired, key)
			delete(w.active, key)
		}
	}
	return expired
}

// emit is best-effort like any other broadcast: a full or dead sink
// drops the signal without affecting the others.
func (w *TypingWorker) emit(ctx context.Context, key typingKey) {
	stopped := event.TypingStopped(key.Channel, key.Participant)
	for _, sink := range w.registry.SinksForChannel(key.Channel) {
		if err := sink.Consume(ctx, stopped); err != nil {
			w.log.Debug("Typing expiry dropped", "channel", key.Channel, "error", err)
		}
	}
}
