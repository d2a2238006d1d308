//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chatwire/domain"
	"chatwire/domain/event"
)

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// EventSink is one delivery target for fan-out, usually a live
// connection's buffered outbox. Consume must never block the caller
// indefinitely; a full or dead sink drops the event.
type EventSink interface {
	Consume(ctx context.Context, e event.Outbound) error
}

// IRegistry tracks live connections, the identity they announced, and
// the channels they subscribed to.
type IRegistry interface {
	Register(conn domain.ConnID, sink EventSink)
	Identify(conn domain.ConnID, participant domain.ParticipantID) bool
	Identity(conn domain.ConnID) (domain.ParticipantID, bool)
	SubscribeChannel(conn domain.ConnID, channel domain.ChannelID)
	Drop(conn domain.ConnID) (domain.ParticipantID, bool)
	SinksForChannel(channel domain.ChannelID) []EventSink
	SinksForParticipant(p domain.ParticipantID) []EventSink
	Sink(conn domain.ConnID) (EventSink, bool)
	AllSinks() []EventSink
}
