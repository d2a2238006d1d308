package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind discriminates direct from group messages. The addressing
// fields are otherwise ambiguous: a direct message carries ReceiverID,
// a group message carries GroupID.
type MessageKind string

const (
	KindDirect MessageKind = "direct"
	KindGroup  MessageKind = "group"
)

// Message is immutable once created except for the seen flag and, on the
// edit path, its body.
type Message struct {
	ID         uuid.UUID
	Kind       MessageKind
	Channel    ChannelID
	SenderID   ParticipantID
	ReceiverID ParticipantID // set when Kind == KindDirect
	GroupID    uuid.UUID     // set when Kind == KindGroup
	Body       string
	Attachment string     // opaque URL resolved by the upload collaborator
	ReplyTo    *uuid.UUID // weak reference, may dangle if the target is deleted
	Seen       bool
	CreatedAt  time.Time
}
