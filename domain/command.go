package domain

import "github.com/google/uuid"

// SendMessageCommand is the dispatcher's intent to persist and fan out a
// direct message. ReplyTo is set on the reply path only.
type SendMessageCommand struct {
	Sender     ParticipantID
	Receiver   ParticipantID
	Body       string
	Attachment string
	ReplyTo    *uuid.UUID
}

// GroupMessageCommand addresses a message to a group channel.
type GroupMessageCommand struct {
	Sender  ParticipantID
	GroupID uuid.UUID
	Body    string
}
