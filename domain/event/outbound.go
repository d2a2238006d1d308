package event

import (
	"time"

	"github.com/google/uuid"

	"chatwire/domain"
	"chatwire/errors"
)

// Outbound is a server-originated event ready for fan-out. Data is
// marshaled as-is into the wire envelope.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// MessagePayload is the wire form of a stored message.
type MessagePayload struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Channel    string    `json:"channel"`
	Sender     string    `json:"sender"`
	Receiver   string    `json:"receiver,omitempty"`
	GroupID    string    `json:"groupId,omitempty"`
	Body       string    `json:"body"`
	Attachment string    `json:"attachment,omitempty"`
	ReplyTo    string    `json:"replyTo,omitempty"`
	Seen       bool      `json:"seen"`
	CreatedAt  time.Time `json:"createdAt"`
}

func ToMessagePayload(m domain.Message) MessagePayload {
	p := MessagePayload{
		ID:         m.ID.String(),
		Kind:       string(m.Kind),
		Channel:    string(m.Channel),
		Sender:     string(m.SenderID),
		Receiver:   string(m.ReceiverID),
		Body:       m.Body,
		Attachment: m.Attachment,
		Seen:       m.Seen,
		CreatedAt:  m.CreatedAt,
	}
	if m.GroupID != uuid.Nil {
		p.GroupID = m.GroupID.String()
	}
	if m.ReplyTo != nil {
		p.ReplyTo = m.ReplyTo.String()
	}
	return p
}

func Receive(m domain.Message) Outbound {
	return Outbound{Event: "receive", Data: ToMessagePayload(m)}
}

// Sent is the acknowledgment delivered to the originating connection only.
func Sent(m domain.Message) Outbound {
	return Outbound{Event: "sent", Data: ToMessagePayload(m)}
}

func Edited(id uuid.UUID, newBody string) Outbound {
	return Outbound{Event: "edited", Data: map[string]string{
		"messageId": id.String(),
		"newBody":   newBody,
	}}
}

func Deleted(ids []string) Outbound {
	return Outbound{Event: "deleted", Data: map[string][]string{"messageIds": ids}}
}

func HistoryResult(messages []MessagePayload) Outbound {
	return Outbound{Event: "history", Data: messages}
}

func TypingStarted(channel domain.ChannelID, participant domain.ParticipantID) Outbound {
	return Outbound{Event: "typing", Data: map[string]string{
		"channel":     string(channel),
		"participant": string(participant),
	}}
}

func TypingStopped(channel domain.ChannelID, participant domain.ParticipantID) Outbound {
	return Outbound{Event: "stoppedTyping", Data: map[string]string{
		"channel":     string(channel),
		"participant": string(participant),
	}}
}

// PresenceUpdate carries the full online set; a missed broadcast
// self-heals on the next transition.
func PresenceUpdate(online []domain.ParticipantID) Outbound {
	ids := make([]string, len(online))
	for i, p := range online {
		ids[i] = string(p)
	}
	return Outbound{Event: "onlineStatus", Data: ids}
}

func SeenUpdate(channel domain.ChannelID, reader domain.ParticipantID) Outbound {
	return Outbound{Event: "seen", Data: map[string]string{
		"channel": string(channel),
		"reader":  string(reader),
	}}
}

// RelationsResult answers a relations query on the origin connection.
func RelationsResult(friends, pending, blocked []string) Outbound {
	return Outbound{Event: "relations", Data: map[string][]string{
		"friends": friends,
		"pending": pending,
		"blocked": blocked,
	}}
}

func FriendRequestReceived(from domain.ParticipantID) Outbound {
	return Outbound{Event: "friendRequestReceived", Data: map[string]string{"from": string(from)}}
}

func FriendRequestAccepted(by domain.ParticipantID) Outbound {
	return Outbound{Event: "friendRequestAccepted", Data: map[string]string{"by": string(by)}}
}

func FriendRequestRejected(by domain.ParticipantID) Outbound {
	return Outbound{Event: "friendRequestRejected", Data: map[string]string{"by": string(by)}}
}

func FriendRequestWithdrawn(by domain.ParticipantID) Outbound {
	return Outbound{Event: "friendRequestWithdrawn", Data: map[string]string{"by": string(by)}}
}

func FriendRemoved(by domain.ParticipantID) Outbound {
	return Outbound{Event: "friendRemoved", Data: map[string]string{"by": string(by)}}
}

func UserBlocked(by domain.ParticipantID) Outbound {
	return Outbound{Event: "userBlocked", Data: map[string]string{"by": string(by)}}
}

func UserUnblocked(by domain.ParticipantID) Outbound {
	return Outbound{Event: "userUnblocked", Data: map[string]string{"by": string(by)}}
}

// GroupPayload is the wire form of a group.
type GroupPayload struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Owner   string   `json:"owner"`
	Members []string `json:"members"`
	Admins  []string `json:"admins"`
}

func ToGroupPayload(g domain.Group) GroupPayload {
	members := make([]string, len(g.Members))
	for i, m := range g.Members {
		members[i] = string(m)
	}
	admins := make([]string, len(g.Admins))
	for i, a := range g.Admins {
		admins[i] = string(a)
	}
	return GroupPayload{
		ID:      g.ID.String(),
		Name:    g.Name,
		Owner:   string(g.OwnerID),
		Members: members,
		Admins:  admins,
	}
}

func GroupCreated(g domain.Group) Outbound {
	return Outbound{Event: "groupCreated", Data: ToGroupPayload(g)}
}

func GroupUpdated(g domain.Group) Outbound {
	return Outbound{Event: "groupUpdated", Data: ToGroupPayload(g)}
}

func GroupDeleted(id uuid.UUID) Outbound {
	return Outbound{Event: "groupDeleted", Data: map[string]string{"groupId": id.String()}}
}

// ScopedError is sent only to the originating connection, never broadcast.
func ScopedError(code errors.Code, message string) Outbound {
	return Outbound{Event: "error", Data: map[string]string{
		"code":    string(code),
		"message": message,
	}}
}
