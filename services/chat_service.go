package services

import (
	"fmt"

	"github.com/google/uuid"

	"chatwire/channel"
	"chatwire/domain"
	"chatwire/errors"
	"chatwire/repositories"
)

type IChatService interface {
	Send(cmd domain.SendMessageCommand) (domain.Message, error)
	SendToGroup(cmd domain.GroupMessageCommand) (domain.Message, error)
	Edit(id uuid.UUID, newBody string, requester domain.ParticipantID) (domain.Message, error)
	Delete(ids []uuid.UUID, requester domain.ParticipantID) ([]domain.Message, error)
	History(participant, peer domain.ParticipantID) (domain.ChannelID, []domain.Message, error)
	MarkSeen(reader, peer domain.ParticipantID) (domain.ChannelID, int, error)
}

// ChatService owns the message lifecycle: it resolves the channel,
// enforces the block guard, and drives the store adapter. Broadcasting
// is the dispatcher's job; the service only reports what was stored.
type ChatService struct {
	resolver      *channel.Resolver
	messages      repositories.IMessageRepository
	relationships repositories.IRelationshipRepository
	groups        repositories.IGroupRepository
}

func NewChatService(resolver *channel.Resolver,
	messages repositories.IMessageRepository,
	relationships repositories.IRelationshipRepository,
	groups repositories.IGroupRepository) *ChatService {
	return &ChatService{
		resolver:      resolver,
		messages:      messages,
		relationships: relationships,
		groups:        groups,
	}
}

// Send persists a direct message. A block in the receiving direction
// suppresses the send before anything touches the store.
func (s *ChatService) Send(cmd domain.SendMessageCommand) (domain.Message, error) {
	blocked, err := s.relationships.IsBlocked(cmd.Receiver, cmd.Sender)
	if err != nil {
		return domain.Message{}, err
	}
	if blocked {
		return domain.Message{}, fmt.Errorf("%w: %s blocked %s", errors.ErrBlocked, cmd.Receiver, cmd.Sender)
	}

	return s.messages.Append(domain.Message{
		Kind:       domain.KindDirect,
		Channel:    s.resolver.Resolve(cmd.Sender, cmd.Receiver),
		SenderID:   cmd.Sender,
		ReceiverID: cmd.Receiver,
		Body:       cmd.Body,
		Attachment: cmd.Attachment,
		ReplyTo:    cmd.ReplyTo,
	})
}

// SendToGroup persists a message on a group channel. Only members may
// post.
func (s *ChatService) SendToGroup(cmd domain.GroupMessageCommand) (domain.Message, error) {
	group, err := s.groups.Get(cmd.GroupID)
	if err != nil {
		return domain.Message{}, err
	}
	if !group.IsMember(cmd.Sender) {
		return domain.Message{}, fmt.Errorf("%w: %s is not a member of %s", errors.ErrUnauthorized, cmd.Sender, group.ID)
	}

	return s.messages.Append(domain.Message{
		Kind:     domain.KindGroup,
		Channel:  group.Channel(),
		SenderID: cmd.Sender,
		GroupID:  group.ID,
		Body:     cmd.Body,
	})
}

func (s *ChatService) Edit(id uuid.UUID, newBody string, requester domain.ParticipantID) (domain.Message, error) {
	return s.messages.UpdateBody(id, newBody, requester)
}

// Delete removes a batch of messages and reports what was removed, so
// the dispatcher can tell each conversation's audience about its own
// losses only.
func (s *ChatService) Delete(ids []uuid.UUID, requester domain.ParticipantID) ([]domain.Message, error) {
	return s.messages.DeleteMany(ids, requester)
}

// History returns the conversation in durable append order, along with
// the resolved channel so the caller can subscribe to it.
func (s *ChatService) History(participant, peer domain.ParticipantID) (domain.ChannelID, []domain.Message, error) {
	resolved := s.resolver.Resolve(participant, peer)
	messages, err := s.messages.History(resolved)
	return resolved, messages, err
}

// MarkSeen flips the seen flag on everything the peer wrote in the
// shared channel. It returns how many messages actually flipped.
func (s *ChatService) MarkSeen(reader, peer domain.ParticipantID) (domain.ChannelID, int, error) {
	resolved := s.resolver.Resolve(reader, peer)
	flipped, err := s.messages.MarkSeen(resolved, reader)
	return resolved, flipped, err
}
