package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatwire/channel"
	"chatwire/domain"
	"chatwire/errors"
	"chatwire/mocks"
)

func newChatService(t *testing.T) (*ChatService, *mocks.MockIMessageRepository, *mocks.MockIRelationshipRepository, *mocks.MockIGroupRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	resolver, err := channel.NewResolver(8)
	require.NoError(t, err)

	messages := mocks.NewMockIMessageRepository(ctrl)
	relationships := mocks.NewMockIRelationshipRepository(ctrl)
	groups := mocks.NewMockIGroupRepository(ctrl)
	return NewChatService(resolver, messages, relationships, groups), messages, relationships, groups
}

func Test_Send_Resolves_The_Channel_Before_Storing(t *testing.T) {
	req := require.New(t)
	service, messages, relationships, _ := newChatService(t)

	relationships.EXPECT().IsBlocked(domain.ParticipantID("bob"), domain.ParticipantID("alice")).Return(false, nil)
	messages.EXPECT().
		Append(gomock.Any()).
		DoAndReturn(func(m domain.Message) (domain.Message, error) {
			req.Equal(domain.KindDirect, m.Kind)
			req.Equal(domain.ChannelID("alice-bob"), m.Channel)
			m.ID = uuid.New()
			return m, nil
		})

	stored, err := service.Send(domain.SendMessageCommand{Sender: "alice", Receiver: "bob", Body: "hello"})
	req.NoError(err)
	req.Equal("hello", stored.Body)
}

func Test_Send_To_A_Blocking_Receiver_Never_Touches_The_Store(t *testing.T) {
	req := require.New(t)
	service, _, relationships, _ := newChatService(t)

	relationships.EXPECT().IsBlocked(domain.ParticipantID("bob"), domain.ParticipantID("alice")).Return(true, nil)
	// No Append expectation: storing anything here fails the test

	_, err := service.Send(domain.SendMessageCommand{Sender: "alice", Receiver: "bob", Body: "hello?"})
	req.ErrorIs(err, errors.ErrBlocked)
}

func Test_SendToGroup_Requires_Membership(t *testing.T) {
	req := require.New(t)
	service, _, _, groups := newChatService(t)

	groupID := uuid.New()
	groups.EXPECT().Get(groupID).Return(domain.Group{
		ID:      groupID,
		Members: []domain.ParticipantID{"alice", "bob"},
	}, nil)

	_, err := service.SendToGroup(domain.GroupMessageCommand{Sender: "mallory", GroupID: groupID, Body: "hi"})
	req.ErrorIs(err, errors.ErrUnauthorized)
}

func Test_SendToGroup_Stores_On_The_Group_Channel(t *testing.T) {
	req := require.New(t)
	service, messages, _, groups := newChatService(t)

	groupID := uuid.New()
	groups.EXPECT().Get(groupID).Return(domain.Group{
		ID:      groupID,
		Members: []domain.ParticipantID{"alice", "bob"},
	}, nil)
	messages.EXPECT().
		Append(gomock.Any()).
		DoAndReturn(func(m domain.Message) (domain.Message, error) {
			req.Equal(domain.KindGroup, m.Kind)
			req.Equal(domain.ChannelID(groupID.String()), m.Channel)
			req.Equal(groupID, m.GroupID)
			return m, nil
		})

	_, err := service.SendToGroup(domain.GroupMessageCommand{Sender: "alice", GroupID: groupID, Body: "hi"})
	req.NoError(err)
}

func Test_MarkSeen_Reports_The_Resolved_Channel(t *testing.T) {
	req := require.New(t)
	service, messages, _, _ := newChatService(t)

	messages.EXPECT().MarkSeen(domain.ChannelID("alice-bob"), domain.ParticipantID("bob")).Return(3, nil)

	resolved, flipped, err := service.MarkSeen("bob", "alice")
	req.NoError(err)
	req.Equal(domain.ChannelID("alice-bob"), resolved)
	req.Equal(3, flipped)
}
