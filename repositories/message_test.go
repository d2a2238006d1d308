package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chatwire/domain"
	"chatwire/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func directMessage(channel domain.ChannelID, sender, receiver domain.ParticipantID, body string, at time.Time) domain.Message {
	return domain.Message{
		Kind:       domain.KindDirect,
		Channel:    channel,
		SenderID:   sender,
		ReceiverID: receiver,
		Body:       body,
		CreatedAt:  at,
	}
}

func Test_Append_Then_History_Is_Chronological(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	channel := domain.ChannelID("alice-bob")
	at := time.Now().UTC()
	bodies := []string{"first", "second", "third"}
	for i, body := range bodies {
		_, err := repository.Append(directMessage(channel, "alice", "bob", body, at.Add(time.Duration(i)*time.Minute)))
		req.NoError(err)
	}

	messages, err := repository.History(channel)
	req.NoError(err)
	req.Len(messages, len(bodies))
	for i, message := range messages {
		req.Equal(bodies[i], message.Body)
		req.Equal(domain.ParticipantID("alice"), message.SenderID)
		req.False(message.Seen)
	}
}

func Test_History_Respects_Limit(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)

	channel := domain.ChannelID("alice-bob")
	at := time.Now().UTC()
	for i := 0; i < 3; i++ {
		_, err := repository.Append(directMessage(channel, "alice", "bob", "hello", at.Add(time.Duration(i)*time.Second)))
		req.NoError(err)
	}

	messages, err := repository.History(channel)
	req.NoError(err)
	req.Len(messages, limit)
}

func Test_History_Keeps_Channels_Isolated(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	at := time.Now().UTC()
	_, err := repository.Append(directMessage("alice-bob", "alice", "bob", "for bob", at))
	req.NoError(err)
	_, err = repository.Append(directMessage("clara-dave", "clara", "dave", "for dave", at))
	req.NoError(err)

	messages, err := repository.History("alice-bob")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("for bob", messages[0].Body)
}

func Test_UpdateBody_Requires_Original_Sender(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	stored, err := repository.Append(directMessage("alice-bob", "alice", "bob", "tpyo", time.Now().UTC()))
	req.NoError(err)

	// The receiver cannot edit someone else's message
	_, err = repository.UpdateBody(stored.ID, "nope", "bob")
	req.ErrorIs(err, errors.ErrUnauthorized)

	// The sender can
	updated, err := repository.UpdateBody(stored.ID, "typo", "alice")
	req.NoError(err)
	req.Equal("typo", updated.Body)

	messages, err := repository.History("alice-bob")
	req.NoError(err)
	req.Equal("typo", messages[0].Body)
}

func Test_UpdateBody_Unknown_Message(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	_, err := repository.UpdateBody(uuid.New(), "anything", "alice")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_MarkSeen_Flips_Only_Peer_Messages_And_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	channel := domain.ChannelID("alice-bob")
	at := time.Now().UTC()
	_, err := repository.Append(directMessage(channel, "alice", "bob", "from alice", at))
	req.NoError(err)
	_, err = repository.Append(directMessage(channel, "bob", "alice", "from bob", at.Add(time.Second)))
	req.NoError(err)

	// Bob reads the conversation: only Alice's message flips
	flipped, err := repository.MarkSeen(channel, "bob")
	req.NoError(err)
	req.Equal(1, flipped)

	messages, err := repository.History(channel)
	req.NoError(err)
	req.True(messages[0].Seen)
	req.False(messages[1].Seen)

	// A second read changes nothing and raises no error
	flipped, err = repository.MarkSeen(channel, "bob")
	req.NoError(err)
	req.Zero(flipped)
}

func Test_DeleteMany_Rejects_Whole_Batch_On_Partial_Ownership(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	channel := domain.ChannelID("alice-bob")
	at := time.Now().UTC()
	mine, err := repository.Append(directMessage(channel, "alice", "bob", "mine", at))
	req.NoError(err)
	theirs, err := repository.Append(directMessage(channel, "bob", "alice", "theirs", at.Add(time.Second)))
	req.NoError(err)

	_, err = repository.DeleteMany([]uuid.UUID{mine.ID, theirs.ID}, "alice")
	req.ErrorIs(err, errors.ErrUnauthorized)

	// Nothing was removed
	messages, err := repository.History(channel)
	req.NoError(err)
	req.Len(messages, 2)
}

func Test_DeleteMany_Removes_Owned_Batch(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	channel := domain.ChannelID("alice-bob")
	at := time.Now().UTC()
	first, err := repository.Append(directMessage(channel, "alice", "bob", "one", at))
	req.NoError(err)
	second, err := repository.Append(directMessage(channel, "alice", "bob", "two", at.Add(time.Second)))
	req.NoError(err)

	removed, err := repository.DeleteMany([]uuid.UUID{first.ID, second.ID}, "alice")
	req.NoError(err)
	req.Len(removed, 2)
	req.Equal(first.ID, removed[0].ID)
	req.Equal(channel, removed[0].Channel)
	req.Equal(channel, removed[1].Channel)

	messages, err := repository.History(channel)
	req.NoError(err)
	req.Empty(messages)

	// The id index is gone too
	_, err = repository.DeleteMany([]uuid.UUID{first.ID}, "alice")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Append_Preserves_Reply_Reference(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	channel := domain.ChannelID("alice-bob")
	original, err := repository.Append(directMessage(channel, "alice", "bob", "original", time.Now().UTC()))
	req.NoError(err)

	reply := directMessage(channel, "bob", "alice", "reply", time.Now().UTC().Add(time.Second))
	reply.ReplyTo = &original.ID
	stored, err := repository.Append(reply)
	req.NoError(err)

	messages, err := repository.History(channel)
	req.NoError(err)
	req.Len(messages, 2)
	req.NotNil(messages[1].ReplyTo)
	req.Equal(original.ID, *messages[1].ReplyTo)

	// The reference is weak: deleting the original leaves the reply dangling
	_, err = repository.DeleteMany([]uuid.UUID{original.ID}, "alice")
	req.NoError(err)
	messages, err = repository.History(channel)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(stored.ID, messages[0].ID)
	req.NotNil(messages[0].ReplyTo)
}
