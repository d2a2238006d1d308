package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chatwire/channel"
	"chatwire/domain"
	"chatwire/domain/event"
	"chatwire/presence"
	"chatwire/repositories"
	"chatwire/runtime/workers"
	"chatwire/services"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Registry) {
	t.Helper()

	options := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	resolver, err := channel.NewResolver(16)
	require.NoError(t, err)

	messages := repositories.NewMessageRepository(db, log, nil)
	relationships := repositories.NewRelationshipRepository(db)
	groups := repositories.NewGroupRepository(db)

	registry := NewRegistry()
	typing := workers.NewTypingWorker(log, registry, time.Second, time.Second)

	return NewDispatcher(log,
		registry,
		presence.NewTracker(),
		resolver,
		services.NewChatService(resolver, messages, relationships, groups),
		services.NewRelationshipService(relationships),
		services.NewGroupService(groups),
		typing,
	), registry
}

func frame(t *testing.T, name string, data any) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	raw, err := json.Marshal(event.Envelope{Event: name, Data: payload})
	require.NoError(t, err)
	return raw
}

func join(t *testing.T, d *Dispatcher, conn, participant, peer string) *recordingSink {
	t.Helper()
	sink := &recordingSink{}
	d.Attach(domain.ConnID(conn), sink)
	d.Handle(context.Background(), domain.ConnID(conn), frame(t, "join", map[string]string{
		"participant": participant,
		"peer":        peer,
	}))
	return sink
}

func Test_Send_Reaches_Subscribers_And_Acks_The_Sender(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "send", map[string]string{
		"sender":   "alice",
		"receiver": "bob",
		"body":     "hello",
	}))

	// Both subscribers receive; only the origin gets the ack
	req.Equal([]string{"receive", "sent"}, alice.names())
	req.Equal([]string{"receive"}, bob.names())

	payload := bob.events[0].Data.(event.MessagePayload)
	req.Equal("hello", payload.Body)
	req.Equal("alice-bob", payload.Channel)
	req.Equal("alice", payload.Sender)
}

func Test_Send_To_Blocking_Receiver_Fails_Only_For_The_Origin(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")

	dispatcher.Handle(ctx, "conn-bob", frame(t, "block", map[string]string{
		"blocker": "bob",
		"target":  "alice",
	}))
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "send", map[string]string{
		"sender":   "alice",
		"receiver": "bob",
		"body":     "hello?",
	}))

	req.Equal([]string{"error"}, alice.names())
	data := alice.events[0].Data.(map[string]string)
	req.Equal("conflict", data["code"])
	req.Empty(bob.names())
}

func Test_Disjoint_Pairs_Never_Share_Traffic(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	carol := join(t, dispatcher, "conn-carol", "carol", "dave")
	alice.events, carol.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "send", map[string]string{
		"sender":   "alice",
		"receiver": "bob",
		"body":     "private",
	}))

	req.NotEmpty(alice.names())
	req.Empty(carol.names())
}

func Test_Join_Broadcasts_The_Online_Set_To_Everyone(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	req.Equal([]string{"onlineStatus"}, alice.names())
	req.Equal([]string{"alice"}, alice.events[0].Data.([]string))

	bob := join(t, dispatcher, "conn-bob", "bob", "alice")
	req.Equal([]string{"onlineStatus", "onlineStatus"}, alice.names())
	req.Equal([]string{"alice", "bob"}, alice.events[1].Data.([]string))
	req.Equal([]string{"alice", "bob"}, bob.events[0].Data.([]string))
}

func Test_Detach_Of_Last_Connection_Flips_Offline(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-laptop", "alice", "bob")
	join(t, dispatcher, "conn-phone", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")
	alice.events, bob.events = nil, nil

	// One of two connections closing changes nothing visible
	dispatcher.Detach(ctx, "conn-phone")
	req.Empty(bob.names())

	dispatcher.Detach(ctx, "conn-laptop")
	req.Equal([]string{"onlineStatus"}, bob.names())
	req.Equal([]string{"bob"}, bob.events[0].Data.([]string))
}

func Test_Joining_Several_Conversations_Counts_Presence_Once(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")

	// A second conversation on the same connection
	dispatcher.Handle(ctx, "conn-alice", frame(t, "join", map[string]string{
		"participant": "alice",
		"peer":        "carol",
	}))
	bob.events = nil

	// The single connection closing must take alice fully offline
	dispatcher.Detach(ctx, "conn-alice")
	req.Equal([]string{"onlineStatus"}, bob.names())
	req.Equal([]string{"bob"}, bob.events[0].Data.([]string))
}

func Test_Offline_For_Someone_Else_Is_Refused(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "offline", map[string]string{
		"participant": "bob",
	}))

	req.Equal([]string{"error"}, alice.names())
	req.Equal("unauthorized", alice.events[0].Data.(map[string]string)["code"])
	req.Empty(bob.names())
}

func Test_History_Replays_The_Conversation_To_The_Origin_Only(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")

	dispatcher.Handle(ctx, "conn-alice", frame(t, "send", map[string]string{
		"sender": "alice", "receiver": "bob", "body": "one",
	}))
	dispatcher.Handle(ctx, "conn-bob", frame(t, "send", map[string]string{
		"sender": "bob", "receiver": "alice", "body": "two",
	}))
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "history", map[string]string{
		"participant": "alice",
		"peer":        "bob",
	}))

	req.Equal([]string{"history"}, alice.names())
	messages := alice.events[0].Data.([]event.MessagePayload)
	req.Len(messages, 2)
	req.Equal("one", messages[0].Body)
	req.Equal("two", messages[1].Body)
	req.Empty(bob.names())
}

func Test_Friend_Request_Notifies_The_Target_Connections(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "sendFriendRequest", map[string]string{
		"from": "alice",
		"to":   "bob",
	}))
	req.Equal([]string{"friendRequestReceived"}, bob.names())
	req.Empty(alice.names())

	dispatcher.Handle(ctx, "conn-bob", frame(t, "acceptFriendRequest", map[string]string{
		"accepter":  "bob",
		"requester": "alice",
	}))
	req.Equal([]string{"friendRequestAccepted"}, alice.names())

	// The new friendship shows up in a relations query, origin only
	alice.events, bob.events = nil, nil
	dispatcher.Handle(ctx, "conn-alice", frame(t, "relations", map[string]string{"participant": "alice"}))
	req.Equal([]string{"relations"}, alice.names())
	req.Equal([]string{"bob"}, alice.events[0].Data.(map[string][]string)["friends"])
	req.Empty(bob.names())
}

func Test_Duplicate_Friend_Request_Is_A_Scoped_Conflict(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")

	request := frame(t, "sendFriendRequest", map[string]string{"from": "alice", "to": "bob"})
	dispatcher.Handle(ctx, "conn-alice", request)
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", request)
	req.Equal([]string{"error"}, alice.names())
	req.Equal("conflict", alice.events[0].Data.(map[string]string)["code"])
	req.Empty(bob.names())
}

func Test_Seen_Broadcasts_Once_Then_Stays_Quiet(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	join(t, dispatcher, "conn-bob", "bob", "alice")

	dispatcher.Handle(ctx, "conn-alice", frame(t, "send", map[string]string{
		"sender": "alice", "receiver": "bob", "body": "unread",
	}))
	alice.events = nil

	seen := frame(t, "seen", map[string]string{"reader": "bob", "peer": "alice"})
	dispatcher.Handle(ctx, "conn-bob", seen)
	req.Contains(alice.names(), "seen")

	alice.events = nil
	dispatcher.Handle(ctx, "conn-bob", seen)
	req.Empty(alice.names())
}

func Test_Group_Message_Reaches_Members_Without_Subscription(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")
	carol := join(t, dispatcher, "conn-carol", "carol", "dave")
	alice.events, bob.events, carol.events = nil, nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "createGroup", map[string]any{
		"name":    "plans",
		"creator": "alice",
		"members": []string{"alice", "bob"},
	}))
	req.Equal([]string{"groupCreated"}, alice.names())
	req.Equal([]string{"groupCreated"}, bob.names())
	req.Empty(carol.names())

	group := alice.events[0].Data.(event.GroupPayload)
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "sendGroup", map[string]string{
		"sender":  "alice",
		"groupId": group.ID,
		"body":    "meet at nine",
	}))
	req.Equal([]string{"receive", "sent"}, alice.names())
	req.Equal([]string{"receive"}, bob.names())
	req.Empty(carol.names())

	// Outsiders cannot post
	alice.events, carol.events = nil, nil
	dispatcher.Handle(ctx, "conn-carol", frame(t, "sendGroup", map[string]string{
		"sender":  "carol",
		"groupId": group.ID,
		"body":    "crash the party",
	}))
	req.Equal([]string{"error"}, carol.names())
	req.Equal("unauthorized", carol.events[0].Data.(map[string]string)["code"])
	req.Empty(alice.names())
}

func Test_Group_Edit_And_Delete_Reach_The_Members(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	alice := join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "createGroup", map[string]any{
		"name":    "plans",
		"creator": "alice",
		"members": []string{"alice", "bob"},
	}))
	group := alice.events[0].Data.(event.GroupPayload)
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "sendGroup", map[string]string{
		"sender":  "alice",
		"groupId": group.ID,
		"body":    "draft",
	}))
	message := alice.events[len(alice.events)-1].Data.(event.MessagePayload)
	alice.events, bob.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "edit", map[string]string{
		"messageId": message.ID,
		"newBody":   "final",
		"requester": "alice",
	}))
	req.Equal([]string{"edited"}, bob.names())
	req.Equal("final", bob.events[0].Data.(map[string]string)["newBody"])

	alice.events, bob.events = nil, nil
	dispatcher.Handle(ctx, "conn-alice", frame(t, "delete", map[string]any{
		"messageIds": []string{message.ID},
		"requester":  "alice",
	}))
	req.Equal([]string{"deleted"}, bob.names())
	req.Equal([]string{message.ID}, bob.events[0].Data.(map[string][]string)["messageIds"])
}

func Test_Delete_Spanning_Channels_Partitions_The_Ids(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)
	ctx := context.Background()

	join(t, dispatcher, "conn-alice", "alice", "bob")
	bob := join(t, dispatcher, "conn-bob", "bob", "alice")
	carol := join(t, dispatcher, "conn-carol", "carol", "alice")

	dispatcher.Handle(ctx, "conn-alice", frame(t, "send", map[string]string{
		"sender": "alice", "receiver": "bob", "body": "for bob",
	}))
	dispatcher.Handle(ctx, "conn-alice", frame(t, "send", map[string]string{
		"sender": "alice", "receiver": "carol", "body": "for carol",
	}))
	toBob := bob.events[len(bob.events)-1].Data.(event.MessagePayload)
	toCarol := carol.events[len(carol.events)-1].Data.(event.MessagePayload)
	bob.events, carol.events = nil, nil

	dispatcher.Handle(ctx, "conn-alice", frame(t, "delete", map[string]any{
		"messageIds": []string{toBob.ID, toCarol.ID},
		"requester":  "alice",
	}))

	// Each conversation only learns about its own losses
	req.Equal([]string{"deleted"}, bob.names())
	req.Equal([]string{toBob.ID}, bob.events[0].Data.(map[string][]string)["messageIds"])
	req.Equal([]string{"deleted"}, carol.names())
	req.Equal([]string{toCarol.ID}, carol.events[0].Data.(map[string][]string)["messageIds"])
}

func Test_Malformed_Frame_Yields_A_Validation_Error(t *testing.T) {
	req := require.New(t)
	dispatcher, _ := newTestDispatcher(t)

	sink := &recordingSink{}
	dispatcher.Attach("conn-1", sink)
	dispatcher.Handle(context.Background(), "conn-1", []byte(`{"event":"teleport"}`))

	req.Equal([]string{"error"}, sink.names())
	req.Equal("validation", sink.events[0].Data.(map[string]string)["code"])
}
