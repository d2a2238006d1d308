package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatwire/channel"
	"chatwire/contract"
	"chatwire/domain"
	"chatwire/domain/event"
	"chatwire/errors"
	"chatwire/runtime/workers"
	"chatwire/services"
)

// Dispatcher is the realtime hub: it decodes and validates inbound
// frames, drives the services, and fans results out to the registry's
// sinks. Failures are reported to the originating connection only, as a
// scoped error event, never broadcast.
type Dispatcher struct {
	log           *slog.Logger
	registry      contract.IRegistry
	presence      *presenceBroadcaster
	resolver      *channel.Resolver
	chat          services.IChatService
	relationships services.IRelationshipService
	groups        services.IGroupService
	typing        *workers.TypingWorker
}

func NewDispatcher(log *slog.Logger,
	registry contract.IRegistry,
	tracker presenceTracker,
	resolver *channel.Resolver,
	chat services.IChatService,
	relationships services.IRelationshipService,
	groups services.IGroupService,
	typing *workers.TypingWorker) *Dispatcher {
	return &Dispatcher{
		log:           log,
		registry:      registry,
		presence:      &presenceBroadcaster{tracker: tracker, registry: registry, log: log},
		resolver:      resolver,
		chat:          chat,
		relationships: relationships,
		groups:        groups,
		typing:        typing,
	}
}

// presenceTracker is the slice of the presence package the dispatcher
// drives: connection-counted transitions that report the resulting
// online set.
type presenceTracker interface {
	MarkOnline(p domain.ParticipantID) ([]domain.ParticipantID, bool)
	MarkOffline(p domain.ParticipantID) ([]domain.ParticipantID, bool)
}

// presenceBroadcaster couples a transition with its fan-out: whenever a
// participant's visible state flips, everyone gets the full online set.
type presenceBroadcaster struct {
	tracker  presenceTracker
	registry contract.IRegistry
	log      *slog.Logger
}

func (b *presenceBroadcaster) online(ctx context.Context, p domain.ParticipantID) {
	if online, changed := b.tracker.MarkOnline(p); changed {
		b.announce(ctx, online)
	}
}

func (b *presenceBroadcaster) offline(ctx context.Context, p domain.ParticipantID) {
	if online, changed := b.tracker.MarkOffline(p); changed {
		b.announce(ctx, online)
	}
}

func (b *presenceBroadcaster) announce(ctx context.Context, online []domain.ParticipantID) {
	update := event.PresenceUpdate(online)
	for _, sink := range b.registry.AllSinks() {
		if err := sink.Consume(ctx, update); err != nil {
			b.log.Debug("Presence update dropped", "error", err)
		}
	}
}

// Attach registers a freshly upgraded, still anonymous connection.
func (d *Dispatcher) Attach(conn domain.ConnID, sink contract.EventSink) {
	d.registry.Register(conn, sink)
	d.log.Debug("Connection attached", "conn", conn)
}

// Bind pins an authenticated connection to its participant before any
// frame is processed and flips them online. Later announcements on the
// connection must match.
func (d *Dispatcher) Bind(ctx context.Context, conn domain.ConnID, participant domain.ParticipantID) {
	if d.registry.Identify(conn, participant) {
		d.presence.online(ctx, participant)
	}
}

// verifyIdentity rejects events announcing a participant other than the
// one the connection is already bound to.
func (d *Dispatcher) verifyIdentity(conn domain.ConnID, announced domain.ParticipantID) error {
	if existing, ok := d.registry.Identity(conn); ok && existing != announced {
		return fmt.Errorf("%w: connection is bound to another participant", errors.ErrUnauthorized)
	}
	return nil
}

// Detach removes the connection everywhere and, if it was the
// participant's last one, flips them offline and tells everyone.
func (d *Dispatcher) Detach(ctx context.Context, conn domain.ConnID) {
	participant, identified := d.registry.Drop(conn)
	d.log.Debug("Connection detached", "conn", conn)
	if identified {
		d.presence.offline(ctx, participant)
	}
}

// Handle processes one raw inbound frame from a connection. It never
// returns an error to the transport: every failure becomes a scoped
// error event on the originating connection.
func (d *Dispatcher) Handle(ctx context.Context, conn domain.ConnID, raw []byte) {
	evt, err := event.Decode(raw)
	if err != nil {
		d.fail(ctx, conn, "decode", err)
		return
	}
	if err := d.dispatch(ctx, conn, evt); err != nil {
		d.fail(ctx, conn, evt.Name(), err)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, conn domain.ConnID, evt event.Inbound) error {
	switch e := evt.(type) {
	case *event.Join:
		return d.handleJoin(ctx, conn, e)
	case *event.Send:
		return d.handleSend(ctx, conn, domain.SendMessageCommand{
			Sender:     domain.ParticipantID(e.Sender),
			Receiver:   domain.ParticipantID(e.Receiver),
			Body:       e.Body,
			Attachment: e.Attachment,
		})
	case *event.Reply:
		replyTo, err := uuid.Parse(e.ReplyTo)
		if err != nil {
			return fmt.Errorf("%w: reply reference: %v", errors.ErrValidation, err)
		}
		return d.handleSend(ctx, conn, domain.SendMessageCommand{
			Sender:   domain.ParticipantID(e.Sender),
			Receiver: domain.ParticipantID(e.Receiver),
			Body:     e.Body,
			ReplyTo:  &replyTo,
		})
	case *event.SendGroup:
		return d.handleSendGroup(ctx, conn, e)
	case *event.Edit:
		return d.handleEdit(ctx, e)
	case *event.Delete:
		return d.handleDelete(ctx, e)
	case *event.History:
		return d.handleHistory(ctx, conn, e)
	case *event.Typing:
		return d.handleTyping(ctx, e)
	case *event.Online:
		participant := domain.ParticipantID(e.Participant)
		if err := d.verifyIdentity(conn, participant); err != nil {
			return err
		}
		if d.registry.Identify(conn, participant) {
			d.presence.online(ctx, participant)
		}
		return nil
	case *event.Offline:
		participant := domain.ParticipantID(e.Participant)
		if err := d.verifyIdentity(conn, participant); err != nil {
			return err
		}
		d.presence.offline(ctx, participant)
		return nil
	case *event.Seen:
		return d.handleSeen(ctx, e)
	case *event.Relations:
		relations, err := d.relationships.Relations(domain.ParticipantID(e.Participant))
		if err != nil {
			return err
		}
		d.toConn(ctx, conn, event.RelationsResult(relations.Friends, relations.Pending, relations.Blocked))
		return nil
	case *event.SendFriendRequest:
		if err := d.relationships.SendRequest(domain.ParticipantID(e.From), domain.ParticipantID(e.To)); err != nil {
			return err
		}
		d.toParticipant(ctx, domain.ParticipantID(e.To), event.FriendRequestReceived(domain.ParticipantID(e.From)))
		return nil
	case *event.AcceptFriendRequest:
		if err := d.relationships.AcceptRequest(domain.ParticipantID(e.Accepter), domain.ParticipantID(e.Requester)); err != nil {
			return err
		}
		d.toParticipant(ctx, domain.ParticipantID(e.Requester), event.FriendRequestAccepted(domain.ParticipantID(e.Accepter)))
		return nil
	case *event.RejectFriendRequest:
		if err := d.relationships.RejectRequest(domain.ParticipantID(e.Rejecter), domain.ParticipantID(e.Requester)); err != nil {
			return err
		}
		d.toParticipant(ctx, domain.ParticipantID(e.Requester), event.FriendRequestRejected(domain.ParticipantID(e.Rejecter)))
		return nil
	case *event.WithdrawFriendRequest:
		if err := d.relationships.WithdrawRequest(domain.ParticipantID(e.From), domain.ParticipantID(e.To)); err != nil {
			return err
		}
		d.toParticipant(ctx, domain.ParticipantID(e.To), event.FriendRequestWithdrawn(domain.ParticipantID(e.From)))
		return nil
	case *event.RemoveFriend:
		if err := d.relationships.RemoveFriend(domain.ParticipantID(e.Remover), domain.ParticipantID(e.Friend)); err != nil {
			return err
		}
		d.toParticipant(ctx, domain.ParticipantID(e.Friend), event.FriendRemoved(domain.ParticipantID(e.Remover)))
		return nil
	case *event.Block:
		if err := d.relationships.Block(domain.ParticipantID(e.Blocker), domain.ParticipantID(e.Target)); err != nil {
			return err
		}
		d.toParticipant(ctx, domain.ParticipantID(e.Target), event.UserBlocked(domain.ParticipantID(e.Blocker)))
		return nil
	case *event.Unblock:
		if err := d.relationships.Unblock(domain.ParticipantID(e.Blocker), domain.ParticipantID(e.Target)); err != nil {
			return err
		}
		d.toParticipant(ctx, domain.ParticipantID(e.Target), event.UserUnblocked(domain.ParticipantID(e.Blocker)))
		return nil
	case *event.CreateGroup:
		group, err := d.groups.Create(e.GroupName, domain.ParticipantID(e.Creator), toParticipants(e.Members))
		if err != nil {
			return err
		}
		d.toMembers(ctx, group.Members, event.GroupCreated(group))
		return nil
	case *event.RenameGroup:
		return d.handleGroupUpdate(ctx, e.GroupID, func(id uuid.UUID) (domain.Group, error) {
			return d.groups.Rename(id, e.NewName, domain.ParticipantID(e.Actor))
		})
	case *event.UpdateGroupMembers:
		return d.handleGroupUpdate(ctx, e.GroupID, func(id uuid.UUID) (domain.Group, error) {
			return d.groups.UpdateMembers(id, toParticipants(e.Members), toParticipants(e.Admins), domain.ParticipantID(e.Actor))
		})
	case *event.DeleteGroup:
		id, err := uuid.Parse(e.GroupID)
		if err != nil {
			return fmt.Errorf("%w: group id: %v", errors.ErrValidation, err)
		}
		group, err := d.groups.Delete(id, domain.ParticipantID(e.Actor))
		if err != nil {
			return err
		}
		d.toMembers(ctx, group.Members, event.GroupDeleted(group.ID))
		return nil
	default:
		return fmt.Errorf("%w: unhandled event %q", errors.ErrValidation, evt.Name())
	}
}

// handleJoin binds the connection to its participant, subscribes it to
// the pair's channel and flips the participant online. A connection
// joining several conversations identifies once, so presence counts one
// per connection and Detach balances it exactly.
func (d *Dispatcher) handleJoin(ctx context.Context, conn domain.ConnID, e *event.Join) error {
	participant := domain.ParticipantID(e.Participant)
	if err := d.verifyIdentity(conn, participant); err != nil {
		return err
	}
	resolved := d.resolver.Resolve(participant, domain.ParticipantID(e.Peer))

	d.registry.SubscribeChannel(conn, resolved)
	if d.registry.Identify(conn, participant) {
		d.presence.online(ctx, participant)
	}

	d.log.Debug("Joined channel", "conn", conn, "participant", participant, "channel", resolved)
	return nil
}

// handleSend stores the message first, then broadcasts: a receive event
// to the channel's subscribers and an ack to the sender's connection.
func (d *Dispatcher) handleSend(ctx context.Context, conn domain.ConnID, cmd domain.SendMessageCommand) error {
	message, err := d.chat.Send(cmd)
	if err != nil {
		return err
	}
	d.typing.Clear(message.Channel, message.SenderID)
	d.toChannel(ctx, message.Channel, event.Receive(message))
	d.toConn(ctx, conn, event.Sent(message))
	return nil
}

// handleSendGroup delivers to every member's live connections, not to a
// subscriber set: group membership is durable, subscriptions are not.
func (d *Dispatcher) handleSendGroup(ctx context.Context, conn domain.ConnID, e *event.SendGroup) error {
	groupID, err := uuid.Parse(e.GroupID)
	if err != nil {
		return fmt.Errorf("%w: group id: %v", errors.ErrValidation, err)
	}
	message, members, err := d.sendToGroup(domain.GroupMessageCommand{
		Sender:  domain.ParticipantID(e.Sender),
		GroupID: groupID,
		Body:    e.Body,
	})
	if err != nil {
		return err
	}
	d.toMembers(ctx, members, event.Receive(message))
	d.toConn(ctx, conn, event.Sent(message))
	return nil
}

func (d *Dispatcher) sendToGroup(cmd domain.GroupMessageCommand) (domain.Message, []domain.ParticipantID, error) {
	message, err := d.chat.SendToGroup(cmd)
	if err != nil {
		return domain.Message{}, nil, err
	}
	group, err := d.groups.Members(cmd.GroupID)
	if err != nil {
		return domain.Message{}, nil, err
	}
	return message, group, nil
}

func (d *Dispatcher) handleEdit(ctx context.Context, e *event.Edit) error {
	id, err := uuid.Parse(e.MessageID)
	if err != nil {
		return fmt.Errorf("%w: message id: %v", errors.ErrValidation, err)
	}
	message, err := d.chat.Edit(id, e.NewBody, domain.ParticipantID(e.Requester))
	if err != nil {
		return err
	}
	return d.routeByKind(ctx, message, event.Edited(message.ID, message.Body))
}

// handleDelete partitions the removed batch before fanning out, so each
// audience only learns the ids deleted from its own conversation.
func (d *Dispatcher) handleDelete(ctx context.Context, e *event.Delete) error {
	ids := make([]uuid.UUID, len(e.MessageIDs))
	for i, raw := range e.MessageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: message id: %v", errors.ErrValidation, err)
		}
		ids[i] = id
	}
	removed, err := d.chat.Delete(ids, domain.ParticipantID(e.Requester))
	if err != nil {
		return err
	}

	byChannel := make(map[domain.ChannelID][]string)
	byGroup := make(map[uuid.UUID][]string)
	for _, message := range removed {
		if message.Kind == domain.KindGroup {
			byGroup[message.GroupID] = append(byGroup[message.GroupID], message.ID.String())
		} else {
			byChannel[message.Channel] = append(byChannel[message.Channel], message.ID.String())
		}
	}
	for ch, deleted := range byChannel {
		d.toChannel(ctx, ch, event.Deleted(deleted))
	}
	for groupID, deleted := range byGroup {
		members, err := d.groups.Members(groupID)
		if err != nil {
			return err
		}
		d.toMembers(ctx, members, event.Deleted(deleted))
	}
	return nil
}

// routeByKind fans a message-scoped event out to its audience: a direct
// message's channel subscribers, or a group message's member
// connections (nothing ever subscribes to a group's channel id).
func (d *Dispatcher) routeByKind(ctx context.Context, message domain.Message, out event.Outbound) error {
	if message.Kind != domain.KindGroup {
		d.toChannel(ctx, message.Channel, out)
		return nil
	}
	members, err := d.groups.Members(message.GroupID)
	if err != nil {
		return err
	}
	d.toMembers(ctx, members, out)
	return nil
}

// handleHistory also subscribes the requesting connection, so a client
// that asks for a conversation starts receiving its live traffic.
func (d *Dispatcher) handleHistory(ctx context.Context, conn domain.ConnID, e *event.History) error {
	resolved, messages, err := d.chat.History(domain.ParticipantID(e.Participant), domain.ParticipantID(e.Peer))
	if err != nil {
		return err
	}
	d.registry.SubscribeChannel(conn, resolved)
	payloads := lo.Map(messages, func(m domain.Message, _ int) event.MessagePayload {
		return event.ToMessagePayload(m)
	})
	d.toConn(ctx, conn, event.HistoryResult(payloads))
	return nil
}

func (d *Dispatcher) handleTyping(ctx context.Context, e *event.Typing) error {
	participant := domain.ParticipantID(e.Participant)
	resolved := d.resolver.Resolve(participant, domain.ParticipantID(e.Peer))
	d.typing.Touch(resolved, participant)
	d.toChannel(ctx, resolved, event.TypingStarted(resolved, participant))
	return nil
}

// handleSeen only broadcasts when something actually flipped; a repeated
// read produces no traffic.
func (d *Dispatcher) handleSeen(ctx context.Context, e *event.Seen) error {
	reader := domain.ParticipantID(e.Reader)
	resolved, flipped, err := d.chat.MarkSeen(reader, domain.ParticipantID(e.Peer))
	if err != nil {
		return err
	}
	if flipped > 0 {
		d.toChannel(ctx, resolved, event.SeenUpdate(resolved, reader))
	}
	return nil
}

func (d *Dispatcher) handleGroupUpdate(ctx context.Context, rawID string, update func(uuid.UUID) (domain.Group, error)) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("%w: group id: %v", errors.ErrValidation, err)
	}
	group, err := update(id)
	if err != nil {
		return err
	}
	d.toMembers(ctx, group.Members, event.GroupUpdated(group))
	return nil
}

// fail reports a rejected operation to the origin only. Store failures
// are logged loudly; everything else is the client's mistake.
func (d *Dispatcher) fail(ctx context.Context, conn domain.ConnID, operation string, err error) {
	if errors.IsStore(err) {
		d.log.Error("Operation failed on storage", "operation", operation, "conn", conn, "error", err)
	} else {
		d.log.Debug("Operation rejected", "operation", operation, "conn", conn, "error", err)
	}
	d.toConn(ctx, conn, event.ScopedError(errors.ToCode(err), err.Error()))
}

func (d *Dispatcher) toConn(ctx context.Context, conn domain.ConnID, out event.Outbound) {
	sink, ok := d.registry.Sink(conn)
	if !ok {
		return
	}
	if err := sink.Consume(ctx, out); err != nil {
		d.log.Debug("Event dropped", "event", out.Event, "conn", conn, "error", err)
	}
}

func (d *Dispatcher) toChannel(ctx context.Context, ch domain.ChannelID, out event.Outbound) {
	for _, sink := range d.registry.SinksForChannel(ch) {
		if err := sink.Consume(ctx, out); err != nil {
			d.log.Debug("Event dropped", "event", out.Event, "channel", ch, "error", err)
		}
	}
}

func (d *Dispatcher) toParticipant(ctx context.Context, p domain.ParticipantID, out event.Outbound) {
	for _, sink := range d.registry.SinksForParticipant(p) {
		if err := sink.Consume(ctx, out); err != nil {
			d.log.Debug("Event dropped", "event", out.Event, "participant", p, "error", err)
		}
	}
}

func (d *Dispatcher) toMembers(ctx context.Context, members []domain.ParticipantID, out event.Outbound) {
	for _, member := range members {
		d.toParticipant(ctx, member, out)
	}
}

func toParticipants(ids []string) []domain.ParticipantID {
	return lo.Map(ids, func(id string, _ int) domain.ParticipantID {
		return domain.ParticipantID(id)
	})
}
