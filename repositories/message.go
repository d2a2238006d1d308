//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatwire/domain"
	"chatwire/errors"
)

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	History(channel domain.ChannelID) ([]domain.Message, error)
	UpdateBody(id uuid.UUID, newBody string, requester domain.ParticipantID) (domain.Message, error)
	MarkSeen(channel domain.ChannelID, reader domain.ParticipantID) (int, error)
	DeleteMany(ids []uuid.UUID, requester domain.ParticipantID) ([]domain.Message, error)
}

// MessageRepository persists messages in BadgerDB.
// The primary key is "msg:{channel}:{timestamp_padded}:{uuid}" so that:
//  1. A prefix scan per channel returns messages in chronological order
//     (19-digit zero padding keeps the lexicographic and time orders equal).
//  2. The UUID suffix disambiguates two messages stored in the same
//     nanosecond.
//
// A secondary "idx:msg:{uuid}" key maps a message id back to its primary
// key for the edit, seen and delete paths.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored form of a message, encoded with CBOR.
type diskMessage struct {
	ID         string `cbor:"id"`
	Kind       string `cbor:"kind"`
	Channel    string `cbor:"channel"`
	Sender     string `cbor:"sender"`
	Receiver   string `cbor:"receiver,omitempty"`
	GroupID    string `cbor:"group_id,omitempty"`
	Body       string `cbor:"body"`
	Attachment string `cbor:"attachment,omitempty"`
	ReplyTo    string `cbor:"reply_to,omitempty"`
	Seen       bool   `cbor:"seen"`
	At         int64  `cbor:"at"` // unix nanoseconds
}

func messageKey(channel domain.ChannelID, at time.Time, id uuid.UUID) []byte {
	return fmt.Appendf(nil, "msg:%s:%019d:%s", channel, at.UnixNano(), id)
}

func channelPrefix(channel domain.ChannelID) []byte {
	return fmt.Appendf(nil, "msg:%s:", channel)
}

func indexKey(id uuid.UUID) []byte {
	return []byte("idx:msg:" + id.String())
}

// Append assigns the message its id and timestamp and stores it durably,
// returning the stored form. Both the record and its id index are written
// in one transaction.
func (m MessageRepository) Append(message domain.Message) (domain.Message, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	value, err := cbor.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: marshal: %v", errors.ErrStore, err)
	}

	key := messageKey(message.Channel, message.CreatedAt, message.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), key)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: append: %v", errors.ErrStore, err)
	}
	return message, nil
}

// History returns the channel's messages in the order they were durably
// appended. The configured limit, when set, caps the scan.
func (m MessageRepository) History(channel domain.ChannelID) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := channelPrefix(channel)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				message, err := decodeMessage(value)
				if err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: history: %v", errors.ErrStore, err)
	}
	return messages, nil
}

// UpdateBody rewrites the body of a message. Only the original sender may
// edit; everyone else gets ErrUnauthorized without any mutation.
func (m MessageRepository) UpdateBody(id uuid.UUID, newBody string, requester domain.ParticipantID) (domain.Message, error) {
	var updated domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		key, message, err := m.getByID(txn, id)
		if err != nil {
			return err
		}
		if message.SenderID != requester {
			return errors.ErrUnauthorized
		}
		message.Body = newBody
		value, err := cbor.Marshal(fromMessage(message))
		if err != nil {
			return fmt.Errorf("%w: marshal: %v", errors.ErrStore, err)
		}
		updated = message
		return txn.Set(key, value)
	})
	if err != nil {
		return domain.Message{}, wrapStore("update body", err)
	}
	return updated, nil
}

// MarkSeen flips the seen flag on every message in the channel authored
// by someone other than the reader. Applying it twice is a no-op, not an
// error. It returns the number of messages flipped.
func (m MessageRepository) MarkSeen(channel domain.ChannelID, reader domain.ParticipantID) (int, error) {
	flipped := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		prefix := channelPrefix(channel)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var message domain.Message
			err := item.Value(func(value []byte) error {
				var err error
				message, err = decodeMessage(value)
				return err
			})
			if err != nil {
				return err
			}
			if message.SenderID == reader || message.Seen {
				continue
			}
			message.Seen = true
			value, err := cbor.Marshal(fromMessage(message))
			if err != nil {
				return fmt.Errorf("%w: marshal: %v", errors.ErrStore, err)
			}
			if err := txn.Set(item.KeyCopy(nil), value); err != nil {
				return err
			}
			flipped++
		}
		return nil
	})
	if err != nil {
		return 0, wrapStore("mark seen", err)
	}
	return flipped, nil
}

// DeleteMany removes a batch of messages. Authorization is checked per
// message BEFORE anything is deleted: if the requester does not own every
// target, the whole batch is rejected and nothing is removed. It returns
// the removed messages so the caller can route notifications per
// conversation.
func (m MessageRepository) DeleteMany(ids []uuid.UUID, requester domain.ParticipantID) ([]domain.Message, error) {
	var removed []domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		removed = removed[:0]
		keys := make([][]byte, 0, len(ids))
		for _, id := range ids {
			key, message, err := m.getByID(txn, id)
			if err != nil {
				return err
			}
			if message.SenderID != requester {
				return errors.ErrUnauthorized
			}
			keys = append(keys, key)
			removed = append(removed, message)
		}
		for i, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Delete(indexKey(ids[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStore("delete many", err)
	}
	return removed, nil
}

// getByID resolves a message through the id index inside a transaction.
func (m MessageRepository) getByID(txn *badger.Txn, id uuid.UUID) ([]byte, domain.Message, error) {
	item, err := txn.Get(indexKey(id))
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.Message{}, fmt.Errorf("%w: message %s", errors.ErrNotFound, id)
		}
		return nil, domain.Message{}, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return nil, domain.Message{}, err
	}
	record, err := txn.Get(key)
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.Message{}, fmt.Errorf("%w: message %s", errors.ErrNotFound, id)
		}
		return nil, domain.Message{}, err
	}
	var message domain.Message
	err = record.Value(func(value []byte) error {
		var err error
		message, err = decodeMessage(value)
		return err
	})
	if err != nil {
		return nil, domain.Message{}, err
	}
	return key, message, nil
}

func fromMessage(message domain.Message) diskMessage {
	dm := diskMessage{
		ID:         message.ID.String(),
		Kind:       string(message.Kind),
		Channel:    string(message.Channel),
		Sender:     string(message.SenderID),
		Receiver:   string(message.ReceiverID),
		Body:       message.Body,
		Attachment: message.Attachment,
		Seen:       message.Seen,
		At:         message.CreatedAt.UnixNano(),
	}
	if message.GroupID != uuid.Nil {
		dm.GroupID = message.GroupID.String()
	}
	if message.ReplyTo != nil {
		dm.ReplyTo = message.ReplyTo.String()
	}
	return dm
}

func decodeMessage(value []byte) (domain.Message, error) {
	var dm diskMessage
	if err := cbor.Unmarshal(value, &dm); err != nil {
		return domain.Message{}, fmt.Errorf("%w: unmarshal: %v", errors.ErrStore, err)
	}
	id, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: corrupt message id: %v", errors.ErrStore, err)
	}
	message := domain.Message{
		ID:         id,
		Kind:       domain.MessageKind(dm.Kind),
		Channel:    domain.ChannelID(dm.Channel),
		SenderID:   domain.ParticipantID(dm.Sender),
		ReceiverID: domain.ParticipantID(dm.Receiver),
		Body:       dm.Body,
		Attachment: dm.Attachment,
		Seen:       dm.Seen,
		CreatedAt:  time.Unix(0, dm.At).UTC(),
	}
	if dm.GroupID != "" {
		groupID, err := uuid.Parse(dm.GroupID)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: corrupt group id: %v", errors.ErrStore, err)
		}
		message.GroupID = groupID
	}
	if dm.ReplyTo != "" {
		replyTo, err := uuid.Parse(dm.ReplyTo)
		if err != nil {
			return domain.Message{}, fmt.Errorf("%w: corrupt reply reference: %v", errors.ErrStore, err)
		}
		message.ReplyTo = lo.ToPtr(replyTo)
	}
	return message, nil
}
