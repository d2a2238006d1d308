//go:generate go run go.uber.org/mock/mockgen -source=relationship.go -destination=../mocks/mock_relationship_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/samber/lo"

	"chatwire/domain"
	"chatwire/errors"
)

type IRelationshipRepository interface {
	Relations(p domain.ParticipantID) (Relations, error)
	SendRequest(from, to domain.ParticipantID) error
	AcceptRequest(accepter, requester domain.ParticipantID) error
	RejectRequest(target, requester domain.ParticipantID) error
	RemoveFriendship(a, b domain.ParticipantID) error
	Block(blocker, target domain.ParticipantID) error
	Unblock(blocker, target domain.ParticipantID) error
	IsBlocked(blocker, target domain.ParticipantID) (bool, error)
}

// Relations is one participant's view of the relationship graph.
// Pending holds the ids of participants who sent this participant a
// still-unanswered friend request.
type Relations struct {
	Friends []string `cbor:"friends,omitempty"`
	Pending []string `cbor:"pending,omitempty"`
	Blocked []string `cbor:"blocked,omitempty"`
}

// RelationshipRepository drives the friend-request state machine:
// none -> pending(A->B) -> friends, with rejection, withdrawal and
// unfriending back to none. Blocking is an orthogonal unilateral flag.
// Every transition runs inside one badger transaction so that the two
// sides of a friendship can never end up half-applied.
type RelationshipRepository struct {
	db *badger.DB
}

func NewRelationshipRepository(db *badger.DB) RelationshipRepository {
	return RelationshipRepository{db: db}
}

func relationsKey(p domain.ParticipantID) []byte {
	return []byte("rel:" + string(p))
}

func (r RelationshipRepository) Relations(p domain.ParticipantID) (Relations, error) {
	var relations Relations
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		relations, err = getRelations(txn, p)
		return err
	})
	return relations, wrapStore("get relations", err)
}

// SendRequest adds `from` to `to`'s pending set.
// Guards: an existing friendship wins over a new request, a same-direction
// pending request must not be duplicated, and a block in the receiving
// direction suppresses the request entirely.
func (r RelationshipRepository) SendRequest(from, to domain.ParticipantID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		target, err := getRelations(txn, to)
		if err != nil {
			return err
		}
		switch {
		case lo.Contains(target.Friends, string(from)):
			return fmt.Errorf("%w: %s and %s", errors.ErrAlreadyFriends, from, to)
		case lo.Contains(target.Pending, string(from)):
			return fmt.Errorf("%w: %s -> %s", errors.ErrDuplicateRequest, from, to)
		case lo.Contains(target.Blocked, string(from)):
			return fmt.Errorf("%w: %s blocked %s", errors.ErrBlocked, to, from)
		}
		target.Pending = append(target.Pending, string(from))
		return putRelations(txn, to, target)
	})
	return wrapStore("send request", err)
}

// AcceptRequest promotes a pending request into a symmetric friendship.
// Both sides are updated in the same transaction; if either write fails
// the whole operation fails and no half-applied friendship survives.
func (r RelationshipRepository) AcceptRequest(accepter, requester domain.ParticipantID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		accepterRel, err := getRelations(txn, accepter)
		if err != nil {
			return err
		}
		if !lo.Contains(accepterRel.Pending, string(requester)) {
			return fmt.Errorf("%w: %s -> %s", errors.ErrNoSuchRequest, requester, accepter)
		}
		requesterRel, err := getRelations(txn, requester)
		if err != nil {
			return err
		}

		accepterRel.Pending = lo.Without(accepterRel.Pending, string(requester))
		accepterRel.Friends = appendUnique(accepterRel.Friends, string(requester))
		requesterRel.Friends = appendUnique(requesterRel.Friends, string(accepter))

		if err := putRelations(txn, accepter, accepterRel); err != nil {
			return err
		}
		return putRelations(txn, requester, requesterRel)
	})
	return wrapStore("accept request", err)
}

// RejectRequest removes `requester` from `target`'s pending set. The same
// primitive serves rejection (called by the target) and withdrawal
// (called by the requester).
func (r RelationshipRepository) RejectRequest(target, requester domain.ParticipantID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		relations, err := getRelations(txn, target)
		if err != nil {
			return err
		}
		if !lo.Contains(relations.Pending, string(requester)) {
			return fmt.Errorf("%w: %s -> %s", errors.ErrNoSuchRequest, requester, target)
		}
		relations.Pending = lo.Without(relations.Pending, string(requester))
		return putRelations(txn, target, relations)
	})
	return wrapStore("reject request", err)
}

// RemoveFriendship removes the edge from both sides. Removing an edge
// that does not exist is not an error.
func (r RelationshipRepository) RemoveFriendship(a, b domain.ParticipantID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		first, err := getRelations(txn, a)
		if err != nil {
			return err
		}
		second, err := getRelations(txn, b)
		if err != nil {
			return err
		}
		first.Friends = lo.Without(first.Friends, string(b))
		second.Friends = lo.Without(second.Friends, string(a))
		if err := putRelations(txn, a, first); err != nil {
			return err
		}
		return putRelations(txn, b, second)
	})
	return wrapStore("remove friendship", err)
}

// Block adds `target` to the blocker's blocked set. Blocking does not
// touch an existing friendship; the two are independent facts.
func (r RelationshipRepository) Block(blocker, target domain.ParticipantID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		relations, err := getRelations(txn, blocker)
		if err != nil {
			return err
		}
		if lo.Contains(relations.Blocked, string(target)) {
			return fmt.Errorf("%w: %s blocked %s", errors.ErrAlreadyBlocked, blocker, target)
		}
		relations.Blocked = append(relations.Blocked, string(target))
		return putRelations(txn, blocker, relations)
	})
	return wrapStore("block", err)
}

// Unblock is idempotent: unblocking someone who was never blocked is a
// no-op.
func (r RelationshipRepository) Unblock(blocker, target domain.ParticipantID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		relations, err := getRelations(txn, blocker)
		if err != nil {
			return err
		}
		relations.Blocked = lo.Without(relations.Blocked, string(target))
		return putRelations(txn, blocker, relations)
	})
	return wrapStore("unblock", err)
}

// IsBlocked reports whether `blocker` blocks `target`.
func (r RelationshipRepository) IsBlocked(blocker, target domain.ParticipantID) (bool, error) {
	relations, err := r.Relations(blocker)
	if err != nil {
		return false, err
	}
	return lo.Contains(relations.Blocked, string(target)), nil
}

func getRelations(txn *badger.Txn, p domain.ParticipantID) (Relations, error) {
	item, err := txn.Get(relationsKey(p))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return Relations{}, nil
	}
	if err != nil {
		return Relations{}, err
	}
	var relations Relations
	err = item.Value(func(value []byte) error {
		return cbor.Unmarshal(value, &relations)
	})
	return relations, err
}

func putRelations(txn *badger.Txn, p domain.ParticipantID, relations Relations) error {
	value, err := cbor.Marshal(relations)
	if err != nil {
		return err
	}
	return txn.Set(relationsKey(p), value)
}

func appendUnique(values []string, value string) []string {
	if lo.Contains(values, value) {
		return values
	}
	return append(values, value)
}
