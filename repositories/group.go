//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"chatwire/domain"
	"chatwire/errors"
)

type IGroupRepository interface {
	Create(group domain.Group) (domain.Group, error)
	Get(id uuid.UUID) (domain.Group, error)
	Update(group domain.Group) error
	Delete(id uuid.UUID) error
}

// GroupRepository persists group rooms under "group:{uuid}" keys.
type GroupRepository struct {
	db *badger.DB
}

func NewGroupRepository(db *badger.DB) GroupRepository {
	return GroupRepository{db: db}
}

type diskGroup struct {
	ID      string   `cbor:"id"`
	Name    string   `cbor:"name"`
	Owner   string   `cbor:"owner"`
	Members []string `cbor:"members"`
	Admins  []string `cbor:"admins"`
	At      int64    `cbor:"at"`
}

func groupKey(id uuid.UUID) []byte {
	return []byte("group:" + id.String())
}

// Create assigns the group its id and creation time and stores it.
func (g GroupRepository) Create(group domain.Group) (domain.Group, error) {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	err := g.db.Update(func(txn *badger.Txn) error {
		return putGroup(txn, group)
	})
	if err != nil {
		return domain.Group{}, wrapStore("create group", err)
	}
	return group, nil
}

func (g GroupRepository) Get(id uuid.UUID) (domain.Group, error) {
	var group domain.Group
	err := g.db.View(func(txn *badger.Txn) error {
		var err error
		group, err = getGroup(txn, id)
		return err
	})
	if err != nil {
		return domain.Group{}, wrapStore("get group", err)
	}
	return group, nil
}

func (g GroupRepository) Update(group domain.Group) error {
	err := g.db.Update(func(txn *badger.Txn) error {
		if _, err := getGroup(txn, group.ID); err != nil {
			return err
		}
		return putGroup(txn, group)
	})
	return wrapStore("update group", err)
}

func (g GroupRepository) Delete(id uuid.UUID) error {
	err := g.db.Update(func(txn *badger.Txn) error {
		if _, err := getGroup(txn, id); err != nil {
			return err
		}
		return txn.Delete(groupKey(id))
	})
	return wrapStore("delete group", err)
}

func getGroup(txn *badger.Txn, id uuid.UUID) (domain.Group, error) {
	item, err := txn.Get(groupKey(id))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Group{}, fmt.Errorf("%w: group %s", errors.ErrNotFound, id)
	}
	if err != nil {
		return domain.Group{}, err
	}
	var dg diskGroup
	err = item.Value(func(value []byte) error {
		return cbor.Unmarshal(value, &dg)
	})
	if err != nil {
		return domain.Group{}, err
	}
	return toGroup(dg)
}

func putGroup(txn *badger.Txn, group domain.Group) error {
	value, err := cbor.Marshal(fromGroup(group))
	if err != nil {
		return err
	}
	return txn.Set(groupKey(group.ID), value)
}

func fromGroup(group domain.Group) diskGroup {
	members := make([]string, len(group.Members))
	for i, m := range group.Members {
		members[i] = string(m)
	}
	admins := make([]string, len(group.Admins))
	for i, a := range group.Admins {
		admins[i] = string(a)
	}
	return diskGroup{
		ID:      group.ID.String(),
		Name:    group.Name,
		Owner:   string(group.OwnerID),
		Members: members,
		Admins:  admins,
		At:      group.CreatedAt.UnixNano(),
	}
}

func toGroup(dg diskGroup) (domain.Group, error) {
	id, err := uuid.Parse(dg.ID)
	if err != nil {
		return domain.Group{}, fmt.Errorf("%w: corrupt group id: %v", errors.ErrStore, err)
	}
	members := make([]domain.ParticipantID, len(dg.Members))
	for i, m := range dg.Members {
		members[i] = domain.ParticipantID(m)
	}
	admins := make([]domain.ParticipantID, len(dg.Admins))
	for i, a := range dg.Admins {
		admins[i] = domain.ParticipantID(a)
	}
	return domain.Group{
		ID:        id,
		Name:      dg.Name,
		OwnerID:   domain.ParticipantID(dg.Owner),
		Members:   members,
		Admins:    admins,
		CreatedAt: time.Unix(0, dg.At).UTC(),
	}, nil
}
