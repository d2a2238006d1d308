package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chatwire/domain"
	"chatwire/errors"
	"chatwire/repositories"
)

type IGroupService interface {
	Create(name string, creator domain.ParticipantID, members []domain.ParticipantID) (domain.Group, error)
	Rename(id uuid.UUID, newName string, actor domain.ParticipantID) (domain.Group, error)
	UpdateMembers(id uuid.UUID, members, admins []domain.ParticipantID, actor domain.ParticipantID) (domain.Group, error)
	Delete(id uuid.UUID, actor domain.ParticipantID) (domain.Group, error)
	Members(id uuid.UUID) ([]domain.ParticipantID, error)
}

// GroupService enforces the admin rules on group mutation: any admin may
// rename or change membership, only admins may destroy, and the creator
// always starts as owner and admin.
type GroupService struct {
	groups repositories.IGroupRepository
}

func NewGroupService(groups repositories.IGroupRepository) *GroupService {
	return &GroupService{groups: groups}
}

func (s *GroupService) Create(name string, creator domain.ParticipantID, members []domain.ParticipantID) (domain.Group, error) {
	if !lo.Contains(members, creator) {
		members = append([]domain.ParticipantID{creator}, members...)
	}
	return s.groups.Create(domain.Group{
		Name:    name,
		OwnerID: creator,
		Members: members,
		Admins:  []domain.ParticipantID{creator},
	})
}

func (s *GroupService) Rename(id uuid.UUID, newName string, actor domain.ParticipantID) (domain.Group, error) {
	group, err := s.adminGroup(id, actor)
	if err != nil {
		return domain.Group{}, err
	}
	group.Name = newName
	if err := s.groups.Update(group); err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

func (s *GroupService) UpdateMembers(id uuid.UUID, members, admins []domain.ParticipantID, actor domain.ParticipantID) (domain.Group, error) {
	group, err := s.adminGroup(id, actor)
	if err != nil {
		return domain.Group{}, err
	}
	for _, admin := range admins {
		if !lo.Contains(members, admin) {
			return domain.Group{}, fmt.Errorf("%w: admin %s is not a member", errors.ErrValidation, admin)
		}
	}
	group.Members = members
	group.Admins = admins
	if err := s.groups.Update(group); err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

// Delete destroys the group explicitly and returns its last state so the
// caller can notify the former members.
func (s *GroupService) Delete(id uuid.UUID, actor domain.ParticipantID) (domain.Group, error) {
	group, err := s.adminGroup(id, actor)
	if err != nil {
		return domain.Group{}, err
	}
	if err := s.groups.Delete(id); err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

// Members resolves the current membership, for fan-out.
func (s *GroupService) Members(id uuid.UUID) ([]domain.ParticipantID, error) {
	group, err := s.groups.Get(id)
	if err != nil {
		return nil, err
	}
	return group.Members, nil
}

func (s *GroupService) adminGroup(id uuid.UUID, actor domain.ParticipantID) (domain.Group, error) {
	group, err := s.groups.Get(id)
	if err != nil {
		return domain.Group{}, err
	}
	if !group.IsAdmin(actor) {
		return domain.Group{}, fmt.Errorf("%w: %s is not an admin of %s", errors.ErrUnauthorized, actor, id)
	}
	return group, nil
}
