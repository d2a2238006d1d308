package services

import (
	"chatwire/domain"
	"chatwire/repositories"
)

type IRelationshipService interface {
	SendRequest(from, to domain.ParticipantID) error
	AcceptRequest(accepter, requester domain.ParticipantID) error
	RejectRequest(rejecter, requester domain.ParticipantID) error
	WithdrawRequest(from, to domain.ParticipantID) error
	RemoveFriend(a, b domain.ParticipantID) error
	Block(blocker, target domain.ParticipantID) error
	Unblock(blocker, target domain.ParticipantID) error
	Relations(p domain.ParticipantID) (repositories.Relations, error)
}

// RelationshipService fronts the friend-request state machine. The
// guards and the atomicity live in the repository transactions; this
// layer gives the dispatcher one coherent surface.
type RelationshipService struct {
	relationships repositories.IRelationshipRepository
}

func NewRelationshipService(relationships repositories.IRelationshipRepository) *RelationshipService {
	return &RelationshipService{relationships: relationships}
}

func (s *RelationshipService) SendRequest(from, to domain.ParticipantID) error {
	return s.relationships.SendRequest(from, to)
}

func (s *RelationshipService) AcceptRequest(accepter, requester domain.ParticipantID) error {
	return s.relationships.AcceptRequest(accepter, requester)
}

func (s *RelationshipService) RejectRequest(rejecter, requester domain.ParticipantID) error {
	return s.relationships.RejectRequest(rejecter, requester)
}

// WithdrawRequest is the requester pulling back their own pending
// request; the pending entry lives on the target's side.
func (s *RelationshipService) WithdrawRequest(from, to domain.ParticipantID) error {
	return s.relationships.RejectRequest(to, from)
}

func (s *RelationshipService) RemoveFriend(a, b domain.ParticipantID) error {
	return s.relationships.RemoveFriendship(a, b)
}

func (s *RelationshipService) Block(blocker, target domain.ParticipantID) error {
	return s.relationships.Block(blocker, target)
}

func (s *RelationshipService) Unblock(blocker, target domain.ParticipantID) error {
	return s.relationships.Unblock(blocker, target)
}

func (s *RelationshipService) Relations(p domain.ParticipantID) (repositories.Relations, error) {
	return s.relationships.Relations(p)
}
