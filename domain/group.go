package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Group is a named channel with a member list and a subset of
// administrators. It is owned by its creator and mutated by any admin.
type Group struct {
	ID        uuid.UUID
	Name      string
	OwnerID   ParticipantID
	Members   []ParticipantID
	Admins    []ParticipantID
	CreatedAt time.Time
}

// Channel returns the channel key group messages are addressed to.
func (g Group) Channel() ChannelID {
	return ChannelID(g.ID.String())
}

func (g Group) IsMember(p ParticipantID) bool {
	return lo.Contains(g.Members, p)
}

func (g Group) IsAdmin(p ParticipantID) bool {
	return lo.Contains(g.Admins, p)
}
