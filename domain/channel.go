package domain

// ChannelID is the canonical addressable unit two participants (or a
// group) communicate through. For direct conversations it is derived from
// the two participant ids; for groups it is the group id. Channels are
// never persisted as first-class entities.
type ChannelID string
