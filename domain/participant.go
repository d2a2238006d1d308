package domain

// ParticipantID is the opaque identifier of a chat participant.
// It is stable, comparable and orderable, which is what channel
// canonicalization relies on. Profile data (credentials, avatars, bio)
// lives behind the auth and HTTP collaborators and never enters this
// module.
type ParticipantID string
