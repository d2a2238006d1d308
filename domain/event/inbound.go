// Package event defines the realtime wire surface: one strongly typed
// variant per event name, decoded and validated at the dispatcher
// boundary before any state is touched.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"chatwire/errors"
)

var validate = validator.New()

// Inbound is implemented by every client-originated event variant.
type Inbound interface {
	Name() string
}

// Envelope is the raw wire shape of every event, in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Join struct {
	Participant string `json:"participant" validate:"required"`
	Peer        string `json:"peer" validate:"required"`
}

func (Join) Name() string { return "join" }

type Send struct {
	Sender     string `json:"sender" validate:"required"`
	Receiver   string `json:"receiver" validate:"required"`
	Body       string `json:"body" validate:"required"`
	Attachment string `json:"attachment,omitempty"`
}

func (Send) Name() string { return "send" }

type SendGroup struct {
	Sender  string `json:"sender" validate:"required"`
	GroupID string `json:"groupId" validate:"required,uuid4"`
	Body    string `json:"body" validate:"required"`
}

func (SendGroup) Name() string { return "sendGroup" }

type Edit struct {
	MessageID string `json:"messageId" validate:"required,uuid4"`
	NewBody   string `json:"newBody" validate:"required"`
	Requester string `json:"requester" validate:"required"`
}

func (Edit) Name() string { return "edit" }

type Delete struct {
	MessageIDs []string `json:"messageIds" validate:"required,min=1,dive,uuid4"`
	Requester  string   `json:"requester" validate:"required"`
}

func (Delete) Name() string { return "delete" }

type Reply struct {
	Sender   string `json:"sender" validate:"required"`
	Receiver string `json:"receiver" validate:"required"`
	Body     string `json:"body" validate:"required"`
	ReplyTo  string `json:"replyTo" validate:"required,uuid4"`
}

func (Reply) Name() string { return "reply" }

type History struct {
	Participant string `json:"participant" validate:"required"`
	Peer        string `json:"peer" validate:"required"`
}

func (History) Name() string { return "history" }

type Typing struct {
	Participant string `json:"participant" validate:"required"`
	Peer        string `json:"peer" validate:"required"`
}

func (Typing) Name() string { return "typing" }

type Online struct {
	Participant string `json:"participant" validate:"required"`
}

func (Online) Name() string { return "online" }

type Offline struct {
	Participant string `json:"participant" validate:"required"`
}

func (Offline) Name() string { return "offline" }

type Seen struct {
	Reader string `json:"reader" validate:"required"`
	Peer   string `json:"peer" validate:"required"`
}

func (Seen) Name() string { return "seen" }

type Relations struct {
	Participant string `json:"participant" validate:"required"`
}

func (Relations) Name() string { return "relations" }

type SendFriendRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

func (SendFriendRequest) Name() string { return "sendFriendRequest" }

type AcceptFriendRequest struct {
	Accepter  string `json:"accepter" validate:"required"`
	Requester string `json:"requester" validate:"required"`
}

func (AcceptFriendRequest) Name() string { return "acceptFriendRequest" }

type RejectFriendRequest struct {
	Rejecter  string `json:"rejecter" validate:"required"`
	Requester string `json:"requester" validate:"required"`
}

func (RejectFriendRequest) Name() string { return "rejectFriendRequest" }

type WithdrawFriendRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

func (WithdrawFriendRequest) Name() string { return "withdrawFriendRequest" }

type RemoveFriend struct {
	Remover string `json:"remover" validate:"required"`
	Friend  string `json:"friend" validate:"required"`
}

func (RemoveFriend) Name() string { return "removeFriend" }

type Block struct {
	Blocker string `json:"blocker" validate:"required"`
	Target  string `json:"target" validate:"required"`
}

func (Block) Name() string { return "block" }

type Unblock struct {
	Blocker string `json:"blocker" validate:"required"`
	Target  string `json:"target" validate:"required"`
}

func (Unblock) Name() string { return "unblock" }

type CreateGroup struct {
	GroupName string   `json:"name" validate:"required"`
	Creator   string   `json:"creator" validate:"required"`
	Members   []string `json:"members" validate:"required,min=1,dive,required"`
}

func (CreateGroup) Name() string { return "createGroup" }

type RenameGroup struct {
	GroupID string `json:"groupId" validate:"required,uuid4"`
	NewName string `json:"newName" validate:"required"`
	Actor   string `json:"actor" validate:"required"`
}

func (RenameGroup) Name() string { return "renameGroup" }

type UpdateGroupMembers struct {
	GroupID string   `json:"groupId" validate:"required,uuid4"`
	Members []string `json:"members" validate:"required,min=1,dive,required"`
	Admins  []string `json:"admins" validate:"required,min=1,dive,required"`
	Actor   string   `json:"actor" validate:"required"`
}

func (UpdateGroupMembers) Name() string { return "updateGroupMembers" }

type DeleteGroup struct {
	GroupID string `json:"groupId" validate:"required,uuid4"`
	Actor   string `json:"actor" validate:"required"`
}

func (DeleteGroup) Name() string { return "deleteGroup" }

// Decode parses a raw frame into its typed variant and validates it.
// Unknown event names and malformed payloads are rejected with
// ErrValidation before the dispatcher ever sees them.
func Decode(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", errors.ErrValidation, err)
	}

	var evt Inbound
	switch env.Event {
	case "join":
		evt = &Join{}
	case "send":
		evt = &Send{}
	case "sendGroup":
		evt = &SendGroup{}
	case "edit":
		evt = &Edit{}
	case "delete":
		evt = &Delete{}
	case "reply":
		evt = &Reply{}
	case "history":
		evt = &History{}
	case "typing":
		evt = &Typing{}
	case "online":
		evt = &Online{}
	case "offline":
		evt = &Offline{}
	case "seen":
		evt = &Seen{}
	case "relations":
		evt = &Relations{}
	case "sendFriendRequest":
		evt = &SendFriendRequest{}
	case "acceptFriendRequest":
		evt = &AcceptFriendRequest{}
	case "rejectFriendRequest":
		evt = &RejectFriendRequest{}
	case "withdrawFriendRequest":
		evt = &WithdrawFriendRequest{}
	case "removeFriend":
		evt = &RemoveFriend{}
	case "block":
		evt = &Block{}
	case "unblock":
		evt = &Unblock{}
	case "createGroup":
		evt = &CreateGroup{}
	case "renameGroup":
		evt = &RenameGroup{}
	case "updateGroupMembers":
		evt = &UpdateGroupMembers{}
	case "deleteGroup":
		evt = &DeleteGroup{}
	default:
		return nil, fmt.Errorf("%w: unknown event %q", errors.ErrValidation, env.Event)
	}

	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, evt); err != nil {
			return nil, fmt.Errorf("%w: malformed %s payload: %v", errors.ErrValidation, env.Event, err)
		}
	}
	if err := validate.Struct(evt); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return evt, nil
}
