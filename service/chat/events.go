package chat

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// EventType enumerates every frame the gateway understands. The set is
// closed: dispatch is an exhaustive switch, never a string-keyed handler
// table.
type EventType string

// Inbound (client -> gateway).
const (
	EvtAuth             EventType = "auth"
	EvtSendMessage      EventType = "sendMessage"
	EvtTyping           EventType = "typing"
	EvtMessageDelivered EventType = "messageDelivered"
)

// Outbound (gateway -> client). EvtTyping is reused on the way out.
const (
	EvtAuthAck               EventType = "authAck"
	EvtMessage               EventType = "message"
	EvtPresence              EventType = "presence"
	EvtReadReceipt           EventType = "readReceipt"
	EvtPartnerOffline        EventType = "partnerOffline"
	EvtFriendRequest         EventType = "friendRequest"
	EvtFriendRequestAccepted EventType = "friendRequestAccepted"
	EvtChatRequest           EventType = "chatRequest"
	EvtError                 EventType = "error"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Envelope is the wire frame: {"type": "...", "data": {...}}.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func ParseEnvelope(raw []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, errors.Wrap(err, "unmarshal envelope")
	}
	if env.Type == "" {
		return nil, errors.New("envelope missing type")
	}
	return env, nil
}

// UserRef identifies a user in outbound payloads.
type UserRef struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Inbound payloads.

type AuthPayload struct {
	Token string `json:"token"`
}

type SendMessagePayload struct {
	ToUserID string `json:"toUserId"`
	Text     string `json:"text"`
}

type TypingPayload struct {
	ToUserID string `json:"toUserId"`
}

type MessageDeliveredPayload struct {
	FromUserID string `json:"fromUserId"`
}

// Event is an outbound frame before serialization.
type Event struct {
	Type EventType
	Data any
}

func (e *Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s payload", e.Type)
	}
	return json.Marshal(&Envelope{Type: e.Type, Data: data})
}

// Outbound payloads and builders.

type MessagePayload struct {
	From      UserRef   `json:"from"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type PresencePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

type TypingFromPayload struct {
	From UserRef `json:"from"`
}

type ReadReceiptPayload struct {
	By UserRef `json:"by"`
}

type PartnerOfflinePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type AuthAckPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type FriendRequestPayload struct {
	From UserRef `json:"from"`
	ID   string  `json:"id"`
}

type FriendRequestAcceptedPayload struct {
	From UserRef `json:"from"`
}

type ChatRequestPayload struct {
	From UserRef `json:"from"`
}

type ErrorPayload struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func NewMessageEvent(from UserRef, text string, createdAt time.Time) *Event {
	return &Event{Type: EvtMessage, Data: &MessagePayload{From: from, Text: text, CreatedAt: createdAt}}
}

func NewPresenceEvent(user UserRef, status string) *Event {
	return &Event{Type: EvtPresence, Data: &PresencePayload{UserID: user.UserID, Username: user.Username, Status: status}}
}

func NewTypingEvent(from UserRef) *Event {
	return &Event{Type: EvtTyping, Data: &TypingFromPayload{From: from}}
}

func NewReadReceiptEvent(by UserRef) *Event {
	return &Event{Type: EvtReadReceipt, Data: &ReadReceiptPayload{By: by}}
}

func NewPartnerOfflineEvent(user UserRef, message string) *Event {
	return &Event{Type: EvtPartnerOffline, Data: &PartnerOfflinePayload{UserID: user.UserID, Username: user.Username, Message: message}}
}

func NewAuthAckEvent(user UserRef) *Event {
	return &Event{Type: EvtAuthAck, Data: &AuthAckPayload{UserID: user.UserID, Username: user.Username}}
}

func NewFriendRequestEvent(from UserRef, id string) *Event {
	return &Event{Type: EvtFriendRequest, Data: &FriendRequestPayload{From: from, ID: id}}
}

func NewFriendRequestAcceptedEvent(from UserRef) *Event {
	return &Event{Type: EvtFriendRequestAccepted, Data: &FriendRequestAcceptedPayload{From: from}}
}

func NewChatRequestEvent(from UserRef) *Event {
	return &Event{Type: EvtChatRequest, Data: &ChatRequestPayload{From: from}}
}

func NewErrorEvent(code int, msg string) *Event {
	return &Event{Type: EvtError, Data: &ErrorPayload{Code: code, Msg: msg}}
}
