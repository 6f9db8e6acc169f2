package domain

import "encoding/json"

// Action websocket request action
type Action string

const (
	// Join websocket action join
	Join Action = "join"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// DeleteMessage websocket action delete_message
	DeleteMessage Action = "delete_message"
	// ReadMessage websocket action read_message
	ReadMessage Action = "read_message"
	// Typing websocket action typing
	Typing Action = "typing"
	// ListChats websocket action list_chats
	ListChats Action = "list_chats"
	// SetStatus websocket action set_status
	SetStatus Action = "set_status"
	// ClearChat websocket action clear_chat
	ClearChat Action = "clear_chat"

	// SignalOffer websocket action signal_offer
	SignalOffer Action = "signal_offer"
	// SignalAnswer websocket action signal_answer
	SignalAnswer Action = "signal_answer"
	// SignalCandidate websocket action signal_candidate
	SignalCandidate Action = "signal_candidate"
	// SignalEnd websocket action signal_end
	SignalEnd Action = "signal_end"

	// NewMessage server push: full stored message to both participants
	NewMessage Action = "new_message"
	// NotifyMessage server push: lightweight badge event to the recipient
	NotifyMessage Action = "notify_message"
	// ReadReceipt server push: a message was read by the peer
	ReadReceipt Action = "read_receipt"
	// MessageDeleted server push: a message is gone from the conversation
	MessageDeleted Action = "message_deleted"
	// PresenceEvent server push: online / offline / status change
	PresenceEvent Action = "presence"
)

// SignalKind call-signaling payload kind relayed between two peers.
type SignalKind string

const (
	// SignalKindOffer call offer
	SignalKindOffer SignalKind = "offer"
	// SignalKindAnswer call answer
	SignalKindAnswer SignalKind = "answer"
	// SignalKindCandidate ICE candidate
	SignalKindCandidate SignalKind = "candidate"
	// SignalKindEnd call teardown
	SignalKindEnd SignalKind = "end"
)

// WSRequest websocket Request
type WSRequest struct {
	Action          string          `json:"action"`
	Peer            string          `json:"peer,omitempty"`
	Content         string          `json:"content,omitempty"`
	MediaRef        string          `json:"media_ref,omitempty"`
	ConversationKey string          `json:"conversation_key,omitempty"`
	MessageID       string          `json:"message_id,omitempty"`
	ForEveryone     bool            `json:"for_everyone,omitempty"`
	IsTyping        bool            `json:"is_typing,omitempty"`
	Status          string          `json:"status,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
