package domain

import "dm_chat_service/pkg"

// Message a single direct message inside a conversation.
// Messages are appended once and then mutated in place by read-receipt
// and delete operations; they never move between conversations.
type Message struct {
	ID                 string   `bson:"id" json:"id"`
	From               string   `bson:"from" json:"from"`
	To                 string   `bson:"to" json:"to"`
	Text               string   `bson:"text,omitempty" json:"text,omitempty"`
	MediaRef           string   `bson:"media_ref,omitempty" json:"media_ref,omitempty"`
	CreatedAt          int64    `bson:"created_at" json:"created_at"`
	ReadBy             []string `bson:"read_by,omitempty" json:"read_by,omitempty"`
	DeletedFor         []string `bson:"deleted_for,omitempty" json:"-"`
	DeletedForEveryone bool     `bson:"deleted_for_everyone,omitempty" json:"-"`
}

// VisibleTo reports whether the viewer may see this message.
// The same filter guards history reads and live delivery, so a message
// hidden from a viewer can never reappear through a broadcast replay.
func (m Message) VisibleTo(viewer string) bool {
	if m.DeletedForEveryone {
		return false
	}
	return !pkg.Contains(m.DeletedFor, viewer)
}

// Snapshot returns the denormalized last-message view stored in summaries.
func (m Message) Snapshot() LastMessage {
	return LastMessage{
		Text:      m.Text,
		HasMedia:  m.MediaRef != "",
		From:      m.From,
		CreatedAt: m.CreatedAt,
	}
}

// LastMessage denormalized snapshot of a conversation's newest message.
type LastMessage struct {
	Text      string `bson:"text,omitempty" json:"text,omitempty"`
	HasMedia  bool   `bson:"has_media,omitempty" json:"has_media,omitempty"`
	From      string `bson:"from" json:"from"`
	CreatedAt int64  `bson:"created_at" json:"created_at"`
}

// ChatSummary per-owner view of one conversation, used for listing and badging.
// Online and LastSeen are filled from the presence registry at read time.
type ChatSummary struct {
	Peer        string      `bson:"peer" json:"peer"`
	LastMessage LastMessage `bson:"last_message" json:"last_message"`
	UnreadCount int         `bson:"unread_count" json:"unread_count"`

	Online   bool  `bson:"-" json:"online"`
	LastSeen int64 `bson:"-" json:"last_seen,omitempty"`
}

// NotifyPayload lightweight badge event published to the recipient,
// distinct from the full message payload.
type NotifyPayload struct {
	ConversationKey string `json:"conversation_key"`
	MessageID       string `json:"message_id"`
	From            string `json:"from"`
	CreatedAt       int64  `json:"created_at"`
}
