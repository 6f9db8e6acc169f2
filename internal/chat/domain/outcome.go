package domain

import "errors"

// Typed outcomes returned across component boundaries. The transport maps
// each to a stable wire tag so clients can branch on the tag, not prose.
var (
	// ErrInvalidConversation self pair or malformed conversation key
	ErrInvalidConversation = errors.New("invalid_conversation")
	// ErrInvalidMessage both text and media absent, or self send
	ErrInvalidMessage = errors.New("invalid_message")
	// ErrNotFound unknown message or conversation
	ErrNotFound = errors.New("not_found")
	// ErrPeerOffline signaling offer targeting a peer with no live connection
	ErrPeerOffline = errors.New("peer_offline")
	// ErrPersistence durable write did not complete
	ErrPersistence = errors.New("persistence_failure")
)

// DeleteOutcome result of a delete request.
type DeleteOutcome string

const (
	// DeleteDone message removed for everyone (author hard delete)
	DeleteDone DeleteOutcome = "deleted"
	// DeleteHidden message hidden from the requester only (soft delete,
	// including the silent downgrade of a non-author for-everyone request)
	DeleteHidden DeleteOutcome = "hidden"
	// DeleteNotFound message not present in the conversation
	DeleteNotFound DeleteOutcome = "not_found"
)

// OutcomeTag maps a component error to its stable wire tag.
func OutcomeTag(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConversation):
		return "invalid_conversation"
	case errors.Is(err, ErrInvalidMessage):
		return "invalid_message"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPeerOffline):
		return "peer_offline"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	}
	return "internal_error"
}
