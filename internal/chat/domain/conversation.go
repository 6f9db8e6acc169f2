package domain

import "strings"

// conversationSep joins the sorted identity pair. Identities are usernames
// issued by the (external) account layer, which never contain '|'.
const conversationSep = "|"

// ConversationKey derives the stable key for the unordered identity pair,
// so ConversationKey(a, b) == ConversationKey(b, a).
func ConversationKey(a, b string) (string, error) {
	if a == "" || b == "" || a == b {
		return "", ErrInvalidConversation
	}
	if a > b {
		a, b = b, a
	}
	return a + conversationSep + b, nil
}

// ConversationPeers splits a conversation key back into its two identities.
func ConversationPeers(key string) (string, string, error) {
	parts := strings.SplitN(key, conversationSep, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
		return "", "", ErrInvalidConversation
	}
	return parts[0], parts[1], nil
}

// PeerOf returns the other participant of the conversation, or an error
// when identity is not a participant at all.
func PeerOf(key, identity string) (string, error) {
	a, b, err := ConversationPeers(key)
	if err != nil {
		return "", err
	}
	switch identity {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return "", ErrInvalidConversation
}
