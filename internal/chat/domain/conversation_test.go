package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationKeySymmetric(t *testing.T) {
	k1, err := ConversationKey("alice", "bob")
	assert.NoError(t, err)
	k2, err := ConversationKey("bob", "alice")
	assert.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Equal(t, "alice|bob", k1)
}

func TestConversationKeyRejectsInvalidPairs(t *testing.T) {
	_, err := ConversationKey("alice", "alice")
	assert.ErrorIs(t, err, ErrInvalidConversation)

	_, err = ConversationKey("", "bob")
	assert.ErrorIs(t, err, ErrInvalidConversation)

	_, err = ConversationKey("alice", "")
	assert.ErrorIs(t, err, ErrInvalidConversation)
}

func TestConversationKeyDistinctPairs(t *testing.T) {
	k1, _ := ConversationKey("alice", "bob")
	k2, _ := ConversationKey("alice", "carol")
	k3, _ := ConversationKey("bob", "carol")
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k2, k3)
}

func TestConversationPeersRoundTrip(t *testing.T) {
	key, _ := ConversationKey("bob", "alice")
	a, b, err := ConversationPeers(key)
	assert.NoError(t, err)
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	_, _, err = ConversationPeers("no-separator")
	assert.ErrorIs(t, err, ErrInvalidConversation)
}

func TestPeerOf(t *testing.T) {
	key, _ := ConversationKey("alice", "bob")

	peer, err := PeerOf(key, "alice")
	assert.NoError(t, err)
	assert.Equal(t, "bob", peer)

	peer, err = PeerOf(key, "bob")
	assert.NoError(t, err)
	assert.Equal(t, "alice", peer)

	_, err = PeerOf(key, "mallory")
	assert.ErrorIs(t, err, ErrInvalidConversation)
}

func TestMessageVisibleTo(t *testing.T) {
	msg := Message{ID: "m1", From: "alice", To: "bob", Text: "hi"}
	assert.True(t, msg.VisibleTo("alice"))
	assert.True(t, msg.VisibleTo("bob"))

	msg.DeletedFor = []string{"bob"}
	assert.True(t, msg.VisibleTo("alice"))
	assert.False(t, msg.VisibleTo("bob"))

	msg.DeletedForEveryone = true
	assert.False(t, msg.VisibleTo("alice"))
	assert.False(t, msg.VisibleTo("bob"))
}

func TestMessageSnapshot(t *testing.T) {
	msg := Message{From: "alice", To: "bob", Text: "see this", MediaRef: "media/x/pic.png", CreatedAt: 42}
	snap := msg.Snapshot()
	assert.Equal(t, "see this", snap.Text)
	assert.True(t, snap.HasMedia)
	assert.Equal(t, "alice", snap.From)
	assert.Equal(t, int64(42), snap.CreatedAt)

	snap = Message{From: "bob", Text: "plain"}.Snapshot()
	assert.False(t, snap.HasMedia)
}

func TestOutcomeTag(t *testing.T) {
	assert.Equal(t, "invalid_conversation", OutcomeTag(ErrInvalidConversation))
	assert.Equal(t, "invalid_message", OutcomeTag(ErrInvalidMessage))
	assert.Equal(t, "not_found", OutcomeTag(ErrNotFound))
	assert.Equal(t, "peer_offline", OutcomeTag(ErrPeerOffline))
	assert.Equal(t, "persistence_failure", OutcomeTag(ErrPersistence))
	assert.Equal(t, "internal_error", OutcomeTag(assert.AnError))
}
