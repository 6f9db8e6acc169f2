package unit

import (
	"encoding/json"
	"testing"

	"dm_chat_service/internal/chat/app"
	"dm_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func TestRelayOfferToOfflinePeerFails(t *testing.T) {
	registry := app.NewPresenceRegistry(newFakePresenceRepo())
	uc := app.NewSignalingUseCase(registry)

	err := uc.Relay(domain.SignalKindOffer, "alice", "bob", json.RawMessage(`{"sdp":"..."}`))
	assert.ErrorIs(t, err, domain.ErrPeerOffline)
}

func TestRelayNonOfferToOfflinePeerIsDropped(t *testing.T) {
	registry := app.NewPresenceRegistry(newFakePresenceRepo())
	uc := app.NewSignalingUseCase(registry)

	for _, kind := range []domain.SignalKind{domain.SignalKindAnswer, domain.SignalKindCandidate, domain.SignalKindEnd} {
		err := uc.Relay(kind, "alice", "bob", json.RawMessage(`{}`))
		assert.NoError(t, err, "kind %s must drop silently", kind)
	}
}

func TestRelayReachesEveryHandleUntouched(t *testing.T) {
	registry := app.NewPresenceRegistry(newFakePresenceRepo())
	uc := app.NewSignalingUseCase(registry)

	phone := newRecorderHandle("phone")
	laptop := newRecorderHandle("laptop")
	registry.Connect("bob", phone)
	registry.Connect("bob", laptop)

	payload := json.RawMessage(`{"sdp":"v=0 opaque blob"}`)
	err := uc.Relay(domain.SignalKindOffer, "alice", "bob", payload)
	assert.NoError(t, err)

	for _, h := range []*recorderHandle{phone, laptop} {
		resps := h.responses()
		assert.Len(t, resps, 1)
		assert.Equal(t, "signal_offer", resps[0].Action)
		assert.Equal(t, "alice", resps[0].Payload["from"])
		assert.Equal(t, payload, resps[0].Payload["payload"], "payload relayed byte for byte")
	}
}

func TestRelayDeadHandleDoesNotBlockOthers(t *testing.T) {
	registry := app.NewPresenceRegistry(newFakePresenceRepo())
	uc := app.NewSignalingUseCase(registry)

	dead := newRecorderHandle("dead")
	dead.fail = true
	alive := newRecorderHandle("alive")
	registry.Connect("bob", dead)
	registry.Connect("bob", alive)

	err := uc.Relay(domain.SignalKindCandidate, "alice", "bob", json.RawMessage(`{}`))
	assert.NoError(t, err)
	assert.Len(t, alive.responses(), 1)
}
