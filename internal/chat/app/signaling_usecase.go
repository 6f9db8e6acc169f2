package app

import (
	"encoding/json"

	"dm_chat_service/internal/chat/domain"
)

// SignalingUseCase relays opaque call-signaling payloads between two
// identified peers. Nothing is inspected, nothing is persisted.
type SignalingUseCase struct {
	registry *PresenceRegistry
}

// NewSignalingUseCase create SignalingUseCase
func NewSignalingUseCase(registry *PresenceRegistry) *SignalingUseCase {
	return &SignalingUseCase{registry: registry}
}

// Relay forwards the payload to every live handle of the peer. An offline
// peer fails an offer with ErrPeerOffline; answer/candidate/end events are
// silently dropped since the call is already moot.
func (uc *SignalingUseCase) Relay(kind domain.SignalKind, from, to string, payload json.RawMessage) error {
	handles := uc.registry.HandlesOf(to)
	if len(handles) == 0 {
		if kind == domain.SignalKindOffer {
			return domain.ErrPeerOffline
		}
		return nil
	}

	resp := domain.WSResponse{
		Action:  "signal_" + string(kind),
		Success: true,
		Payload: map[string]interface{}{
			"from":    from,
			"payload": payload,
		},
	}
	for _, h := range handles {
		// best effort per handle, a dead one must not block the rest
		_ = h.Deliver(resp)
	}
	return nil
}
