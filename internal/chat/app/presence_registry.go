package app

import (
	"context"
	"sync"
	"time"

	"dm_chat_service/internal/chat/domain"
	"dm_chat_service/internal/chat/repository"
	"dm_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Handle is the write side of one live connection. One identity may hold
// several handles at once (multi-device).
type Handle interface {
	ID() string
	Deliver(resp domain.WSResponse) error
}

// PresenceRegistry tracks which identities currently hold live connections.
// Constructed once per process and injected into connection handlers; the
// handle map is volatile, so after a restart everyone is offline until
// they reconnect.
type PresenceRegistry struct {
	mu    sync.Mutex
	conns map[string]map[string]Handle

	presenceRepo repository.PresenceRepository
}

// NewPresenceRegistry create PresenceRegistry
func NewPresenceRegistry(presenceRepo repository.PresenceRepository) *PresenceRegistry {
	return &PresenceRegistry{
		conns:        map[string]map[string]Handle{},
		presenceRepo: presenceRepo,
	}
}

// Connect adds the handle to the identity's set. The first handle
// broadcasts an online event to every other connected identity.
func (r *PresenceRegistry) Connect(identity string, h Handle) {
	r.mu.Lock()
	set, ok := r.conns[identity]
	if !ok {
		set = map[string]Handle{}
		r.conns[identity] = set
	}
	first := len(set) == 0
	set[h.ID()] = h
	r.mu.Unlock()

	if first {
		r.broadcastExcept(identity, domain.WSResponse{
			Action:  string(domain.PresenceEvent),
			Success: true,
			Payload: map[string]interface{}{
				"identity": identity,
				"state":    "online",
			},
		})
	}
}

// Disconnect removes the handle. When the set empties the last-seen
// timestamp is recorded and an offline event broadcast exactly once.
func (r *PresenceRegistry) Disconnect(ctx context.Context, identity string, h Handle) {
	r.mu.Lock()
	set, ok := r.conns[identity]
	if ok {
		delete(set, h.ID())
	}
	last := ok && len(set) == 0
	if last {
		delete(r.conns, identity)
	}
	r.mu.Unlock()

	if !last {
		return
	}

	ts := time.Now().UnixMilli()
	if err := r.presenceRepo.SetLastSeen(ctx, identity, ts); err != nil {
		logger.Log.Error("record last seen failed", zap.String("identity", identity), zap.Error(err))
	}
	r.broadcastExcept(identity, domain.WSResponse{
		Action:  string(domain.PresenceEvent),
		Success: true,
		Payload: map[string]interface{}{
			"identity":  identity,
			"state":     "offline",
			"last_seen": ts,
		},
	})
}

// IsOnline reports whether the identity holds at least one live handle.
func (r *PresenceRegistry) IsOnline(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[identity]) > 0
}

// HandlesOf returns a snapshot of the identity's live handles. An empty
// result is not an error, it just means nothing to deliver right now.
func (r *PresenceRegistry) HandlesOf(identity string) []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle, 0, len(r.conns[identity]))
	for _, h := range r.conns[identity] {
		out = append(out, h)
	}
	return out
}

// SetStatus rebroadcasts an identity-chosen status. Never persisted.
func (r *PresenceRegistry) SetStatus(identity, status string) {
	r.broadcastExcept(identity, domain.WSResponse{
		Action:  string(domain.PresenceEvent),
		Success: true,
		Payload: map[string]interface{}{
			"identity": identity,
			"state":    "status",
			"status":   status,
		},
	})
}

// LastSeen reads the persisted last-seen timestamp for an offline identity.
func (r *PresenceRegistry) LastSeen(ctx context.Context, identity string) int64 {
	ts, _, err := r.presenceRepo.LastSeen(ctx, identity)
	if err != nil {
		logger.Log.Error("read last seen failed", zap.String("identity", identity), zap.Error(err))
	}
	return ts
}

// DeliverTo delivers resp to every live handle of the identity, best
// effort. A handle whose write fails is stale and gets reaped. Returns the
// number of successful deliveries.
func (r *PresenceRegistry) DeliverTo(identity string, resp domain.WSResponse) int {
	delivered := 0
	for _, h := range r.HandlesOf(identity) {
		if err := h.Deliver(resp); err != nil {
			logger.Log.Warn("stale handle reaped",
				zap.String("identity", identity), zap.String("handle", h.ID()))
			r.reap(identity, h.ID())
			continue
		}
		delivered++
	}
	return delivered
}

func (r *PresenceRegistry) reap(identity, handleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.conns[identity]; ok {
		delete(set, handleID)
		if len(set) == 0 {
			delete(r.conns, identity)
		}
	}
}

// broadcastExcept delivers resp to every connected identity other than the
// originator. Each delivery is independent and best-effort.
func (r *PresenceRegistry) broadcastExcept(identity string, resp domain.WSResponse) {
	r.mu.Lock()
	targets := make([]string, 0, len(r.conns))
	for id := range r.conns {
		if id != identity {
			targets = append(targets, id)
		}
	}
	r.mu.Unlock()

	for _, id := range targets {
		r.DeliverTo(id, resp)
	}
}
