package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dm_chat_service/internal/chat/domain"
	"dm_chat_service/internal/chat/repository"
	"dm_chat_service/pkg/logger"
	"dm_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// wsHandle adapts one websocket connection to the registry Handle.
// Writes are serialized; gorilla-style conns allow one writer at a time.
type wsHandle struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSHandle(conn *websocket.Conn) *wsHandle {
	return &wsHandle{id: uuid.New().String(), conn: conn}
}

// ID handle identifier
func (h *wsHandle) ID() string { return h.id }

// Deliver writes the response frame to the connection.
func (h *wsHandle) Deliver(resp domain.WSResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn.WriteMessage(websocket.TextMessage, b)
}

// ChatWebsocketHandler owns every usecase a connection needs.
type ChatWebsocketHandler struct {
	broker    *BrokerUseCase
	messageUC *MessageUseCase
	chatUC    *ChatListUseCase
	signaling *SignalingUseCase
	registry  *PresenceRegistry
	notify    repository.NotifyPubSub
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	broker *BrokerUseCase,
	messageUC *MessageUseCase,
	chatUC *ChatListUseCase,
	signaling *SignalingUseCase,
	registry *PresenceRegistry,
	notify repository.NotifyPubSub,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		broker:    broker,
		messageUC: messageUC,
		chatUC:    chatUC,
		signaling: signaling,
		registry:  registry,
		notify:    notify,
	}
}

// HandleConnection is the entry point of one websocket connection. The
// identity was verified by the JWT middleware before the upgrade.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	identity, ok := conn.Locals(middlewares.TokenIdentity).(string)
	if !ok || identity == "" {
		logger.Log.Warn("websocket without identity, closing")
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected", zap.String("identity", identity))

	handle := newWSHandle(conn)
	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	h.registry.Connect(identity, handle)

	defer func() {
		ticker.Stop()
		logger.Log.Info("websocket close", zap.String("identity", identity))
		h.registry.Disconnect(ctx, identity, handle)
		conn.Close()
		cancel()
	}()

	// fiber handles close/ping/pong internally; the handlers below just
	// surface them for logging
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})
	conn.SetPongHandler(func(appData string) error {
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// badge notifications published for this identity
	if h.notify != nil {
		h.notify.Subscribe(ctxClose, repository.NotifyChannel(identity), func(resp domain.WSResponse) {
			if err := handle.Deliver(resp); err != nil {
				logger.Log.Errorf("notify deliver error:", err)
			}
		})
	}

	// keepalive ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("identity", identity))
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			h.sendError(handle, "unknown message type")
			continue
		}
		h.textMessageAction(ctx, handle, identity, message)
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, handle *wsHandle, identity string, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(handle, "malformed request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {
	case string(domain.Join):
		key, err := domain.ConversationKey(identity, req.Peer)
		if err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		msgs, err := h.messageUC.List(ctx, key, identity)
		if err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		resp.Success = true
		resp.Payload["conversation_key"] = key
		resp.Payload["messages"] = msgs

	case string(domain.SendMessage):
		stored, err := h.broker.Send(ctx, identity, req.Peer, req.Content, req.MediaRef)
		if err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		resp.Success = true
		resp.Payload["message"] = stored

	case string(domain.DeleteMessage):
		peer, err := domain.PeerOf(req.ConversationKey, identity)
		if err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		outcome, removed, err := h.messageUC.Delete(ctx, req.ConversationKey, req.MessageID, identity, req.ForEveryone)
		if err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		resp.Success = true
		resp.Payload["outcome"] = string(outcome)
		if err := h.chatUC.OnMessageDeleted(ctx, identity, peer, outcome, removed); err != nil {
			logger.Log.Error("unread compensation failed",
				zap.String("requester", identity), zap.Error(err))
		}
		h.pushDeleted(req.ConversationKey, req.MessageID, identity, peer, outcome)

	case string(domain.ReadMessage):
		peer, err := domain.PeerOf(req.ConversationKey, identity)
		if err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		changed, err := h.messageUC.MarkRead(ctx, req.ConversationKey, req.MessageID, identity)
		if err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		resp.Success = true
		resp.Payload["changed"] = changed
		if changed {
			if err := h.chatUC.OnMessagesRead(ctx, identity, peer, 1); err != nil {
				logger.Log.Error("unread decrement failed",
					zap.String("reader", identity), zap.Error(err))
			}
			h.registry.DeliverTo(peer, domain.WSResponse{
				Action:  string(domain.ReadReceipt),
				Success: true,
				Payload: map[string]interface{}{
					"conversation_key": req.ConversationKey,
					"message_id":       req.MessageID,
					"reader":           identity,
				},
			})
		}

	case string(domain.Typing):
		h.registry.DeliverTo(req.Peer, domain.WSResponse{
			Action:  string(domain.Typing),
			Success: true,
			Payload: map[string]interface{}{
				"from":      identity,
				"is_typing": req.IsTyping,
			},
		})
		resp.Success = true

	case string(domain.ListChats):
		chats, err := h.chatUC.ListFor(ctx, identity)
		if err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		for i := range chats {
			chats[i].Online = h.registry.IsOnline(chats[i].Peer)
			if !chats[i].Online {
				chats[i].LastSeen = h.registry.LastSeen(ctx, chats[i].Peer)
			}
		}
		resp.Success = true
		resp.Payload["chats"] = chats

	case string(domain.SetStatus):
		h.registry.SetStatus(identity, req.Status)
		resp.Success = true

	case string(domain.ClearChat):
		key, err := domain.ConversationKey(identity, req.Peer)
		if err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		if err := h.messageUC.Clear(ctx, key); err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		for _, owner := range []string{identity, req.Peer} {
			peer := req.Peer
			if owner == req.Peer {
				peer = identity
			}
			if err := h.chatUC.OnConversationCleared(ctx, owner, peer); err != nil {
				logger.Log.Error("summary drop failed",
					zap.String("owner", owner), zap.Error(err))
			}
		}
		resp.Success = true

	case string(domain.SignalOffer), string(domain.SignalAnswer),
		string(domain.SignalCandidate), string(domain.SignalEnd):
		kind := domain.SignalKind(req.Action[len("signal_"):])
		if err := h.signaling.Relay(kind, identity, req.Peer, req.Payload); err != nil {
			resp.Error = domain.OutcomeTag(err)
			break
		}
		resp.Success = true

	default:
		h.sendError(handle, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err",
			zap.String("identity", identity), zap.String("action", req.Action), zap.String("err", resp.Error))
	}
	if err := handle.Deliver(resp); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

// pushDeleted tells live viewers a message is gone. A hard delete reaches
// both participants; a hide reaches only the requester's other devices.
func (h *ChatWebsocketHandler) pushDeleted(key, messageID, requester, peer string, outcome domain.DeleteOutcome) {
	if outcome == domain.DeleteNotFound {
		return
	}
	event := domain.WSResponse{
		Action:  string(domain.MessageDeleted),
		Success: true,
		Payload: map[string]interface{}{
			"conversation_key": key,
			"message_id":       messageID,
		},
	}
	h.registry.DeliverTo(requester, event)
	if outcome == domain.DeleteDone {
		h.registry.DeliverTo(peer, event)
	}
}

func (h *ChatWebsocketHandler) sendError(handle *wsHandle, errorMsg string) {
	resp := domain.WSResponse{
		Action:  "error",
		Success: false,
		Error:   errorMsg,
	}
	if err := handle.Deliver(resp); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}
