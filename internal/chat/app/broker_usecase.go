package app

import (
	"context"

	"dm_chat_service/internal/chat/domain"
	"dm_chat_service/internal/chat/repository"
	"dm_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// BrokerUseCase orchestrates a send: resolve the conversation, persist the
// message, update both summaries, then fan out to every live connection of
// both participants.
type BrokerUseCase struct {
	messageUC *MessageUseCase
	chatUC    *ChatListUseCase
	registry  *PresenceRegistry
	notify    repository.NotifyPubSub
}

// NewBrokerUseCase create BrokerUseCase
func NewBrokerUseCase(
	messageUC *MessageUseCase,
	chatUC *ChatListUseCase,
	registry *PresenceRegistry,
	notify repository.NotifyPubSub,
) *BrokerUseCase {
	return &BrokerUseCase{
		messageUC: messageUC,
		chatUC:    chatUC,
		registry:  registry,
		notify:    notify,
	}
}

// Send validates, persists and delivers one message. Persistence and
// summary updates complete before any delivery, so a delivered message is
// always already retrievable by a subsequent list.
func (uc *BrokerUseCase) Send(ctx context.Context, from, to, text, mediaRef string) (domain.Message, error) {
	if text == "" && mediaRef == "" {
		return domain.Message{}, domain.ErrInvalidMessage
	}
	if from == to {
		return domain.Message{}, domain.ErrInvalidMessage
	}

	key, err := domain.ConversationKey(from, to)
	if err != nil {
		return domain.Message{}, err
	}

	stored, err := uc.messageUC.Append(ctx, key, domain.Message{
		From:     from,
		To:       to,
		Text:     text,
		MediaRef: mediaRef,
		ReadBy:   []string{from},
	})
	if err != nil {
		return domain.Message{}, err
	}

	if err := uc.chatUC.OnMessageAppended(ctx, stored); err != nil {
		// roll the append back so the message list and the summaries
		// never disagree; nothing has been delivered yet
		if _, _, derr := uc.messageUC.Delete(ctx, key, stored.ID, from, true); derr != nil {
			logger.Log.Error("send rollback failed",
				zap.String("conversation", key), zap.String("message_id", stored.ID), zap.Error(derr))
		}
		return domain.Message{}, err
	}

	resp := domain.WSResponse{
		Action:  string(domain.NewMessage),
		Success: true,
		Payload: map[string]interface{}{
			"conversation_key": key,
			"message":          stored,
		},
	}
	// both sides, sender's other devices included
	uc.registry.DeliverTo(from, resp)
	uc.registry.DeliverTo(to, resp)

	// lightweight badge event for the recipient, separate from the full
	// payload so an unfocused client can update a counter without
	// re-fetching history
	if uc.notify != nil {
		err := uc.notify.Publish(repository.NotifyChannel(to), domain.NotifyPayload{
			ConversationKey: key,
			MessageID:       stored.ID,
			From:            from,
			CreatedAt:       stored.CreatedAt,
		})
		if err != nil {
			logger.Log.Warn("notify publish failed",
				zap.String("to", to), zap.Error(err))
		}
	}

	return stored, nil
}
