package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"dm_chat_service/internal/chat/domain"
	"dm_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// NotifyChannel returns the per-identity badge notification channel.
func NotifyChannel(identity string) string {
	return "chat:user:" + identity
}

// NotifyPubSub publishes and subscribes lightweight new-message
// notifications on a per-identity channel.
type NotifyPubSub interface {
	Publish(channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler func(resp domain.WSResponse)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish serializes message and publishes it to the channel.
func (r *RedisPubSub) Publish(channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe listens on the channel until ctx is cancelled, invoking handler
// with a notify_message response for every published payload.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(resp domain.WSResponse)) error {
	sub := r.client.Subscribe(r.ctx, channel)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					sub.Close()
					return
				}

				var payload domain.NotifyPayload
				if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
					logger.Log.Errorf("notify unmarshal error:", err)
					continue
				}

				resp := domain.WSResponse{
					Action:  string(domain.NotifyMessage),
					Success: true,
					Payload: map[string]interface{}{
						"conversation_key": payload.ConversationKey,
						"message_id":       payload.MessageID,
						"from":             payload.From,
						"created_at":       payload.CreatedAt,
					},
				}
				handler(resp)
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				sub.Close()
				return
			}
		}
	}()
	return nil
}
