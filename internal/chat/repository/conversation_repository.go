package repository

import (
	"context"

	"dm_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/mongo"
)

// ConversationDoc the stored message list of one conversation.
type ConversationDoc struct {
	Key      string           `bson:"_id"`
	Messages []domain.Message `bson:"messages"`
}

// ConversationRepository messages-by-conversation collection with a
// serialized per-key read-modify-write.
type ConversationRepository interface {
	Find(ctx context.Context, key string) (ConversationDoc, error)
	Mutate(ctx context.Context, key string, fn func(doc *ConversationDoc) error) (ConversationDoc, error)
}

type conversationRepository struct {
	store *docStore[ConversationDoc]
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	coll := db.Collection("conversations")
	return &conversationRepository{
		store: newDocStore(coll, func(key string) ConversationDoc {
			return ConversationDoc{Key: key}
		}),
	}
}

func (r *conversationRepository) Find(ctx context.Context, key string) (ConversationDoc, error) {
	doc, _, err := r.store.find(ctx, key)
	return doc, err
}

func (r *conversationRepository) Mutate(ctx context.Context, key string, fn func(doc *ConversationDoc) error) (ConversationDoc, error) {
	return r.store.mutate(ctx, key, fn)
}
