package repository

import (
	"context"

	"dm_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/mongo"
)

// SummaryDoc every chat summary owned by one identity, keyed by peer.
type SummaryDoc struct {
	Owner string                        `bson:"_id"`
	Chats map[string]domain.ChatSummary `bson:"chats"`
}

// SummaryRepository chat-summaries-by-owner collection with a serialized
// per-key read-modify-write.
type SummaryRepository interface {
	Find(ctx context.Context, owner string) (SummaryDoc, error)
	Mutate(ctx context.Context, owner string, fn func(doc *SummaryDoc) error) (SummaryDoc, error)
}

type summaryRepository struct {
	store *docStore[SummaryDoc]
}

// NewMongoSummaryRepository create a SummaryRepository
func NewMongoSummaryRepository(db *mongo.Database) SummaryRepository {
	coll := db.Collection("chat_summaries")
	return &summaryRepository{
		store: newDocStore(coll, func(owner string) SummaryDoc {
			return SummaryDoc{Owner: owner, Chats: map[string]domain.ChatSummary{}}
		}),
	}
}

func (r *summaryRepository) Find(ctx context.Context, owner string) (SummaryDoc, error) {
	doc, _, err := r.store.find(ctx, owner)
	if doc.Chats == nil {
		doc.Chats = map[string]domain.ChatSummary{}
	}
	return doc, err
}

func (r *summaryRepository) Mutate(ctx context.Context, owner string, fn func(doc *SummaryDoc) error) (SummaryDoc, error) {
	return r.store.mutate(ctx, owner, func(doc *SummaryDoc) error {
		if doc.Chats == nil {
			doc.Chats = map[string]domain.ChatSummary{}
		}
		return fn(doc)
	})
}
