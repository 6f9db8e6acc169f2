package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// PresenceDoc last-seen timestamp of one identity. Only meaningful while
// the identity is offline; live handle state is never persisted.
type PresenceDoc struct {
	Identity string `bson:"_id"`
	LastSeen int64  `bson:"last_seen"`
}

// PresenceRepository presence-last-seen-by-identity collection.
type PresenceRepository interface {
	SetLastSeen(ctx context.Context, identity string, ts int64) error
	LastSeen(ctx context.Context, identity string) (int64, bool, error)
}

type presenceRepository struct {
	store *docStore[PresenceDoc]
}

// NewMongoPresenceRepository create a PresenceRepository
func NewMongoPresenceRepository(db *mongo.Database) PresenceRepository {
	coll := db.Collection("presence")
	return &presenceRepository{
		store: newDocStore(coll, func(identity string) PresenceDoc {
			return PresenceDoc{Identity: identity}
		}),
	}
}

func (r *presenceRepository) SetLastSeen(ctx context.Context, identity string, ts int64) error {
	_, err := r.store.mutate(ctx, identity, func(doc *PresenceDoc) error {
		doc.LastSeen = ts
		return nil
	})
	return err
}

func (r *presenceRepository) LastSeen(ctx context.Context, identity string) (int64, bool, error) {
	doc, found, err := r.store.find(ctx, identity)
	if err != nil || !found {
		return 0, false, err
	}
	return doc.LastSeen, true, nil
}
