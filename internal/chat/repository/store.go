package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dm_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// keyedMutex serializes mutations that target the same document key.
// Unrelated keys never contend with each other.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyLock{}}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// docStore holds one document per logical key in a mongo collection and
// serializes read-modify-write cycles per key. The unsynchronized
// read-decode-mutate-write pattern loses updates under concurrent requests;
// holding the key lock across the whole cycle is what prevents that.
type docStore[T any] struct {
	coll  *mongo.Collection
	locks *keyedMutex
	empty func(key string) T
}

func newDocStore[T any](coll *mongo.Collection, empty func(key string) T) *docStore[T] {
	return &docStore[T]{
		coll:  coll,
		locks: newKeyedMutex(),
		empty: empty,
	}
}

// find loads the document for key, or the collection's empty default when
// no document exists yet. The bool reports whether a document was present.
func (s *docStore[T]) find(ctx context.Context, key string) (T, bool, error) {
	var doc T
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return s.empty(key), false, nil
		}
		return s.empty(key), false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return doc, true, nil
}

// mutate applies fn to the document under the key lock and replaces the
// stored form. The write must be acknowledged before mutate returns; on
// failure the modified document is discarded so no partial success is
// visible to a later read.
func (s *docStore[T]) mutate(ctx context.Context, key string, fn func(doc *T) error) (T, error) {
	unlock := s.locks.lock(key)
	defer unlock()

	doc, _, err := s.find(ctx, key)
	if err != nil {
		return s.empty(key), err
	}
	if err := fn(&doc); err != nil {
		return s.empty(key), err
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return s.empty(key), fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return doc, nil
}
