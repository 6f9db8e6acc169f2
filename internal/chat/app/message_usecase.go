package app

import (
	"context"
	"time"

	"dm_chat_service/internal/chat/domain"
	"dm_chat_service/internal/chat/repository"
	"dm_chat_service/pkg"

	"github.com/google/uuid"
)

// MessageUseCase appends, lists and mutates the messages of a conversation.
// Content validation belongs to the broker; this layer never rejects on
// content.
type MessageUseCase struct {
	convRepo repository.ConversationRepository
}

// NewMessageUseCase create MessageUseCase
func NewMessageUseCase(convRepo repository.ConversationRepository) *MessageUseCase {
	return &MessageUseCase{convRepo: convRepo}
}

// Append stores the message at the end of the conversation, assigning the
// id and timestamp when absent. Assignment happens inside the conversation's
// mutate lock: UUIDv7 ids are time-ordered and strictly increasing within
// the process, and drawing them under the lock ties id order to insertion
// order even when appends race on the same key.
func (uc *MessageUseCase) Append(ctx context.Context, key string, msg domain.Message) (domain.Message, error) {
	var stored domain.Message
	_, err := uc.convRepo.Mutate(ctx, key, func(doc *repository.ConversationDoc) error {
		if msg.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			msg.ID = id.String()
		}
		if msg.CreatedAt == 0 {
			msg.CreatedAt = time.Now().UnixMilli()
		}
		doc.Messages = append(doc.Messages, msg)
		stored = msg
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return stored, nil
}

// List returns the conversation's messages in insertion order as visible
// to the viewer: hard-deleted messages are omitted for everyone, and
// messages the viewer hid are omitted for the viewer only.
func (uc *MessageUseCase) List(ctx context.Context, key, viewer string) ([]domain.Message, error) {
	doc, err := uc.convRepo.Find(ctx, key)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Message, 0, len(doc.Messages))
	for _, msg := range doc.Messages {
		if msg.VisibleTo(viewer) {
			out = append(out, msg)
		}
	}
	return out, nil
}

// MarkRead idempotently adds the reader to the message's read set. Returns
// whether a change occurred; an absent message or a repeated read is a
// no-op reporting false, so callers can skip redundant receipt broadcasts.
func (uc *MessageUseCase) MarkRead(ctx context.Context, key, messageID, reader string) (bool, error) {
	changed := false
	_, err := uc.convRepo.Mutate(ctx, key, func(doc *repository.ConversationDoc) error {
		for i, msg := range doc.Messages {
			if msg.ID != messageID {
				continue
			}
			if !pkg.Contains(msg.ReadBy, reader) {
				doc.Messages[i].ReadBy = append(doc.Messages[i].ReadBy, reader)
				changed = true
			}
			break
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// Delete applies the deletion policy: for_everyone is honored only for the
// author (hard delete, removed from the stored list); anyone else's
// for_everyone request silently downgrades to hiding the message from the
// requester's own view. You can only un-send your own messages, but you
// can always hide any message from yourself. The returned message is the
// pre-delete state so callers can compensate unread counts.
func (uc *MessageUseCase) Delete(ctx context.Context, key, messageID, requester string, forEveryone bool) (domain.DeleteOutcome, domain.Message, error) {
	outcome := domain.DeleteNotFound
	var target domain.Message
	_, err := uc.convRepo.Mutate(ctx, key, func(doc *repository.ConversationDoc) error {
		for i, msg := range doc.Messages {
			if msg.ID != messageID {
				continue
			}
			target = msg
			if forEveryone && msg.From == requester {
				doc.Messages = append(doc.Messages[:i], doc.Messages[i+1:]...)
				outcome = domain.DeleteDone
				return nil
			}
			if !pkg.Contains(msg.DeletedFor, requester) {
				doc.Messages[i].DeletedFor = append(doc.Messages[i].DeletedFor, requester)
			}
			outcome = domain.DeleteHidden
			return nil
		}
		return nil
	})
	if err != nil {
		return domain.DeleteNotFound, domain.Message{}, err
	}
	return outcome, target, nil
}

// Clear removes every message of the conversation (clear-chat bulk op).
func (uc *MessageUseCase) Clear(ctx context.Context, key string) error {
	_, err := uc.convRepo.Mutate(ctx, key, func(doc *repository.ConversationDoc) error {
		doc.Messages = nil
		return nil
	})
	return err
}
