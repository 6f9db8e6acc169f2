package app

import (
	"context"
	"sort"

	"dm_chat_service/internal/chat/domain"
	"dm_chat_service/internal/chat/repository"
	"dm_chat_service/pkg"
	"dm_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// ChatListUseCase maintains the denormalized per-owner chat summaries.
// Unread counts are kept in sync incrementally, never by rescanning the
// conversation.
type ChatListUseCase struct {
	sumRepo repository.SummaryRepository
}

// NewChatListUseCase create ChatListUseCase
func NewChatListUseCase(sumRepo repository.SummaryRepository) *ChatListUseCase {
	return &ChatListUseCase{sumRepo: sumRepo}
}

// OnMessageAppended upserts both participants' summaries with the message
// snapshot. Only the recipient's unread count grows. When the recipient's
// write fails the sender's entry is restored to its prior state, so the
// pair is never left half-updated.
func (uc *ChatListUseCase) OnMessageAppended(ctx context.Context, msg domain.Message) error {
	var prev domain.ChatSummary
	var hadPrev bool

	_, err := uc.sumRepo.Mutate(ctx, msg.From, func(doc *repository.SummaryDoc) error {
		prev, hadPrev = doc.Chats[msg.To]
		s := doc.Chats[msg.To]
		s.Peer = msg.To
		s.LastMessage = msg.Snapshot()
		doc.Chats[msg.To] = s
		return nil
	})
	if err != nil {
		return err
	}

	_, err = uc.sumRepo.Mutate(ctx, msg.To, func(doc *repository.SummaryDoc) error {
		s := doc.Chats[msg.From]
		s.Peer = msg.From
		s.LastMessage = msg.Snapshot()
		s.UnreadCount++
		doc.Chats[msg.From] = s
		return nil
	})
	if err == nil {
		return nil
	}

	if _, rerr := uc.sumRepo.Mutate(ctx, msg.From, func(doc *repository.SummaryDoc) error {
		if hadPrev {
			doc.Chats[msg.To] = prev
		} else {
			delete(doc.Chats, msg.To)
		}
		return nil
	}); rerr != nil {
		logger.Log.Error("summary restore failed",
			zap.String("owner", msg.From), zap.Error(rerr))
	}
	return err
}

// OnMessageDeleted compensates unread counts when a still-unread message
// leaves an owner's view. A hard delete credits the recipient; a hide
// credits the requester when hiding a peer-authored unread message.
func (uc *ChatListUseCase) OnMessageDeleted(ctx context.Context, requester, peer string, outcome domain.DeleteOutcome, removed domain.Message) error {
	switch outcome {
	case domain.DeleteDone:
		if !pkg.Contains(removed.ReadBy, peer) {
			return uc.OnMessagesRead(ctx, peer, requester, 1)
		}
	case domain.DeleteHidden:
		if removed.From != requester && !pkg.Contains(removed.ReadBy, requester) {
			return uc.OnMessagesRead(ctx, requester, peer, 1)
		}
	}
	return nil
}

// OnMessagesRead decrements the reader's unread count for the peer by
// readCount, clamped at zero.
func (uc *ChatListUseCase) OnMessagesRead(ctx context.Context, reader, peer string, readCount int) error {
	_, err := uc.sumRepo.Mutate(ctx, reader, func(doc *repository.SummaryDoc) error {
		s, ok := doc.Chats[peer]
		if !ok {
			return nil
		}
		s.UnreadCount -= readCount
		if s.UnreadCount < 0 {
			s.UnreadCount = 0
		}
		doc.Chats[peer] = s
		return nil
	})
	return err
}

// OnConversationCleared drops the owner's summary entry for the peer.
func (uc *ChatListUseCase) OnConversationCleared(ctx context.Context, owner, peer string) error {
	_, err := uc.sumRepo.Mutate(ctx, owner, func(doc *repository.SummaryDoc) error {
		delete(doc.Chats, peer)
		return nil
	})
	return err
}

// ListFor returns the owner's summaries sorted by last message time
// descending, ties broken by peer identity ascending.
func (uc *ChatListUseCase) ListFor(ctx context.Context, owner string) ([]domain.ChatSummary, error) {
	doc, err := uc.sumRepo.Find(ctx, owner)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ChatSummary, 0, len(doc.Chats))
	for _, s := range doc.Chats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastMessage.CreatedAt != out[j].LastMessage.CreatedAt {
			return out[i].LastMessage.CreatedAt > out[j].LastMessage.CreatedAt
		}
		return out[i].Peer < out[j].Peer
	})
	return out, nil
}
