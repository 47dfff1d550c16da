package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownConversation is returned when a history lookup misses.
var ErrUnknownConversation = fmt.Errorf("chat: unknown conversation")

// HistoryStore keeps conversation transcripts in Redis with a TTL so
// abandoned chats expire on their own.
type HistoryStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewHistoryStore creates a history store. A zero ttl defaults to 24h.
func NewHistoryStore(rdb *redis.Client, tracer trace.Tracer, ttl time.Duration) *HistoryStore {
	if rdb == nil {
		panic("chat: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("labdx.internal.chat.history")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &HistoryStore{redis: rdb, tracer: tracer, ttl: ttl}
}

// Save persists the full transcript, refreshing the TTL.
func (s *HistoryStore) Save(ctx context.Context, conversationID string, history []Message) error {
	ctx, span := s.tracer.Start(ctx, "chat.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, conversationKey(conversationID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist history: %w", err)
	}
	return nil
}

// Load retrieves a transcript. Returns ErrUnknownConversation when no
// history exists.
func (s *HistoryStore) Load(ctx context.Context, conversationID string) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "chat.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, conversationKey(conversationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrUnknownConversation
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to load history: %w", err)
	}

	var history []Message
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to decode history: %w", err)
	}
	return history, nil
}

func conversationKey(id string) string {
	return fmt.Sprintf("chat:%s", id)
}
