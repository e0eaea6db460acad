package history

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	turnsTTL     = 24 * time.Hour
	turnsMaxKept = 50
)

// RedisTurns keeps a bounded, TTL'd list of conversation turns in Redis.
type RedisTurns struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewRedisTurns builds a turn store over the given Redis client.
func NewRedisTurns(client *redis.Client) *RedisTurns {
	if client == nil {
		panic("history: redis client cannot be nil")
	}
	return &RedisTurns{
		redis:  client,
		tracer: otel.Tracer("wambo.internal.history"),
	}
}

var _ TurnSource = (*RedisTurns)(nil)

// AppendTurn records a turn and refreshes the conversation TTL.
func (s *RedisTurns) AppendTurn(ctx context.Context, conversationID, text string) error {
	ctx, span := s.tracer.Start(ctx, "history.append_turn")
	defer span.End()

	key := turnsKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, text)
	pipe.LTrim(ctx, key, -turnsMaxKept, -1)
	pipe.Expire(ctx, key, turnsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("history: failed to append turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit most recent turns, oldest first.
func (s *RedisTurns) RecentTurns(ctx context.Context, conversationID string, limit int) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "history.recent_turns")
	defer span.End()

	if limit <= 0 {
		return nil, nil
	}
	turns, err := s.redis.LRange(ctx, turnsKey(conversationID), int64(-limit), -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("history: failed to load turns: %w", err)
	}
	return turns, nil
}

func turnsKey(conversationID string) string {
	return fmt.Sprintf("turns:%s", conversationID)
}
