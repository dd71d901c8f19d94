package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// LogRecorder writes events to a structured logger.
type LogRecorder struct {
	Logger *slog.Logger
}

func (r LogRecorder) Record(ctx context.Context, e Event) error {
	r.Logger.InfoContext(ctx, "activity",
		slog.String("actor", e.Actor),
		slog.String("action", string(e.Action)),
		slog.String("family", e.Family),
		slog.String("target_id", e.TargetID),
		slog.String("label", e.Label),
		slog.Time("at", e.At))
	return nil
}

// RedisRecorder pushes JSON events onto a capped Redis list for an external
// activity log consumer.
type RedisRecorder struct {
	client *redis.Client
	key    string
	max    int64
}

func NewRedisRecorder(client *redis.Client, key string, max int64) *RedisRecorder {
	return &RedisRecorder{client: client, key: key, max: max}
}

func (r *RedisRecorder) Record(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	if r.max > 0 {
		pipe.LTrim(ctx, r.key, 0, r.max-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push activity: %w", err)
	}
	return nil
}
