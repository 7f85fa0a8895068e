package audit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultStream = "callbridge:audit"

// streamAdder is the slice of the redis client the sink needs.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamSink appends records to a capped Redis stream.
type RedisStreamSink struct {
	rdb    streamAdder
	stream string
	maxLen int64
}

func NewRedisStreamSink(rdb streamAdder, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = 100_000
	}
	return &RedisStreamSink{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *RedisStreamSink) Insert(ctx context.Context, r Record) error {
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: streamValues(r),
	}).Err()
}

func streamValues(r Record) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"api_name":   r.APIName,
		"responses":  r.Payload,
		"created_at": r.CreatedAt.Format(time.RFC3339Nano),
	}
}
