package sinks

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/pulseapp/pulse-auth"
	"github.com/pulseapp/pulse-auth/activitymap"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream used when none is configured.
const DefaultStream = "pulse:auth:activity"

// RedisStreamSink appends normalized activity records to a Redis stream.
type RedisStreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
	opts   []activitymap.Option
}

var _ auth.ActivitySink = (*RedisStreamSink)(nil)

// NewRedisStreamSink returns a sink writing to stream. maxLen caps the stream
// length approximately, zero keeps everything.
func NewRedisStreamSink(client *redis.Client, stream string, maxLen int64, opts ...activitymap.Option) *RedisStreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
		opts:   opts,
	}
}

// Record implements auth.ActivitySink.
func (s *RedisStreamSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	payload, err := activitymap.Encode(event, s.opts...)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "encode activity record")
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":    string(event.EventType),
			"payload": string(payload),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "append activity to redis stream")
	}
	return nil
}
