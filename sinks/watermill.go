package sinks

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	goerrors "github.com/goliatone/go-errors"
	auth "github.com/pulseapp/pulse-auth"
	"github.com/pulseapp/pulse-auth/activitymap"
)

// DefaultTopic is the topic used when none is configured.
const DefaultTopic = "pulse.auth.activity"

// WatermillSink publishes normalized activity records to a watermill
// publisher (Kafka in production, gochannel in tests).
type WatermillSink struct {
	publisher message.Publisher
	topic     string
	opts      []activitymap.Option
}

var _ auth.ActivitySink = (*WatermillSink)(nil)

// NewWatermillSink returns a sink publishing on topic.
func NewWatermillSink(publisher message.Publisher, topic string, opts ...activitymap.Option) *WatermillSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillSink{
		publisher: publisher,
		topic:     topic,
		opts:      opts,
	}
}

// Record implements auth.ActivitySink.
func (s *WatermillSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	payload, err := activitymap.Encode(event, s.opts...)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "encode activity record")
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.EventType))
	if event.AccountID != "" {
		// keeps events for one account on one partition
		msg.Metadata.Set("partition_key", event.AccountID)
	}

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "publish activity")
	}
	return nil
}

// Close closes the underlying publisher.
func (s *WatermillSink) Close() error {
	return s.publisher.Close()
}
