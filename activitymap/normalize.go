package activitymap

import (
	"encoding/json"
	"strings"
	"time"

	auth "github.com/pulseapp/pulse-auth"
)

const (
	// MetadataKeyActorType stores the actor type derived from auth.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyFromState stores the source account state for transitions.
	MetadataKeyFromState = "from_state"
	// MetadataKeyToState stores the resulting account state.
	MetadataKeyToState = "to_state"
)

const (
	defaultChannel    = "pulse.auth"
	defaultObjectType = "account"
	defaultActorID    = "system"
)

// Record is the transport-agnostic activity shape published to streams and
// message brokers.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*options)

type options struct {
	channel    string
	objectType string
	now        func() time.Time
}

// WithChannel sets the channel for normalized records.
func WithChannel(channel string) Option {
	return func(o *options) {
		if channel = strings.TrimSpace(channel); channel != "" {
			o.channel = channel
		}
	}
}

// WithClock sets the clock used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Normalize converts an auth.ActivityEvent into a Record.
func Normalize(event auth.ActivityEvent, opts ...Option) Record {
	o := options{
		channel:    defaultChannel,
		objectType: defaultObjectType,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now()
	}

	return Record{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.Actor.ID),
			strings.TrimSpace(event.AccountID),
			defaultActorID,
		),
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   strings.TrimSpace(event.AccountID),
		Channel:    o.channel,
		Metadata:   metadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// Encode normalizes event and marshals it to JSON.
func Encode(event auth.ActivityEvent, opts ...Option) ([]byte, error) {
	return json.Marshal(Normalize(event, opts...))
}

func metadata(event auth.ActivityEvent) map[string]any {
	out := make(map[string]any, len(event.Metadata)+3)
	for k, v := range event.Metadata {
		out[k] = v
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if _, exists := out[MetadataKeyActorType]; !exists {
			out[MetadataKeyActorType] = actorType
		}
	}

	if event.FromState != "" {
		out[MetadataKeyFromState] = string(event.FromState)
	}

	if event.ToState != "" {
		out[MetadataKeyToState] = string(event.ToState)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
