package sinks

import (
	"context"
	"errors"

	auth "github.com/pulseapp/pulse-auth"
)

// Multi fans an event out to every sink. All sinks are called even when one
// fails; the failures are joined.
type Multi []auth.ActivitySink

var _ auth.ActivitySink = Multi(nil)

// NewMulti drops nil sinks.
func NewMulti(sinks ...auth.ActivitySink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Record implements auth.ActivitySink.
func (m Multi) Record(ctx context.Context, event auth.ActivityEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
