// Package event carries the fire-and-forget notification hook for
// processed records. Events are published after the durable write has
// already happened; nothing internal depends on their delivery, and an
// event with no subscriber is simply dropped.
package event

import (
	"context"
	"time"

	"github.com/unkn0wn-root/recordsvc"
)

// ChannelProcessed is the record-lifecycle event stream.
const ChannelProcessed = "record.processed"

// Event is the payload broadcast after the enrichment worker finishes a
// task. NormalizedPhone is only set for create actions; note that the
// normalized value lives in the event only and is never written back to
// the store.
type Event struct {
	Action          recordsvc.Action `json:"action"`
	Record          recordsvc.Record `json:"record"`
	NormalizedPhone string           `json:"normalized_phone,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Publisher broadcasts processed-record events to any number of
// subscribers, with no delivery guarantee.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close(ctx context.Context) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close(context.Context) error          { return nil }
