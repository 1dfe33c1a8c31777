// Package analytics provides a fire-and-forget NATS publisher for catalog
// activity events.
package analytics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subject constants for every analytics event type.
const (
	SubjectAppViewed       = "analytics.catalog.app_viewed"
	SubjectAppLiked        = "analytics.catalog.app_liked"
	SubjectAppDownloaded   = "analytics.catalog.app_downloaded"
	SubjectReviewSubmitted = "analytics.catalog.review_submitted"
	SubjectSearchPerformed = "analytics.catalog.search_performed"
)

// Event is the envelope sent to all analytics.* subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	DeviceID   string         `json:"device_id,omitempty"`
	AppID      string         `json:"app_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Publisher publishes analytics events to NATS JetStream.
// A nil pointer or a Publisher without JetStream is a no-op.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
}

// New creates a Publisher. Pass js=nil to get a no-op stub.
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log}
}

// NewEvent builds the envelope Publish sends.
func NewEvent(eventName, deviceID, appID string, props map[string]any) Event {
	return Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		DeviceID:   deviceID,
		AppID:      appID,
		OccurredAt: time.Now().UTC(),
		Properties: props,
	}
}

// Publish sends an event asynchronously. Failures are logged as warnings
// and never surface to the caller.
func (p *Publisher) Publish(subject, eventName, deviceID, appID string, props map[string]any) {
	if p == nil || p.js == nil {
		return
	}
	data, err := json.Marshal(NewEvent(eventName, deviceID, appID, props))
	if err != nil {
		p.log.Warn("analytics: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		p.log.Warn("analytics: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
