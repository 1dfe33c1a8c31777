package service

import (
	"github.com/example/app-catalog/internal/platform/analytics"
)

// EventPublisher is satisfied by *analytics.Publisher. Publishing is
// fire-and-forget.
type EventPublisher interface {
	Publish(subject, eventName, deviceID, appID string, props map[string]any)
}

var _ EventPublisher = (*analytics.Publisher)(nil)

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, string, string, map[string]any) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
