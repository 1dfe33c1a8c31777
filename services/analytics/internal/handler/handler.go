// Package handler turns catalog events from NATS into PostHog captures.
package handler

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/app-catalog/internal/platform/analytics"
	"github.com/example/app-catalog/services/analytics/internal/posthog"
)

// SubjectReviewCommitted is the outbox event written with every stored review.
const SubjectReviewCommitted = "catalog.review.submitted"

const anonymous = "anonymous"

// Capturer is satisfied by *posthog.Client.
type Capturer interface {
	Capture(ev posthog.Event)
}

// Dispatcher routes incoming NATS messages to the correct capture call.
type Dispatcher struct {
	ph  Capturer
	log *zap.Logger
}

func New(ph Capturer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{ph: ph, log: log}
}

// Dispatch routes msg by subject. Unknown subjects are dropped; the caller
// still acks them so they are not redelivered.
func (d *Dispatcher) Dispatch(msg *nats.Msg) {
	switch msg.Subject {
	case analytics.SubjectAppViewed,
		analytics.SubjectAppLiked,
		analytics.SubjectAppDownloaded,
		analytics.SubjectReviewSubmitted:
		d.handleAppEvent(msg)
	case analytics.SubjectSearchPerformed:
		d.handleSearch(msg)
	case SubjectReviewCommitted:
		d.handleReviewCommitted(msg)
	default:
		d.log.Debug("analytics: unhandled subject", zap.String("subject", msg.Subject))
	}
}

func (d *Dispatcher) handleAppEvent(msg *nats.Msg) {
	var ev analytics.Event
	if !unmarshal(d.log, msg, &ev) {
		return
	}
	props := map[string]any{"app_id": ev.AppID}
	for k, v := range ev.Properties {
		props[k] = v
	}
	d.ph.Capture(posthog.Event{
		DistinctID: distinctID(ev.DeviceID),
		Name:       ev.EventName,
		AppID:      ev.AppID,
		Properties: props,
		Timestamp:  ev.OccurredAt,
	})
}

func (d *Dispatcher) handleSearch(msg *nats.Msg) {
	var ev analytics.Event
	if !unmarshal(d.log, msg, &ev) {
		return
	}
	props := map[string]any{}
	for k, v := range ev.Properties {
		props[k] = v
	}
	if n, ok := props["results"].(float64); ok {
		props["has_results"] = n > 0
	}
	d.ph.Capture(posthog.Event{
		DistinctID: distinctID(ev.DeviceID),
		Name:       "search_performed",
		Properties: props,
		Timestamp:  ev.OccurredAt,
	})
}

// handleReviewCommitted records the store-confirmed rating after a review.
// Outbox rows carry no device, so they are attributed to the app.
func (d *Dispatcher) handleReviewCommitted(msg *nats.Msg) {
	var ev struct {
		AppID    string  `json:"app_id"`
		ReviewID string  `json:"review_id"`
		Stars    int     `json:"stars"`
		Average  float64 `json:"average"`
		Count    int     `json:"count"`
	}
	if !unmarshal(d.log, msg, &ev) {
		return
	}
	if ev.AppID == "" {
		return
	}
	d.ph.Capture(posthog.Event{
		DistinctID: "app:" + ev.AppID,
		Name:       "rating_updated",
		AppID:      ev.AppID,
		Properties: map[string]any{
			"review_id":      ev.ReviewID,
			"stars":          ev.Stars,
			"rating_average": ev.Average,
			"rating_count":   ev.Count,
		},
	})
}

func distinctID(deviceID string) string {
	if deviceID == "" {
		return anonymous
	}
	return deviceID
}

func unmarshal(log *zap.Logger, msg *nats.Msg, dst any) bool {
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		log.Error("analytics: unmarshal message",
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return false
	}
	return true
}
