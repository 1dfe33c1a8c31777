// Package posthog sends catalog events to PostHog through posthog-go.
package posthog

import (
	"sync/atomic"
	"time"

	ph "github.com/posthog/posthog-go"
	"go.uber.org/zap"
)

// AppGroup is the PostHog group type catalog events are attached to, so
// funnels can be cut per app as well as per device.
const AppGroup = "app"

// Event is one capture. AppID, when set, becomes the "app" group key.
type Event struct {
	DistinctID string
	Name       string
	AppID      string
	Properties map[string]any
	Timestamp  time.Time
}

// Client buffers captures in the SDK. A nil *Client drops everything.
type Client struct {
	ph       ph.Client
	log      *zap.Logger
	enqueued atomic.Int64
	failed   atomic.Int64
}

func New(apiKey, host string, flushInterval time.Duration, batchSize int, log *zap.Logger) (*Client, error) {
	client, err := ph.NewWithConfig(apiKey, ph.Config{
		Endpoint:  host,
		BatchSize: batchSize,
		Interval:  flushInterval,
		Logger:    sdkLogger{log.Named("posthog-sdk")},
	})
	if err != nil {
		return nil, err
	}
	return &Client{ph: client, log: log}, nil
}

func (c *Client) Capture(ev Event) {
	if c == nil || c.ph == nil {
		return
	}
	msg := ph.Capture{
		DistinctId: ev.DistinctID,
		Event:      ev.Name,
		Timestamp:  ev.Timestamp,
		Properties: ph.NewProperties().Merge(ev.Properties),
	}
	if ev.AppID != "" {
		msg.Groups = ph.NewGroups().Set(AppGroup, ev.AppID)
	}
	if err := c.ph.Enqueue(msg); err != nil {
		c.failed.Add(1)
		c.log.Warn("posthog enqueue failed", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	c.enqueued.Add(1)
}

// Close flushes what the SDK still buffers.
func (c *Client) Close() error {
	if c == nil || c.ph == nil {
		return nil
	}
	c.log.Info("posthog closing",
		zap.Int64("enqueued", c.enqueued.Load()),
		zap.Int64("failed", c.failed.Load()),
	)
	return c.ph.Close()
}

// sdkLogger routes posthog-go's own logging into zap.
type sdkLogger struct {
	log *zap.Logger
}

func (l sdkLogger) Debugf(format string, args ...any) { l.log.Sugar().Debugf(format, args...) }
func (l sdkLogger) Logf(format string, args ...any)   { l.log.Sugar().Infof(format, args...) }
func (l sdkLogger) Warnf(format string, args ...any)  { l.log.Sugar().Warnf(format, args...) }
func (l sdkLogger) Errorf(format string, args ...any) { l.log.Sugar().Errorf(format, args...) }
