// Package consumer pulls catalog events off JetStream and hands them to the
// dispatcher.
package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/app-catalog/services/analytics/internal/handler"
)

const (
	StreamName   = "ANALYTICS"
	ConsumerName = "analytics_processor"

	catalogStream = "CATALOG_EVENTS"
	retention     = 30 * 24 * time.Hour
	fetchBackoff  = time.Second
)

// fetcher is the part of a pull subscription Run needs.
type fetcher interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
}

type Consumer struct {
	sub        fetcher
	dispatcher *handler.Dispatcher
	batchSize  int
	wait       time.Duration
	log        *zap.Logger
	// ack is swapped in tests; plain nats.Msg values have no reply subject.
	ack func(*nats.Msg) error
}

// New makes sure the ANALYTICS stream exists and binds a durable pull
// consumer to it.
func New(nc *nats.Conn, d *handler.Dispatcher, batchSize int, wait time.Duration, log *zap.Logger) (*Consumer, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	ensureStream(js, log)

	sub, err := js.PullSubscribe(">", ConsumerName, nats.BindStream(StreamName))
	if err != nil {
		return nil, err
	}
	return newConsumer(sub, d, batchSize, wait, log), nil
}

func newConsumer(sub fetcher, d *handler.Dispatcher, batchSize int, wait time.Duration, log *zap.Logger) *Consumer {
	return &Consumer{
		sub:        sub,
		dispatcher: d,
		batchSize:  batchSize,
		wait:       wait,
		log:        log,
		ack:        func(m *nats.Msg) error { return m.Ack() },
	}
}

// Run fetches and dispatches until ctx is cancelled. Every fetched message is
// acked, including ones the dispatcher could not use, so nothing loops.
func (c *Consumer) Run(ctx context.Context) {
	for ctx.Err() == nil {
		msgs, err := c.sub.Fetch(c.batchSize, nats.MaxWait(c.wait))
		switch {
		case errors.Is(err, nats.ErrTimeout):
			continue
		case err != nil:
			c.log.Error("analytics fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(fetchBackoff):
			}
			continue
		}
		c.handle(msgs)
	}
}

func (c *Consumer) handle(msgs []*nats.Msg) {
	for _, msg := range msgs {
		c.dispatcher.Dispatch(msg)
		if err := c.ack(msg); err != nil {
			c.log.Warn("analytics ack failed", zap.String("subject", msg.Subject), zap.Error(err))
		}
	}
}

// streamConfig collects the catalog's own analytics subjects plus the review
// commits relayed from the outbox.
func streamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"analytics.>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    retention,
		Sources: []*nats.StreamSource{
			{Name: catalogStream, FilterSubject: handler.SubjectReviewCommitted},
		},
	}
}

func ensureStream(js nats.JetStreamContext, log *zap.Logger) {
	cfg := streamConfig()
	if _, err := js.AddStream(cfg); err == nil {
		log.Info("analytics stream created", zap.String("stream", StreamName))
		return
	}
	if _, err := js.UpdateStream(cfg); err != nil {
		log.Warn("analytics stream update failed", zap.String("stream", StreamName), zap.Error(err))
	}
}
