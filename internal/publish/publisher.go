package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"wagerboard/internal/observability"
	"wagerboard/internal/rollover"
)

// Publisher emits leaderboard lifecycle events to JetStream so downstream
// consumers (bots, analytics) can react to resets without polling the read
// API. Fire-and-forget: a failed publish is logged and dropped, it never
// blocks or fails the scheduler. Subjects: wagerboard.events.{kind}.
type Publisher struct {
	js      jetstream.JetStream
	metrics *observability.Metrics
	log     zerolog.Logger
}

func NewPublisher(js jetstream.JetStream, metrics *observability.Metrics, log zerolog.Logger) *Publisher {
	return &Publisher{js: js, metrics: metrics, log: log}
}

// Publish implements rollover.EventSink.
func (p *Publisher) Publish(ctx context.Context, ev rollover.LifecycleEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Str("kind", ev.Kind).Msg("marshal lifecycle event")
		return
	}

	subject := fmt.Sprintf("wagerboard.events.%s", ev.Kind)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		if p.metrics != nil {
			p.metrics.EventsDropped.Inc()
		}
		p.log.Warn().Err(err).Str("subject", subject).Msg("lifecycle event publish failed")
	}
}

// Connect dials NATS with unlimited reconnects and opens a JetStream context.
func Connect(url string, log zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}

// EnsureStream creates or updates the lifecycle events stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "WAGERBOARD_EVENTS",
		Subjects:  []string{"wagerboard.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    14 * 24 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create events stream: %w", err)
	}
	return nil
}
