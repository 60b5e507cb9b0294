package results

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mkor14/veracity/internal/events"
)

// WorkerConfig holds configuration for the results event worker.
type WorkerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultWorkerConfig returns the worker defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "VERACITY_EVENTS",
		ConsumerName:  "veracity-results",
		SubjectFilter: "veracity.games.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Worker consumes game events from JetStream and writes round results and
// final standings through the results app. Unlike the gateway fanout, it
// replays the stream from the beginning on first start so no finished
// round is lost to a restart.
type Worker struct {
	app      *App
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   WorkerConfig
}

// NewWorker connects to NATS and ensures the durable consumer exists.
func NewWorker(app *App, config WorkerConfig) (*Worker, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	w := &Worker{
		app:    app,
		nc:     nc,
		js:     js,
		config: config,
	}

	if err := w.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return w, nil
}

func (w *Worker) ensureConsumer(ctx context.Context) error {
	stream, err := w.js.Stream(ctx, w.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          w.config.ConsumerName,
		Durable:       w.config.ConsumerName,
		Description:   "Results store persistence consumer",
		FilterSubject: w.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    w.config.MaxDeliver,
		AckWait:       w.config.AckWait,
		MaxAckPending: w.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, w.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", w.config.ConsumerName).
			Str("stream", w.config.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", w.config.ConsumerName).
			Str("stream", w.config.StreamName).
			Msg("using existing JetStream consumer")
	}

	w.consumer = consumer
	return nil
}

// Start consumes events until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", w.config.ConsumerName).
		Str("stream", w.config.StreamName).
		Msg("starting results worker")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := w.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("results worker shutting down")
			return nil
		case msg := <-messageCh:
			if err := w.processMessage(ctx, msg); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
			} else {
				if ackErr := msg.Ack(); ackErr != nil {
					log.Error().Err(ackErr).Msg("failed to ACK message")
				}
			}
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, msg jetstream.Msg) error {
	var event events.GameEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}
	return w.handleEvent(ctx, event)
}

func (w *Worker) handleEvent(ctx context.Context, event events.GameEvent) error {
	switch event.Type {
	case events.TypeGameCreated:
		var data events.GameCreatedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", event.Type, err)
		}
		return w.app.RecordGame(ctx, data.Game)

	case events.TypeGameStarted:
		var data events.GameStartedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", event.Type, err)
		}
		return w.app.RecordGame(ctx, data.Game)

	case events.TypeRoundCompleted:
		var data events.RoundCompletedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", event.Type, err)
		}
		return w.app.RecordRound(ctx, data.Record)

	case events.TypeGameCompleted:
		var data events.GameCompletedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", event.Type, err)
		}
		return w.app.FinalizeGame(ctx, data.Game)

	default:
		// Ticks, warnings and round starts are display traffic, not
		// results. Ack without touching the database.
		return nil
	}
}

// Stop closes the NATS connection.
func (w *Worker) Stop() error {
	log.Info().Msg("stopping results worker")
	if w.nc != nil {
		w.nc.Close()
	}
	return nil
}
