package pubsub

import (
	"context"
	"fmt"

	"relay/internal/forwarder"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// EventHandler processes one event and signals the result through done.
type EventHandler interface {
	Handle(ctx context.Context, ev forwarder.Event, done forwarder.Callback)
}

// Subscriber pulls snapshot events from a subscription and hands each one to
// an EventHandler. Every message is acked once handled, failed or not, so
// Pub/Sub never redelivers it.
type Subscriber struct {
	sub     *pubsub.Subscription
	handler EventHandler
	logger  zerolog.Logger
}

func NewSubscriber(client *pubsub.Client, subscriptionID string, maxOutstanding int, h EventHandler, logger zerolog.Logger) *Subscriber {
	sub := client.Subscription(subscriptionID)
	if maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	}
	return &Subscriber{
		sub:     sub,
		handler: h,
		logger:  logger.With().Str("subscription", subscriptionID).Logger(),
	}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (s *Subscriber) Run(ctx context.Context) error {
	s.logger.Info().Msg("Starting Pub/Sub subscriber")
	err := s.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		s.handleMessage(ctx, m.ID, m.Data, m.Attributes, m.Ack)
	})
	if err != nil {
		return fmt.Errorf("receiving from subscription %s: %w", s.sub.ID(), err)
	}
	s.logger.Info().Msg("Shutting down Pub/Sub subscriber")
	return nil
}

func (s *Subscriber) handleMessage(ctx context.Context, id string, data []byte, attrs map[string]string, ack func()) {
	ev := forwarder.Event{ID: id, Data: data, Attributes: attrs}
	s.handler.Handle(ctx, ev, func(err error, message string) {
		// Still ack a failed event: it is attempted once and never redelivered.
		// The error is logged for offline analysis.
		if err != nil {
			s.logger.Warn().
				Str("message_id", id).
				Str("error_kind", forwarder.Classify(err)).
				Err(err).
				Msg("Dropping event after failed forward")
			ack()
			return
		}
		s.logger.Debug().Str("message_id", id).Str("result", message).Msg("Acking message")
		ack()
	})
}
