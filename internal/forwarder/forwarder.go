package forwarder

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Recorder receives forwarding metrics.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome string)
	RecordDelivery(ctx context.Context, statusCode int, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordOutcome(context.Context, string)              {}
func (noopRecorder) RecordDelivery(context.Context, int, time.Duration) {}

// Callback is signalled once per event. err is nil on success, in which case
// message describes the outcome.
type Callback func(err error, message string)

// Forwarder relays snapshot events to a webhook. It holds no per-event state
// and is safe for concurrent use.
type Forwarder struct {
	webhookURL string
	sender     WebhookSender
	recorder   Recorder
	logger     zerolog.Logger
}

type Option func(*Forwarder)

func WithRecorder(r Recorder) Option {
	return func(f *Forwarder) {
		if r != nil {
			f.recorder = r
		}
	}
}

// New creates a Forwarder. An empty webhookURL is allowed: events are then
// decoded and validated but not sent.
func New(webhookURL string, sender WebhookSender, logger zerolog.Logger, opts ...Option) *Forwarder {
	f := &Forwarder{
		webhookURL: webhookURL,
		sender:     sender,
		recorder:   noopRecorder{},
		logger:     logger.With().Str("service", "EventForwarder").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WebhookURL returns the configured destination, which may be empty.
func (f *Forwarder) WebhookURL() string {
	return f.webhookURL
}

// Forward runs one event through decode, extract, build and send.
func (f *Forwarder) Forward(ctx context.Context, ev Event) (Outcome, error) {
	log := f.logger.With().Str("message_id", ev.ID).Logger()

	payload, err := Decode(ev)
	if err != nil {
		return Outcome{}, f.fail(ctx, log, err, "Failed to decode event payload")
	}
	if payload == nil {
		log.Info().Msg(MessageEmptyPayload)
		return f.succeed(ctx, Outcome{Kind: OutcomeEmpty, Message: MessageEmptyPayload}), nil
	}

	md, err := ExtractMetadata(payload)
	if err != nil {
		return Outcome{}, f.fail(ctx, log, err, "Snapshot payload is missing required fields")
	}
	log = log.With().
		Str("project_id", md.ProjectID).
		Str("zone", md.Zone).
		Str("disk", md.DiskName).
		Logger()

	body := BuildEventBody(md)

	if f.webhookURL == "" {
		log.Warn().Msg(MessageWebhookNotSet)
		return f.succeed(ctx, Outcome{Kind: OutcomeNotConfigured, Message: MessageWebhookNotSet}), nil
	}

	start := time.Now()
	statusCode, err := f.sender.Send(ctx, f.webhookURL, body)
	if err != nil {
		return Outcome{}, f.fail(ctx, log, err, "An error occurred sending the event to the webhook")
	}
	f.recorder.RecordDelivery(ctx, statusCode, time.Since(start))

	msg := fmt.Sprintf(messageStatusCodeFmt, statusCode)
	log.Info().Int("status_code", statusCode).Msg(msg)
	return f.succeed(ctx, Outcome{Kind: OutcomeDelivered, Message: msg, StatusCode: statusCode}), nil
}

// Handle forwards ev and signals done exactly once. A panic raised while
// forwarding is reported to done as an error.
func (f *Forwarder) Handle(ctx context.Context, ev Event, done Callback) {
	outcome, err := f.forwardRecovered(ctx, ev)
	if err != nil {
		done(err, "")
		return
	}
	done(nil, outcome.Message)
}

func (f *Forwarder) forwardRecovered(ctx context.Context, ev Event) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = f.fail(ctx, f.logger, fmt.Errorf("panic while forwarding event: %v", r), "Unexpected failure while forwarding event")
			outcome = Outcome{}
		}
	}()
	return f.Forward(ctx, ev)
}

func (f *Forwarder) succeed(ctx context.Context, o Outcome) Outcome {
	f.recorder.RecordOutcome(ctx, o.Kind.String())
	return o
}

func (f *Forwarder) fail(ctx context.Context, log zerolog.Logger, err error, msg string) error {
	f.recorder.RecordOutcome(ctx, Classify(err))
	log.Error().Err(err).Str("error_kind", Classify(err)).Msg(msg)
	return err
}
