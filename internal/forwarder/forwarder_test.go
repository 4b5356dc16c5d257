package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"relay/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{
	"resource": {"labels": {"project_id": "proj1"}},
	"jsonPayload": {"resource": {"zone": "us-central1-a", "name": "disk-1"}},
	"timestamp": "2019-01-01T00:00:00Z"
}`

type sentRequest struct {
	url  string
	body model.EventBody
}

type fakeSender struct {
	mu         sync.Mutex
	statusCode int
	err        error
	panicWith  any
	sent       []sentRequest
}

func (s *fakeSender) Send(_ context.Context, url string, body model.EventBody) (int, error) {
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentRequest{url: url, body: body})
	return s.statusCode, s.err
}

type fakeRecorder struct {
	outcomes   []string
	deliveries []int
}

func (r *fakeRecorder) RecordOutcome(_ context.Context, outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *fakeRecorder) RecordDelivery(_ context.Context, statusCode int, _ time.Duration) {
	r.deliveries = append(r.deliveries, statusCode)
}

type callbackResult struct {
	calls   int
	err     error
	message string
}

func (c *callbackResult) done(err error, message string) {
	c.calls++
	c.err = err
	c.message = message
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("delivered - 200", func(t *testing.T) {
		sender := &fakeSender{statusCode: 200}
		rec := &fakeRecorder{}
		f := New("https://example.com/hook", sender, zerolog.Nop(), WithRecorder(rec))

		var res callbackResult
		f.Handle(ctx, Event{ID: "1", Data: []byte(validPayload)}, res.done)

		require.Equal(t, 1, res.calls)
		require.NoError(t, res.err)
		assert.Equal(t, "statusCode: 200", res.message)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "https://example.com/hook", sender.sent[0].url)
		assert.Equal(t, model.DiskEntry{
			Type: "disk",
			URL:  "https://console.cloud.google.com/compute/disksDetail/zones/us-central1-a/disks/disk-1?project=proj1&supportedpurview=project",
			Name: "disk-1",
		}, sender.sent[0].body.Disk)
		assert.Equal(t, []string{"delivered"}, rec.outcomes)
		assert.Equal(t, []int{200}, rec.deliveries)
	})

	t.Run("delivered - non-2xx is still a success", func(t *testing.T) {
		sender := &fakeSender{statusCode: 500}
		f := New("https://example.com/hook", sender, zerolog.Nop())

		var res callbackResult
		f.Handle(ctx, Event{Data: []byte(validPayload)}, res.done)

		require.NoError(t, res.err)
		assert.Equal(t, "statusCode: 500", res.message)
	})

	t.Run("empty - no data", func(t *testing.T) {
		sender := &fakeSender{statusCode: 200}
		f := New("https://example.com/hook", sender, zerolog.Nop())

		var res callbackResult
		f.Handle(ctx, Event{}, res.done)

		require.Equal(t, 1, res.calls)
		require.NoError(t, res.err)
		assert.Equal(t, "Event message's content is empty.", res.message)
		assert.Empty(t, sender.sent)
	})

	t.Run("empty - falsy JSON", func(t *testing.T) {
		for _, data := range []string{`""`, `null`, `0`, `false`, `[]`} {
			sender := &fakeSender{statusCode: 200}
			f := New("https://example.com/hook", sender, zerolog.Nop())

			var res callbackResult
			f.Handle(ctx, Event{Data: []byte(data)}, res.done)

			require.NoError(t, res.err, data)
			assert.Equal(t, MessageEmptyPayload, res.message, data)
			assert.Empty(t, sender.sent, data)
		}
	})

	t.Run("webhook not configured", func(t *testing.T) {
		sender := &fakeSender{statusCode: 200}
		rec := &fakeRecorder{}
		f := New("", sender, zerolog.Nop(), WithRecorder(rec))

		var res callbackResult
		f.Handle(ctx, Event{Data: []byte(validPayload)}, res.done)

		require.Equal(t, 1, res.calls)
		require.NoError(t, res.err)
		assert.Equal(t, "WEBHOOK_URL environment variable is not set", res.message)
		assert.Empty(t, sender.sent)
		assert.Equal(t, []string{"not_configured"}, rec.outcomes)
	})

	t.Run("transport failure", func(t *testing.T) {
		sender := &fakeSender{err: ErrTransport}
		rec := &fakeRecorder{}
		f := New("https://example.com/hook", sender, zerolog.Nop(), WithRecorder(rec))

		var res callbackResult
		f.Handle(ctx, Event{Data: []byte(validPayload)}, res.done)

		require.Equal(t, 1, res.calls)
		require.Error(t, res.err)
		assert.ErrorIs(t, res.err, ErrTransport)
		assert.Empty(t, res.message)
		assert.Equal(t, []string{"transport_error"}, rec.outcomes)
		assert.Empty(t, rec.deliveries)
	})

	t.Run("empty values and date-only timestamp are forwarded", func(t *testing.T) {
		sender := &fakeSender{statusCode: 200}
		f := New("https://example.com/hook", sender, zerolog.Nop())

		data := `{"resource":{"labels":{"project_id":""}},"jsonPayload":{"resource":{"zone":"us-central1-a","name":"disk-1"}},"timestamp":"2019-01-01"}`
		var res callbackResult
		f.Handle(ctx, Event{Data: []byte(data)}, res.done)

		require.NoError(t, res.err)
		assert.Equal(t, "statusCode: 200", res.message)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "", sender.sent[0].body.Project.ProjectID)
		assert.Equal(t, "https://console.cloud.google.com/home/dashboard?project=", sender.sent[0].body.Project.ProjectURL)
		assert.Equal(t, time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), sender.sent[0].body.DateTime.DateTime)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		sender := &fakeSender{statusCode: 200}
		f := New("https://example.com/hook", sender, zerolog.Nop())

		var res callbackResult
		f.Handle(ctx, Event{Data: []byte(`{"resource":`)}, res.done)

		require.Error(t, res.err)
		assert.ErrorIs(t, res.err, ErrParse)
		assert.Empty(t, sender.sent)
	})

	t.Run("missing nested field", func(t *testing.T) {
		sender := &fakeSender{statusCode: 200}
		f := New("https://example.com/hook", sender, zerolog.Nop())

		var res callbackResult
		f.Handle(ctx, Event{Data: []byte(`{"resource":{"labels":{"project_id":"proj1"}},"timestamp":"2019-01-01T00:00:00Z"}`)}, res.done)

		require.Error(t, res.err)
		assert.ErrorIs(t, res.err, ErrFieldAccess)
		var fieldErr *FieldError
		require.ErrorAs(t, res.err, &fieldErr)
		assert.ElementsMatch(t, []string{"jsonPayload.resource.zone", "jsonPayload.resource.name"}, fieldErr.Fields)
		assert.Empty(t, sender.sent)
	})

	t.Run("panic is reported as failure", func(t *testing.T) {
		sender := &fakeSender{panicWith: "boom"}
		rec := &fakeRecorder{}
		f := New("https://example.com/hook", sender, zerolog.Nop(), WithRecorder(rec))

		var res callbackResult
		f.Handle(ctx, Event{Data: []byte(validPayload)}, res.done)

		require.Equal(t, 1, res.calls)
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "boom")
		assert.Equal(t, []string{"error"}, rec.outcomes)
	})
}

func TestForwardOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("delivered carries status code", func(t *testing.T) {
		f := New("https://example.com/hook", &fakeSender{statusCode: 202}, zerolog.Nop())

		out, err := f.Forward(ctx, Event{Data: []byte(validPayload)})
		require.NoError(t, err)
		assert.Equal(t, OutcomeDelivered, out.Kind)
		assert.Equal(t, 202, out.StatusCode)
		assert.False(t, out.IsWarning())
	})

	t.Run("not configured is a warning", func(t *testing.T) {
		f := New("", &fakeSender{}, zerolog.Nop())

		out, err := f.Forward(ctx, Event{Data: []byte(validPayload)})
		require.NoError(t, err)
		assert.Equal(t, OutcomeNotConfigured, out.Kind)
		assert.True(t, out.IsWarning())
		assert.Equal(t, "", f.WebhookURL())
	})

	t.Run("end to end body", func(t *testing.T) {
		sender := &fakeSender{statusCode: 200}
		f := New("https://example.com/hook", sender, zerolog.Nop())

		_, err := f.Forward(ctx, Event{Data: []byte(validPayload)})
		require.NoError(t, err)
		require.Len(t, sender.sent, 1)

		raw, err := json.Marshal(sender.sent[0].body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"data":[
			{"type":"disk","url":"https://console.cloud.google.com/compute/disksDetail/zones/us-central1-a/disks/disk-1?project=proj1&supportedpurview=project","name":"disk-1"},
			{"type":"project","project_id":"proj1","project_url":"https://console.cloud.google.com/home/dashboard?project=proj1"},
			{"zone":"us-central1-a"},
			{"date_time":"2019-01-01T00:00:00.000Z"}
		]}`, string(raw))
	})
}

func TestForwardFailureOutcomeIsUnknown(t *testing.T) {
	f := New("https://example.com/hook", &fakeSender{err: ErrTransport}, zerolog.Nop())

	out, err := f.Forward(context.Background(), Event{Data: []byte(validPayload)})
	require.Error(t, err)
	assert.Equal(t, OutcomeUnknown, out.Kind)
	assert.Equal(t, "unknown", out.Kind.String())
	assert.NotEqual(t, OutcomeDelivered, out.Kind)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "ok", Classify(nil))
	assert.Equal(t, "parse_error", Classify(ErrParse))
	assert.Equal(t, "field_error", Classify(&FieldError{Fields: []string{"timestamp"}}))
	assert.Equal(t, "transport_error", Classify(ErrTransport))
	assert.Equal(t, "error", Classify(errors.New("other")))
}
