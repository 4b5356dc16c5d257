package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"relay/internal/model"

	"github.com/rs/zerolog"
)

// WebhookSender delivers an EventBody to a webhook URL and reports the HTTP status code.
type WebhookSender interface {
	Send(ctx context.Context, url string, body model.EventBody) (int, error)
}

// WebhookClient POSTs event bodies as JSON. It makes exactly one attempt per call.
type WebhookClient struct {
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookClient returns a client whose requests time out after timeout.
// A zero timeout leaves the request bounded only by ctx.
func NewWebhookClient(timeout time.Duration, logger zerolog.Logger) *WebhookClient {
	return &WebhookClient{
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("service", "WebhookClient").Logger(),
	}
}

// Send returns the response status code for any HTTP response, whatever the
// code. Only failures to complete the exchange are returned as ErrTransport.
func (c *WebhookClient) Send(ctx context.Context, url string, body model.EventBody) (int, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshaling event body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return 0, fmt.Errorf("%w: creating request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: posting to webhook: %w", ErrTransport, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	// Drain so the connection can be reused.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		c.logger.Debug().Err(err).Int("status_code", resp.StatusCode).Msg("Failed to drain webhook response body")
	}

	return resp.StatusCode, nil
}
