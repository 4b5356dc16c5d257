package forwarder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"relay/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBody() model.EventBody {
	return BuildEventBody(model.SnapshotMetadata{
		ProjectID: "proj1",
		Zone:      "us-central1-a",
		DiskName:  "disk-1",
		DateTime:  time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

func TestWebhookClientSend(t *testing.T) {
	ctx := context.Background()

	t.Run("posts JSON body", func(t *testing.T) {
		var (
			gotMethod      string
			gotContentType string
			gotBody        map[string][]map[string]string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotContentType = r.Header.Get("Content-Type")
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &gotBody)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := NewWebhookClient(5*time.Second, zerolog.Nop())
		status, err := client.Send(ctx, srv.URL, sampleBody())

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "application/json", gotContentType)
		require.Len(t, gotBody["data"], 4)
		assert.Equal(t, "disk", gotBody["data"][0]["type"])
		assert.Equal(t, "2019-01-01T00:00:00.000Z", gotBody["data"][3]["date_time"])
	})

	t.Run("error status is returned, not an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewWebhookClient(0, zerolog.Nop())
		status, err := client.Send(ctx, srv.URL, sampleBody())

		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		client := NewWebhookClient(0, zerolog.Nop())
		_, err := client.Send(ctx, url, sampleBody())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("invalid url", func(t *testing.T) {
		client := NewWebhookClient(0, zerolog.Nop())
		_, err := client.Send(ctx, "://bad", sampleBody())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		client := NewWebhookClient(50*time.Millisecond, zerolog.Nop())
		_, err := client.Send(ctx, srv.URL, sampleBody())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
	})
}
