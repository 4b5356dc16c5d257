package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Exporter records relay metrics through OpenTelemetry and exposes them in
// Prometheus format. Each Exporter owns its own registry.
type Exporter struct {
	registry      *prometheus.Registry
	meterProvider *sdkmetric.MeterProvider

	outcomes metric.Int64Counter
	latency  metric.Float64Histogram
}

func NewExporter(serviceName string) (*Exporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := meterProvider.Meter(serviceName, metric.WithInstrumentationVersion("1.0.0"))

	outcomes, err := meter.Int64Counter(
		"relay.events",
		metric.WithDescription("Snapshot events processed, by outcome"),
		metric.WithUnit("{events}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	latency, err := meter.Float64Histogram(
		"relay.webhook.duration",
		metric.WithDescription("Duration of webhook POST requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating webhook duration histogram: %w", err)
	}

	return &Exporter{
		registry:      registry,
		meterProvider: meterProvider,
		outcomes:      outcomes,
		latency:       latency,
	}, nil
}

func (e *Exporter) RecordOutcome(ctx context.Context, outcome string) {
	e.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (e *Exporter) RecordDelivery(ctx context.Context, statusCode int, elapsed time.Duration) {
	e.latency.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("status_code", strconv.Itoa(statusCode))))
}

// Handler serves the Prometheus exposition of the recorded metrics.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.meterProvider.Shutdown(ctx)
}
