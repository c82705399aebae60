package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests      metric.Int64Counter
	HTTPDuration      metric.Float64Histogram
	VotesApplied      metric.Int64Counter
	EventsPublished   metric.Int64Counter
	StreamConnections metric.Int64UpDownCounter
}

func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	m, err := newMetrics(provider.Meter(serviceName))
	if err != nil {
		return nil, nil, err
	}

	return m, promhttp.Handler(), nil
}

// NewNop returns instruments backed by a no-op meter, for tests and tooling.
func NewNop() *Metrics {
	m, _ := newMetrics(otel.GetMeterProvider().Meter("nop"))
	return m
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequests, err = meter.Int64Counter(
		"news_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"news_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, err
	}

	m.VotesApplied, err = meter.Int64Counter(
		"news_votes_applied_total",
		metric.WithDescription("Vote deltas committed, by target"),
	)
	if err != nil {
		return nil, err
	}

	m.EventsPublished, err = meter.Int64Counter(
		"news_events_published_total",
		metric.WithDescription("Domain events handed to the event bus"),
	)
	if err != nil {
		return nil, err
	}

	m.StreamConnections, err = meter.Int64UpDownCounter(
		"news_stream_connections",
		metric.WithDescription("Number of open event stream connections"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordVote(ctx context.Context, target string) {
	m.VotesApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))
}

func (m *Metrics) RecordEvent(ctx context.Context, eventType string) {
	m.EventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("type", eventType)))
}

func (m *Metrics) IncrementStreams(ctx context.Context) {
	m.StreamConnections.Add(ctx, 1)
}

func (m *Metrics) DecrementStreams(ctx context.Context) {
	m.StreamConnections.Add(ctx, -1)
}
