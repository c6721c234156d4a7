package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	trendRequests    metric.Int64Counter
	upstreamCalls    metric.Int64Counter
	upstreamDuration metric.Float64Histogram
	creditsDebited   metric.Int64Counter
	planGrants       metric.Int64Counter
	billingEvents    metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "scyra"
	}
	meter := provider.Meter(name)

	trendRequests, err := meter.Int64Counter("scyra_trend_requests_total")
	if err != nil {
		return nil, err
	}
	upstreamCalls, err := meter.Int64Counter("scyra_upstream_calls_total")
	if err != nil {
		return nil, err
	}
	upstreamDuration, err := meter.Float64Histogram("scyra_upstream_call_duration_seconds")
	if err != nil {
		return nil, err
	}
	creditsDebited, err := meter.Int64Counter("scyra_credits_debited_total")
	if err != nil {
		return nil, err
	}
	planGrants, err := meter.Int64Counter("scyra_plan_grants_total")
	if err != nil {
		return nil, err
	}
	billingEvents, err := meter.Int64Counter("scyra_billing_events_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("scyra_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		trendRequests:    trendRequests,
		upstreamCalls:    upstreamCalls,
		upstreamDuration: upstreamDuration,
		creditsDebited:   creditsDebited,
		planGrants:       planGrants,
		billingEvents:    billingEvents,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordTrendRequest increments trend generation counts by outcome.
func (m *Metrics) RecordTrendRequest(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.trendRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordUpstreamCall records one outbound provider call with its duration.
func (m *Metrics) RecordUpstreamCall(ctx context.Context, provider, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", outcome),
	)
	m.upstreamCalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.upstreamDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCreditDebit increments debited credit counts.
func (m *Metrics) RecordCreditDebit(ctx context.Context, amount int64) {
	if m == nil {
		return
	}
	m.creditsDebited.Add(ctx, amount)
}

// RecordPlanGrant increments plan grant counts.
func (m *Metrics) RecordPlanGrant(ctx context.Context, plan string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("plan", strings.TrimSpace(plan)))
	m.planGrants.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBillingEvent increments billing webhook event counts.
func (m *Metrics) RecordBillingEvent(ctx context.Context, provider, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
	)
	m.billingEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":   {},
	"operation":  {},
	"outcome":    {},
	"plan":       {},
	"provider":   {},
	"event_type": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
