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
	creditsAdded    metric.Int64Counter
	creditsConsumed metric.Int64Counter
	refundsIssued   metric.Int64Counter
	jobsSettled     metric.Int64Counter
	paymentEvents   metric.Int64Counter
	invitesAccepted metric.Int64Counter
	lotsExpired     metric.Int64Counter
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

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "swapforge"
	}
	meter := provider.Meter(name)

	creditsAdded, err := meter.Int64Counter("swapforge_credits_added_total")
	if err != nil {
		return nil, err
	}
	creditsConsumed, err := meter.Int64Counter("swapforge_credits_consumed_total")
	if err != nil {
		return nil, err
	}
	refundsIssued, err := meter.Int64Counter("swapforge_refunds_issued_total")
	if err != nil {
		return nil, err
	}
	jobsSettled, err := meter.Int64Counter("swapforge_jobs_settled_total")
	if err != nil {
		return nil, err
	}
	paymentEvents, err := meter.Int64Counter("swapforge_payment_events_total")
	if err != nil {
		return nil, err
	}
	invitesAccepted, err := meter.Int64Counter("swapforge_invites_accepted_total")
	if err != nil {
		return nil, err
	}
	lotsExpired, err := meter.Int64Counter("swapforge_lots_expired_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		creditsAdded:    creditsAdded,
		creditsConsumed: creditsConsumed,
		refundsIssued:   refundsIssued,
		jobsSettled:     jobsSettled,
		paymentEvents:   paymentEvents,
		invitesAccepted: invitesAccepted,
		lotsExpired:     lotsExpired,
	}, nil
}

func (m *Metrics) RecordCreditsAdded(ctx context.Context, source string, amount int64) {
	if m == nil || m.creditsAdded == nil {
		return
	}
	m.creditsAdded.Add(ctx, amount, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) RecordCreditsConsumed(ctx context.Context, amount int64) {
	if m == nil || m.creditsConsumed == nil {
		return
	}
	m.creditsConsumed.Add(ctx, amount)
}

func (m *Metrics) RecordRefund(ctx context.Context, amount int64) {
	if m == nil || m.refundsIssued == nil {
		return
	}
	m.refundsIssued.Add(ctx, amount)
}

func (m *Metrics) RecordJobSettled(ctx context.Context, jobType, status string) {
	if m == nil || m.jobsSettled == nil {
		return
	}
	m.jobsSettled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_type", jobType),
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordPaymentEvent(ctx context.Context, method, status string) {
	if m == nil || m.paymentEvents == nil {
		return
	}
	m.paymentEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordInviteAccepted(ctx context.Context) {
	if m == nil || m.invitesAccepted == nil {
		return
	}
	m.invitesAccepted.Add(ctx, 1)
}

func (m *Metrics) RecordLotsExpired(ctx context.Context, kind string, count int64) {
	if m == nil || m.lotsExpired == nil {
		return
	}
	m.lotsExpired.Add(ctx, count, metric.WithAttributes(attribute.String("kind", kind)))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp metrics protocol %q", protocol)
	}
}
