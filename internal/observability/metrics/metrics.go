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
	versionsCreated   metric.Int64Counter
	rangeConflicts    metric.Int64Counter
	versionsCancelled metric.Int64Counter
	rateLookups       metric.Int64Counter
	conversions       metric.Int64Counter
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
		name = "pricebook"
	}
	meter := provider.Meter(name)

	versionsCreated, err := meter.Int64Counter("pricebook_versions_created_total")
	if err != nil {
		return nil, err
	}
	rangeConflicts, err := meter.Int64Counter("pricebook_range_conflicts_total")
	if err != nil {
		return nil, err
	}
	versionsCancelled, err := meter.Int64Counter("pricebook_versions_cancelled_total")
	if err != nil {
		return nil, err
	}
	rateLookups, err := meter.Int64Counter("pricebook_rate_lookups_total")
	if err != nil {
		return nil, err
	}
	conversions, err := meter.Int64Counter("pricebook_conversions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		versionsCreated:   versionsCreated,
		rangeConflicts:    rangeConflicts,
		versionsCancelled: versionsCancelled,
		rateLookups:       rateLookups,
		conversions:       conversions,
	}, nil
}

// RecordVersionCreated increments version create counts.
func (m *Metrics) RecordVersionCreated(ctx context.Context, subjectType, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("subject_type", strings.TrimSpace(subjectType)),
		attribute.String("source", strings.TrimSpace(source)),
	)
	m.versionsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRangeConflict increments overlap rejection counts.
func (m *Metrics) RecordRangeConflict(ctx context.Context, subjectType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("subject_type", strings.TrimSpace(subjectType)))
	m.rangeConflicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordVersionCancelled increments cancellation counts.
func (m *Metrics) RecordVersionCancelled(ctx context.Context, subjectType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("subject_type", strings.TrimSpace(subjectType)))
	m.versionsCancelled.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLookup increments effective rate lookup counts.
func (m *Metrics) RecordRateLookup(ctx context.Context, result string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("result", strings.TrimSpace(result)))
	m.rateLookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordConversion increments currency conversion counts.
func (m *Metrics) RecordConversion(ctx context.Context, fromCurrency, toCurrency string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_currency", strings.TrimSpace(fromCurrency)),
		attribute.String("to_currency", strings.TrimSpace(toCurrency)),
	)
	m.conversions.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"subject_type":  {},
	"source":        {},
	"result":        {},
	"from_currency": {},
	"to_currency":   {},
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
