package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("provider-metrics")

// ProviderMetrics records advisory bookkeeping for text-completion provider
// attempts: latency, outcome and token cost. None of it is load-bearing for
// correctness; it exists for later inspection.
type ProviderMetrics struct {
	attemptsCounter  metric.Int64Counter
	failuresCounter  metric.Int64Counter
	latencyHistogram metric.Float64Histogram
	tokensCounter    metric.Int64Counter
}

// NewProviderMetrics creates a new provider metrics collector
func NewProviderMetrics() (*ProviderMetrics, error) {
	attemptsCounter, err := meter.Int64Counter(
		"project_launcher.provider.attempts",
		metric.WithDescription("Total number of provider completion attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	failuresCounter, err := meter.Int64Counter(
		"project_launcher.provider.failures",
		metric.WithDescription("Total number of failed provider completion attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	latencyHistogram, err := meter.Float64Histogram(
		"project_launcher.provider.latency",
		metric.WithDescription("Latency of provider completion attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensCounter, err := meter.Int64Counter(
		"project_launcher.provider.tokens",
		metric.WithDescription("Token usage reported by providers"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		attemptsCounter:  attemptsCounter,
		failuresCounter:  failuresCounter,
		latencyHistogram: latencyHistogram,
		tokensCounter:    tokensCounter,
	}, nil
}

// RecordAttempt records one completion attempt against a provider
func (pm *ProviderMetrics) RecordAttempt(ctx context.Context, provider string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}

	pm.attemptsCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider.name", provider),
			attribute.String("status", status),
		),
	)
	pm.latencyHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("provider.name", provider),
			attribute.String("status", status),
		),
	)
	if !success {
		pm.failuresCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("provider.name", provider),
			),
		)
	}
}

// RecordTokens records token cost for a completed attempt, when known
func (pm *ProviderMetrics) RecordTokens(ctx context.Context, provider string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		pm.tokensCounter.Add(ctx, int64(inputTokens),
			metric.WithAttributes(
				attribute.String("provider.name", provider),
				attribute.String("direction", "input"),
			),
		)
	}
	if outputTokens > 0 {
		pm.tokensCounter.Add(ctx, int64(outputTokens),
			metric.WithAttributes(
				attribute.String("provider.name", provider),
				attribute.String("direction", "output"),
			),
		)
	}
}
