package provider

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/andresclaroavocado/project-launcher-backend/internal/metrics"
)

// Gateway presents an ordered list of providers as a single completion
// backend. Providers are attempted in order with the identical prompt; the
// first success wins. There is no same-provider retry, so latency stays
// bounded by one attempt per provider.
type Gateway struct {
	providers []Provider
	metrics   *metrics.ProviderMetrics
	tracer    trace.Tracer
}

// NewGateway creates a gateway over the given providers, attempted in the
// order supplied.
func NewGateway(pm *metrics.ProviderMetrics, providers ...Provider) (*Gateway, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	return &Gateway{
		providers: providers,
		metrics:   pm,
		tracer:    otel.Tracer("provider-gateway"),
	}, nil
}

// Order returns the provider names in fallback order.
func (g *Gateway) Order() []string {
	names := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		names = append(names, p.Name())
	}
	return names
}

// Complete attempts each provider in order and returns the first successful
// completion. If every provider fails it returns a *Error aggregating each
// provider's failure reason.
func (g *Gateway) Complete(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	ctx, span := g.tracer.Start(ctx, "provider_gateway.complete")
	defer span.End()

	span.SetAttributes(
		attribute.Int("providers.count", len(g.providers)),
		attribute.String("model", opts.Model),
	)

	var attempts []Attempt
	for _, p := range g.providers {
		start := time.Now()
		completion, err := p.Complete(ctx, prompt, opts)
		elapsed := time.Since(start)

		if g.metrics != nil {
			g.metrics.RecordAttempt(ctx, p.Name(), err == nil, elapsed)
		}

		if err != nil {
			log.Printf(`{"level":"warn","message":"Provider attempt failed","provider":"%s","latency_ms":%d,"error":"%v"}`,
				p.Name(), elapsed.Milliseconds(), err)
			attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
			continue
		}

		if g.metrics != nil {
			g.metrics.RecordTokens(ctx, p.Name(), completion.InputTokens, completion.OutputTokens)
		}
		span.SetAttributes(attribute.String("provider.used", p.Name()))
		return completion, nil
	}

	err := &Error{Attempts: attempts}
	span.RecordError(err)
	return nil, err
}

// Status reports per-provider reachability.
func (g *Gateway) Status(ctx context.Context) map[string]bool {
	ctx, span := g.tracer.Start(ctx, "provider_gateway.status")
	defer span.End()

	status := make(map[string]bool, len(g.providers))
	for _, p := range g.providers {
		status[p.Name()] = p.Healthy(ctx)
	}
	return status
}
