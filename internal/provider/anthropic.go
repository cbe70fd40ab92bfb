package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient talks to the Anthropic messages API.
type AnthropicClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicClient creates a new Anthropic provider client
func NewAnthropicClient(apiKey string, timeout time.Duration) *AnthropicClient {
	settings := gobreaker.Settings{
		Name:        "anthropic",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &AnthropicClient{
		baseURL: "https://api.anthropic.com",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer:  otel.Tracer("anthropic-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL sets the base URL for testing purposes
func (c *AnthropicClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Name returns the provider name used in configuration and metrics
func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete makes a single completion attempt against the messages API
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	ctx, span := c.tracer.Start(ctx, "anthropic.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("model", opts.Model),
		attribute.Int("max_tokens", opts.MaxTokens),
	)

	if c.apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completeInternal(ctx, prompt, opts)
	})

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("anthropic completion failed: %w", err)
	}

	return result.(*Completion), nil
}

func (c *AnthropicClient) completeInternal(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	reqBody := anthropicRequest{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("anthropic returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Content) == 0 || apiResp.Content[0].Text == "" {
		return nil, fmt.Errorf("anthropic returned an empty completion")
	}

	return &Completion{
		Text:         apiResp.Content[0].Text,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
	}, nil
}

// Healthy reports whether the provider is currently usable. A missing key or
// an open circuit breaker both count as unreachable.
func (c *AnthropicClient) Healthy(ctx context.Context) bool {
	_, span := c.tracer.Start(ctx, "anthropic.health_check")
	defer span.End()

	if c.apiKey == "" {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "missing_api_key"))
		return false
	}
	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	span.SetAttributes(attribute.Bool("healthy", true))
	return true
}
