package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// defaultGooseModel is used when a configured model id belongs to another
// provider's catalog.
const defaultGooseModel = "gpt-j-6b"

// GooseAIClient talks to the GooseAI completions API.
type GooseAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

type gooseRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type gooseResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewGooseAIClient creates a new GooseAI provider client
func NewGooseAIClient(apiKey string, timeout time.Duration) *GooseAIClient {
	settings := gobreaker.Settings{
		Name:        "goose_ai",
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

	return &GooseAIClient{
		baseURL: "https://api.goose.ai/v1",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer:  otel.Tracer("goose-ai-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL sets the base URL for testing purposes
func (c *GooseAIClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// Name returns the provider name used in configuration and metrics
func (c *GooseAIClient) Name() string { return "goose_ai" }

// Complete makes a single completion attempt against the completions API
func (c *GooseAIClient) Complete(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	ctx, span := c.tracer.Start(ctx, "goose_ai.complete")
	defer span.End()

	if c.apiKey == "" {
		return nil, fmt.Errorf("goose AI API key not configured")
	}

	model := opts.Model
	if model == "" || strings.HasPrefix(model, "claude") {
		model = defaultGooseModel
	}
	span.SetAttributes(attribute.String("model", model))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completeInternal(ctx, prompt, model, opts)
	})

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("goose AI completion failed: %w", err)
	}

	return result.(*Completion), nil
}

func (c *GooseAIClient) completeInternal(ctx context.Context, prompt, model string, opts Options) (*Completion, error) {
	reqBody := gooseRequest{
		Model:       model,
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("goose AI returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("goose AI returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp gooseResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Choices) == 0 || strings.TrimSpace(apiResp.Choices[0].Text) == "" {
		return nil, fmt.Errorf("goose AI returned an empty completion")
	}

	return &Completion{
		Text:         strings.TrimSpace(apiResp.Choices[0].Text),
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
	}, nil
}

// Healthy checks reachability via the engines listing endpoint
func (c *GooseAIClient) Healthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "goose_ai.health_check")
	defer span.End()

	if c.apiKey == "" {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "missing_api_key"))
		return false
	}
	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	url := fmt.Sprintf("%s/engines", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		span.RecordError(err)
		return false
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	// Short timeout for health checks
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	span.SetAttributes(attribute.Bool("healthy", healthy))

	return healthy
}
