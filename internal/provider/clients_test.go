package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicClient(t *testing.T) {
	client := NewAnthropicClient("test-key", 30*time.Second)

	assert.NotNil(t, client)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.tracer)
	assert.NotNil(t, client.breaker)
	assert.Equal(t, "anthropic", client.Name())
}

func TestAnthropicClient_Complete(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedError  string
		expectedText   string
	}{
		{
			name:   "successful_completion",
			apiKey: "test-key",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "POST", r.Method)
				assert.Equal(t, "/v1/messages", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
				assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

				var req anthropicRequest
				err := json.NewDecoder(r.Body).Decode(&req)
				assert.NoError(t, err)
				assert.Equal(t, "claude-3-5-sonnet-20241022", req.Model)
				require.Len(t, req.Messages, 1)
				assert.Equal(t, "user", req.Messages[0].Role)
				assert.Equal(t, "test prompt", req.Messages[0].Content)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"content": []map[string]string{{"type": "text", "text": "generated text"}},
					"usage":   map[string]int{"input_tokens": 12, "output_tokens": 34},
				})
			},
			expectedText: "generated text",
		},
		{
			name:   "server_error",
			apiKey: "test-key",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal server error"))
			},
			expectedError: "anthropic returned status 500",
		},
		{
			name:   "invalid_json_response",
			apiKey: "test-key",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("invalid json"))
			},
			expectedError: "failed to decode response",
		},
		{
			name:   "empty_completion",
			apiKey: "test-key",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"content": []map[string]string{},
				})
			},
			expectedError: "empty completion",
		},
		{
			name:          "missing_api_key",
			apiKey:        "",
			expectedError: "API key not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewAnthropicClient(tt.apiKey, 30*time.Second)

			if tt.serverResponse != nil {
				server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
				defer server.Close()
				client.SetBaseURL(server.URL)
			}

			opts := Options{Model: "claude-3-5-sonnet-20241022", MaxTokens: 4000, Temperature: 0.7}
			completion, err := client.Complete(context.Background(), "test prompt", opts)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedText, completion.Text)
				assert.Equal(t, 12, completion.InputTokens)
				assert.Equal(t, 34, completion.OutputTokens)
			}
		})
	}
}

func TestAnthropicClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "late"}},
		})
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key", 30*time.Second)
	client.SetBaseURL(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "test prompt", Options{Model: "claude-3-5-sonnet-20241022"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

func TestGooseAIClient_Complete(t *testing.T) {
	tests := []struct {
		name           string
		model          string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedError  string
		expectedText   string
	}{
		{
			name:  "successful_completion",
			model: "gpt-j-6b",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "POST", r.Method)
				assert.Equal(t, "/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				var req gooseRequest
				err := json.NewDecoder(r.Body).Decode(&req)
				assert.NoError(t, err)
				assert.Equal(t, "gpt-j-6b", req.Model)
				assert.Equal(t, "test prompt", req.Prompt)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"choices": []map[string]string{{"text": "  generated text \n"}},
					"usage":   map[string]int{"prompt_tokens": 5, "completion_tokens": 9},
				})
			},
			expectedText: "generated text",
		},
		{
			name:  "claude_model_mapped_to_goose_default",
			model: "claude-3-5-sonnet-20241022",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				var req gooseRequest
				err := json.NewDecoder(r.Body).Decode(&req)
				assert.NoError(t, err)
				assert.Equal(t, defaultGooseModel, req.Model)

				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"choices": []map[string]string{{"text": "ok"}},
				})
			},
			expectedText: "ok",
		},
		{
			name:  "server_error",
			model: "gpt-j-6b",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("bad gateway"))
			},
			expectedError: "goose AI returned status 502",
		},
		{
			name:  "empty_completion",
			model: "gpt-j-6b",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"choices": []map[string]string{{"text": "   "}},
				})
			},
			expectedError: "empty completion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := NewGooseAIClient("test-key", 30*time.Second)
			client.SetBaseURL(server.URL)

			completion, err := client.Complete(context.Background(), "test prompt", Options{Model: tt.model, MaxTokens: 2000, Temperature: 0.3})

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedText, completion.Text)
			}
		})
	}
}

func TestGooseAIClient_Healthy(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedHealth bool
	}{
		{
			name: "healthy_service",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "GET", r.Method)
				assert.Equal(t, "/engines", r.URL.Path)
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"data": [{"id": "gpt-j-6b"}]}`))
			},
			expectedHealth: true,
		},
		{
			name: "unhealthy_service",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			expectedHealth: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := NewGooseAIClient("test-key", 30*time.Second)
			client.SetBaseURL(server.URL)

			assert.Equal(t, tt.expectedHealth, client.Healthy(context.Background()))
		})
	}
}

func TestGooseAIClient_Healthy_MissingKey(t *testing.T) {
	client := NewGooseAIClient("", 30*time.Second)
	assert.False(t, client.Healthy(context.Background()))
}
