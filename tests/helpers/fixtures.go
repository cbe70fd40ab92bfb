package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

// FakeAnthropic mimics the Anthropic messages API for integration tests.
type FakeAnthropic struct {
	Server   *httptest.Server
	Text     string
	Fail     atomic.Bool
	Requests atomic.Int64
}

// NewFakeAnthropic starts a fake messages endpoint replying with text.
func NewFakeAnthropic(text string) *FakeAnthropic {
	f := &FakeAnthropic{Text: text}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.Requests.Add(1)
		if f.Fail.Load() {
			http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": f.Text},
			},
			"usage": map[string]int{"input_tokens": 12, "output_tokens": 34},
		})
	}))
	return f
}

func (f *FakeAnthropic) Close() { f.Server.Close() }

// FakeGooseAI mimics the GooseAI completions API for integration tests.
type FakeGooseAI struct {
	Server   *httptest.Server
	Text     string
	Fail     atomic.Bool
	Requests atomic.Int64
}

// NewFakeGooseAI starts a fake completions endpoint replying with text.
func NewFakeGooseAI(text string) *FakeGooseAI {
	f := &FakeGooseAI{Text: text}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/engines" {
			w.WriteHeader(http.StatusOK)
			return
		}
		f.Requests.Add(1)
		if f.Fail.Load() {
			http.Error(w, `{"error":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"text": f.Text},
			},
		})
	}))
	return f
}

func (f *FakeGooseAI) Close() { f.Server.Close() }
