package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func newChatServer(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{},
		}
		if content != "" {
			resp["choices"] = []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_Complete(t *testing.T) {
	var body map[string]any
	srv := newChatServer(t, http.StatusOK, `{"type":"club"}`, &body)
	defer srv.Close()

	c := NewClientWithConfig(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1", JSONMode: true})
	got, err := c.Complete(context.Background(), "classify")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"type":"club"}` {
		t.Errorf("expected reply content, got %q", got)
	}

	if body["model"] != DefaultModel {
		t.Errorf("expected model %q, got %v", DefaultModel, body["model"])
	}
	if mt, _ := body["max_tokens"].(float64); int(mt) != DefaultMaxTokens {
		t.Errorf("expected max_tokens %d, got %v", DefaultMaxTokens, body["max_tokens"])
	}
	if _, ok := body["response_format"]; !ok {
		t.Error("expected response_format in json mode")
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"no choices", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newChatServer(t, tt.status, tt.content, nil)
			defer srv.Close()

			c := NewClientWithConfig(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
			if _, err := c.Complete(context.Background(), "x"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	c := NewClientWithConfig(ClientConfig{APIKey: "k"})
	if c.Model() != DefaultModel {
		t.Errorf("expected %q, got %q", DefaultModel, c.Model())
	}
	if c.maxTokens != DefaultMaxTokens {
		t.Errorf("expected %d, got %d", DefaultMaxTokens, c.maxTokens)
	}
	if c.temperature != float32(DefaultTemperature) {
		t.Errorf("expected %v, got %v", DefaultTemperature, c.temperature)
	}

	custom := NewClientWithConfig(ClientConfig{APIKey: "k", Model: "llama3", MaxTokens: 100})
	if custom.Model() != "llama3" || custom.maxTokens != 100 {
		t.Errorf("unexpected custom config %+v", custom)
	}
}

func TestClient_Temperature(t *testing.T) {
	zero, warm := 0.0, 0.7
	tests := []struct {
		name string
		in   *float64
		min  float64
		max  float64
	}{
		{"default", nil, 0.19, 0.21},
		{"explicit zero is sent", &zero, 0, 1e-6},
		{"explicit value", &warm, 0.69, 0.71},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			srv := newChatServer(t, http.StatusOK, "{}", &body)
			defer srv.Close()

			c := NewClientWithConfig(ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Temperature: tt.in})
			if _, err := c.Complete(context.Background(), "x"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, ok := body["temperature"].(float64)
			if !ok {
				t.Fatalf("expected temperature in request body, got %v", body["temperature"])
			}
			if got < tt.min || got > tt.max {
				t.Errorf("expected temperature in [%v, %v], got %v", tt.min, tt.max, got)
			}
		})
	}
}
