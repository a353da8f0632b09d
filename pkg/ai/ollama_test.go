package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/protokol-team/protokol/pkg/config"
)

func testOllamaConfig(url string, readTimeout time.Duration) *config.OllamaConfig {
	return &config.OllamaConfig{
		URL:            url,
		ChatModel:      "test-model",
		EmbeddingModel: "test-embed",
		ConnectTimeout: time.Second,
		ReadTimeout:    readTimeout,
		KeepAlive:      "5m",
		NumCtx:         2048,
	}
}

func TestChat_NonStream(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload chatPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if payload.Stream {
			t.Fatalf("expected non-stream request")
		}
		if payload.Model != "test-model" {
			t.Fatalf("unexpected model %q", payload.Model)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"content": "привет"},
			"done":    true,
		})
	}))
	defer ts.Close()

	client := NewOllamaClient(testOllamaConfig(ts.URL, 5*time.Second), nil)
	got, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, ChatOptions{NumCtx: 2048, NumPredict: 64})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "привет" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestChat_EmptyContentIsValid(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"content": ""},
			"done":    true,
		})
	}))
	defer ts.Close()

	client := NewOllamaClient(testOllamaConfig(ts.URL, 5*time.Second), nil)
	got, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, ChatOptions{})
	if err != nil {
		t.Fatalf("empty content must not be an error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty content, got %q", got)
	}
}

func TestChat_StreamFallbackAfterReadTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload chatPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if !payload.Stream {
			// The non-stream attempt never answers within the read timeout.
			time.Sleep(500 * time.Millisecond)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message": map[string]string{"content": "слишком поздно"},
				"done":    true,
			})
			return
		}
		for _, chunk := range []string{"по", "токовый ", "ответ"} {
			fmt.Fprintf(w, `{"message":{"content":"%s"},"done":false}`+"\n", chunk)
		}
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer ts.Close()

	client := NewOllamaClient(testOllamaConfig(ts.URL, 100*time.Millisecond), nil)
	got, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, ChatOptions{})
	if err != nil {
		t.Fatalf("expected stream fallback to succeed: %v", err)
	}
	if got != "потоковый ответ" {
		t.Fatalf("unexpected streamed content %q", got)
	}
}

func TestChat_JSONFormatFlag(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload chatPayload
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.Format != "json" {
			t.Fatalf("expected format=json, got %q", payload.Format)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"content": "{}"},
			"done":    true,
		})
	}))
	defer ts.Close()

	client := NewOllamaClient(testOllamaConfig(ts.URL, 5*time.Second), nil)
	if _, err := client.Chat(context.Background(), nil, ChatOptions{JSONFormat: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
