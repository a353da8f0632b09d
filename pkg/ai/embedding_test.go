package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestEmbed_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if req.Model != "test-embed" {
			t.Fatalf("unexpected model %q", req.Model)
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer ts.Close()

	client := NewEmbeddingClient(testOllamaConfig(ts.URL, 5*time.Second), nil)
	vec, err := client.Embed(context.Background(), "текст сегмента")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestEmbed_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	client := NewEmbeddingClient(testOllamaConfig(ts.URL, 5*time.Second), nil)
	if _, err := client.Embed(context.Background(), "текст"); err == nil {
		t.Fatalf("expected error for 4xx response")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls)
	}
}

func TestEmbed_ServerErrorIsRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.5}})
	}))
	defer ts.Close()

	client := NewEmbeddingClient(testOllamaConfig(ts.URL, 5*time.Second), nil)
	vec, err := client.Embed(context.Background(), "текст")
	if err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}
	if len(vec) != 1 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestEmbed_EmptyTextRejected(t *testing.T) {
	client := NewEmbeddingClient(testOllamaConfig("http://localhost:1", time.Second), nil)
	if _, err := client.Embed(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty text")
	}
}
