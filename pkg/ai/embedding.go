package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/protokol-team/protokol/pkg/config"
)

// EmbeddingClient is a minimal client for the Ollama /api/embeddings endpoint.
type EmbeddingClient struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewEmbeddingClient creates an embedding client using values from the provided config.
func NewEmbeddingClient(cfg *config.OllamaConfig, logger *zap.Logger) *EmbeddingClient {
	return &EmbeddingClient{
		baseURL: cfg.URL,
		model:   cfg.EmbeddingModel,
		client:  &http.Client{Timeout: cfg.ReadTimeout},
		logger:  logger,
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the vector for the given text. Transient failures are
// retried briefly; callers treat the final error as "skip this item".
func (e *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	var vec []float32
	embedFn := func() error {
		b, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
		if err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("ollama embeddings returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("ollama embeddings returned status %d", resp.StatusCode))
		}

		var er embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
			return fmt.Errorf("failed to decode embedding response: %w", err)
		}
		if len(er.Embedding) == 0 {
			return backoff.Permanent(fmt.Errorf("empty embedding for %d chars", len(text)))
		}
		vec = er.Embedding
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 15 * time.Second

	if err := backoff.Retry(embedFn, backoff.WithContext(bo, ctx)); err != nil {
		if e.logger != nil {
			e.logger.Warn("embedding request failed", zap.Int("text_len", len(text)), zap.Error(err))
		}
		return nil, err
	}
	return vec, nil
}
