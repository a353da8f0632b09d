package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/protokol-team/protokol/pkg/config"
)

// ChatMessage is one message of a chat-completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions bound one chat call. NumPredict caps the output tokens,
// NumCtx hints the context window, JSONFormat asks for strict structured
// output.
type ChatOptions struct {
	NumCtx      int
	NumPredict  int
	Temperature float64
	JSONFormat  bool
}

// OllamaClient is a minimal client for the Ollama /api/chat endpoint.
// A non-stream call that hits the read timeout is retried exactly once as
// a streaming request before the failure is surfaced: a slow model can
// often still deliver its output incrementally.
type OllamaClient struct {
	baseURL     string
	model       string
	keepAlive   string
	readTimeout time.Duration
	client      *http.Client
	logger      *zap.Logger
}

// NewOllamaClient creates a chat client using values from the provided config.
func NewOllamaClient(cfg *config.OllamaConfig, logger *zap.Logger) *OllamaClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
	}
	return &OllamaClient{
		baseURL:     cfg.URL,
		model:       cfg.ChatModel,
		keepAlive:   cfg.KeepAlive,
		readTimeout: cfg.ReadTimeout,
		client:      &http.Client{Transport: transport},
		logger:      logger,
	}
}

type chatPayload struct {
	Model     string                 `json:"model"`
	Messages  []ChatMessage          `json:"messages"`
	Stream    bool                   `json:"stream"`
	KeepAlive string                 `json:"keep_alive,omitempty"`
	Format    string                 `json:"format,omitempty"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Chat sends one chat-completion request and returns the assistant content.
// An empty string is a valid non-error response.
func (c *OllamaClient) Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error) {
	payload := chatPayload{
		Model:     c.model,
		Messages:  messages,
		Stream:    false,
		KeepAlive: c.keepAlive,
		Options: map[string]interface{}{
			"num_ctx":     opts.NumCtx,
			"num_predict": opts.NumPredict,
			"temperature": opts.Temperature,
		},
	}
	if opts.JSONFormat {
		payload.Format = "json"
	}

	t0 := time.Now()
	content, err := c.chatOnce(ctx, payload)
	if err == nil {
		if c.logger != nil {
			c.logger.Debug("ollama chat done",
				zap.Int("chars", len(content)),
				zap.Duration("elapsed", time.Since(t0)),
			)
		}
		return content, nil
	}

	// Fallback attempt: only for a read timeout on our side, never for a
	// cancelled parent context.
	if !isTimeout(err) || ctx.Err() != nil {
		return "", err
	}
	if c.logger != nil {
		c.logger.Warn("⏰ ollama chat timed out, falling back to stream",
			zap.Duration("elapsed", time.Since(t0)),
		)
	}

	payload.Stream = true
	content, streamErr := c.chatStream(ctx, payload)
	if streamErr != nil {
		return "", fmt.Errorf("chat failed after stream fallback: %w", streamErr)
	}
	return content, nil
}

func (c *OllamaClient) chatOnce(ctx context.Context, payload chatPayload) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	resp, err := c.post(reqCtx, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	return cr.Message.Content, nil
}

func (c *OllamaClient) chatStream(ctx context.Context, payload chatPayload) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	resp, err := c.post(reqCtx, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt chatResponse
		if err := json.Unmarshal(line, &evt); err != nil {
			continue
		}
		buf.WriteString(evt.Message.Content)
		if evt.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream read failed: %w", err)
	}
	return buf.String(), nil
}

func (c *OllamaClient) post(ctx context.Context, payload chatPayload) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
