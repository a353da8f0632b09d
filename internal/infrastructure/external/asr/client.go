package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/protokol-team/protokol/pkg/config"
)

// SegmenterClient calls the diarization sidecar over HTTP.
type SegmenterClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewSegmenterClient creates a segmenter client using values from the provided config.
func NewSegmenterClient(cfg *config.ASRConfig, logger *zap.Logger) *SegmenterClient {
	return &SegmenterClient{
		baseURL: cfg.SegmenterURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type segmentRequest struct {
	Path string `json:"path"`
}

type segmentResponse struct {
	Turns []SpeakerTurn `json:"turns"`
}

// Segment diarizes the recording into speaker turns.
func (c *SegmenterClient) Segment(ctx context.Context, audioPath string) ([]SpeakerTurn, error) {
	var out segmentResponse
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/segment", segmentRequest{Path: audioPath}, &out); err != nil {
		return nil, fmt.Errorf("segmentation failed: %w", err)
	}
	if c.logger != nil {
		c.logger.Debug("segmenter returned turns", zap.Int("count", len(out.Turns)))
	}
	return out.Turns, nil
}

// TranscriberClient calls the speech-to-text sidecar over HTTP.
type TranscriberClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewTranscriberClient creates a transcriber client using values from the provided config.
func NewTranscriberClient(cfg *config.ASRConfig, logger *zap.Logger) *TranscriberClient {
	return &TranscriberClient{
		baseURL: cfg.TranscriberURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type transcribeRequest struct {
	Path     string  `json:"path"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Language string  `json:"language,omitempty"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// TranscribeWindow transcribes one (start, end) window of the recording.
func (c *TranscriberClient) TranscribeWindow(ctx context.Context, audioPath string, start, end float64, language string) (string, error) {
	req := transcribeRequest{Path: audioPath, Start: start, End: end, Language: language}
	var out transcribeResponse
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/transcribe", req, &out); err != nil {
		return "", fmt.Errorf("transcription failed for window %.2f-%.2f: %w", start, end, err)
	}
	return out.Text, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
