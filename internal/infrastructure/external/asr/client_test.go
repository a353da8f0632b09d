package asr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/protokol-team/protokol/pkg/config"
)

func TestSegment(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/segment" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req segmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if req.Path != "/tmp/audio.wav" {
			t.Fatalf("unexpected audio path %q", req.Path)
		}
		json.NewEncoder(w).Encode(segmentResponse{Turns: []SpeakerTurn{
			{Label: "SPEAKER_00", Start: 0, End: 4.2},
			{Label: "SPEAKER_01", Start: 4.2, End: 9.8},
		}})
	}))
	defer ts.Close()

	client := NewSegmenterClient(&config.ASRConfig{SegmenterURL: ts.URL, Timeout: 5 * time.Second}, nil)
	turns, err := client.Segment(context.Background(), "/tmp/audio.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 2 || turns[1].Label != "SPEAKER_01" {
		t.Fatalf("unexpected turns %+v", turns)
	}
}

func TestTranscribeWindow(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transcribe" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req transcribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if req.Start != 4.2 || req.End != 9.8 || req.Language != "ru" {
			t.Fatalf("unexpected window %+v", req)
		}
		json.NewEncoder(w).Encode(transcribeResponse{Text: "всем привет"})
	}))
	defer ts.Close()

	client := NewTranscriberClient(&config.ASRConfig{TranscriberURL: ts.URL, Timeout: 5 * time.Second}, nil)
	text, err := client.TranscribeWindow(context.Background(), "/tmp/audio.wav", 4.2, 9.8, "ru")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "всем привет" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTranscribeWindow_ServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewTranscriberClient(&config.ASRConfig{TranscriberURL: ts.URL, Timeout: time.Second}, nil)
	if _, err := client.TranscribeWindow(context.Background(), "/tmp/a.wav", 0, 1, "ru"); err == nil {
		t.Fatalf("expected error for 5xx response")
	}
}
