// Package asr wraps the speech model sidecars (diarization and
// speech-to-text). Both run next to the pipeline and share its
// filesystem, so requests reference the local audio path.
package asr

import "context"

// SpeakerTurn is one diarized span of the recording.
type SpeakerTurn struct {
	Label string  `json:"label"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segmenter splits a recording into speaker turns.
type Segmenter interface {
	Segment(ctx context.Context, audioPath string) ([]SpeakerTurn, error)
}

// Transcriber turns one time window of a recording into text.
type Transcriber interface {
	TranscribeWindow(ctx context.Context, audioPath string, start, end float64, language string) (string, error)
}
