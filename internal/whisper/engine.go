package whisper

import "context"

// Request describes one transcription run.
type Request struct {
	AudioPath string
	ModelPath string
	// Language is a hint like "en" or "de"; empty or "auto" lets the model
	// detect the language.
	Language string
	// FP16 allows the engine's reduced-precision GPU path. When false the
	// engine is pinned to full-precision CPU inference.
	FP16 bool
}

// Segment is a timed span of transcribed text. Offsets are seconds.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result carries everything the engine reports for one file.
type Result struct {
	Text     string
	Segments []Segment
	Language string
}

type Engine interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}
