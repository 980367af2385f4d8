package whisper

import (
	"encoding/json"
	"fmt"
	"strings"
)

// engineOutput mirrors the JSON file whisper-cli writes with -oj. Offsets are
// milliseconds from the start of the audio.
type engineOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseEngineOutput converts the engine's JSON report into a Result. The
// requested language is used as a fallback when the engine does not report
// one (older builds omit it for forced-language runs).
func parseEngineOutput(data []byte, requestedLanguage string) (Result, error) {
	var out engineOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, fmt.Errorf("parse engine output: %w", err)
	}

	segments := make([]Segment, 0, len(out.Transcription))
	var text strings.Builder
	for i, entry := range out.Transcription {
		segments = append(segments, Segment{
			ID:    i,
			Start: float64(entry.Offsets.From) / 1000.0,
			End:   float64(entry.Offsets.To) / 1000.0,
			Text:  entry.Text,
		})
		text.WriteString(entry.Text)
	}

	language := strings.TrimSpace(out.Result.Language)
	if language == "" || language == "auto" {
		language = normalizeLanguage(requestedLanguage)
	}

	return Result{
		Text:     strings.TrimSpace(text.String()),
		Segments: segments,
		Language: language,
	}, nil
}

func normalizeLanguage(language string) string {
	trimmed := strings.TrimSpace(strings.ToLower(language))
	if trimmed == "auto" {
		return ""
	}
	return trimmed
}
