package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/voxscribe/voxscribe/internal/whisper"
)

// ErrAlreadyReported tells main that the failure was already emitted as a
// JSON error result on stdout; only the exit code remains to be set.
var ErrAlreadyReported = errors.New("error already reported")

// DependencyError means the inference engine could not be located.
type DependencyError struct {
	Cause error
}

func (e *DependencyError) Error() string { return "missing required dependencies: " + e.Cause.Error() }
func (e *DependencyError) Unwrap() error { return e.Cause }

// InputError means the requested audio file does not exist.
type InputError struct {
	Path string
}

func (e *InputError) Error() string { return "audio file not found: " + e.Path }

// InferenceError wraps any failure between model resolution and output
// parsing.
type InferenceError struct {
	Cause error
}

func (e *InferenceError) Error() string { return e.Cause.Error() }
func (e *InferenceError) Unwrap() error { return e.Cause }

// Result is the success payload. Exactly these three keys appear on the
// wire, in all success cases.
type Result struct {
	Text     string            `json:"text"`
	Segments []whisper.Segment `json:"segments"`
	Language string            `json:"language"`
}

type errorResult struct {
	Error string `json:"error"`
}

func newResult(r whisper.Result) Result {
	segments := r.Segments
	if segments == nil {
		segments = []whisper.Segment{}
	}
	return Result{Text: r.Text, Segments: segments, Language: r.Language}
}

// writeResult emits exactly one line of JSON.
func writeResult(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// errorMessage maps the error taxonomy onto the wire messages. Dependency
// and input errors use fixed texts; everything else surfaces its own message.
func errorMessage(err error) string {
	var depErr *DependencyError
	if errors.As(err, &depErr) {
		return "Missing required dependencies"
	}

	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return "Audio file not found: " + inputErr.Path
	}

	var infErr *InferenceError
	if errors.As(err, &infErr) {
		return infErr.Cause.Error()
	}

	return err.Error()
}
