package cli

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxscribe/voxscribe/internal/whisper"
)

// runCommand executes the root command against an isolated config location
// so a developer's real config file never leaks into tests.
func runCommand(t *testing.T, app *appState, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	if app == nil {
		app = newAppState()
	}
	if app.configPath == "" {
		app.configPath = filepath.Join(t.TempDir(), "config.toml")
	}

	cmd := newRootCommand(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

type fakeEngine struct {
	result  whisper.Result
	err     error
	calls   int
	lastReq whisper.Request
}

func (f *fakeEngine) Transcribe(_ context.Context, req whisper.Request) (whisper.Result, error) {
	f.calls++
	f.lastReq = req
	return f.result, f.err
}

type panicEngine struct{}

func (panicEngine) Transcribe(context.Context, whisper.Request) (whisper.Result, error) {
	panic("engine blew up")
}

// installModel drops a placeholder model file so runs never trigger a
// download.
func installModel(t *testing.T, fileName string) string {
	t.Helper()

	modelDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, fileName), []byte("ggml"), 0o644))
	return modelDir
}

func writeAudioFile(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("audio-bytes"), 0o644))
	return path
}

// writeSilentWAV produces a valid all-zero PCM16 mono WAV file.
func writeSilentWAV(t *testing.T, sampleCount int) string {
	t.Helper()

	const sampleRate = 16000
	dataSize := sampleCount * 2
	fmtChunkSize := 16
	riffSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)

	out := make([]byte, 12+8+fmtChunkSize+8+dataSize)
	off := 0

	copy(out[off:], "RIFF")
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(riffSize))
	off += 4
	copy(out[off:], "WAVE")
	off += 4

	copy(out[off:], "fmt ")
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(fmtChunkSize))
	off += 4
	binary.LittleEndian.PutUint16(out[off:], 1)
	off += 2
	binary.LittleEndian.PutUint16(out[off:], 1)
	off += 2
	binary.LittleEndian.PutUint32(out[off:], sampleRate)
	off += 4
	binary.LittleEndian.PutUint32(out[off:], sampleRate*2)
	off += 4
	binary.LittleEndian.PutUint16(out[off:], 2)
	off += 2
	binary.LittleEndian.PutUint16(out[off:], 16)
	off += 2

	copy(out[off:], "data")
	off += 4
	binary.LittleEndian.PutUint32(out[off:], uint32(dataSize))

	path := filepath.Join(t.TempDir(), "silent.wav")
	require.NoError(t, os.WriteFile(path, out, 0o644))
	return path
}
