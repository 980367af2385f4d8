package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// EnvEnginePath overrides the bundled engine lookup entirely.
const EnvEnginePath = "VOXSCRIBE_WHISPER_PATH"

// ErrEngineUnavailable marks every failure to locate a usable whisper-cli
// binary; the CLI maps it to the dependency-missing result.
var ErrEngineUnavailable = errors.New("whisper engine unavailable")

// BundledEngine runs the whisper-cli binary shipped alongside voxscribe.
// Constructing one doubles as the dependency probe: it fails when no usable
// engine binary can be located.
type BundledEngine struct {
	Executable string
	Logger     *zap.Logger
}

// NewBundledEngine locates the engine binary. Resolution order: explicit
// override flag, VOXSCRIBE_WHISPER_PATH, then well-known paths near the
// voxscribe executable.
func NewBundledEngine(logger *zap.Logger, override string) (*BundledEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path := strings.TrimSpace(override); path != "" {
		if err := ensureExecutable(path); err != nil {
			return nil, fmt.Errorf("%w: engine override %s: %v", ErrEngineUnavailable, path, err)
		}
		return &BundledEngine{Executable: path, Logger: logger}, nil
	}

	if path := strings.TrimSpace(os.Getenv(EnvEnginePath)); path != "" {
		if err := ensureExecutable(path); err != nil {
			return nil, fmt.Errorf("%w: %s is not executable: %v", ErrEngineUnavailable, EnvEnginePath, err)
		}
		return &BundledEngine{Executable: path, Logger: logger}, nil
	}

	selfExe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("%w: resolve voxscribe executable path: %v", ErrEngineUnavailable, err)
	}

	for _, candidate := range EnginePathCandidates(selfExe) {
		if err := ensureExecutable(candidate); err == nil {
			return &BundledEngine{Executable: candidate, Logger: logger}, nil
		}
	}

	return nil, fmt.Errorf("%w: no %s found near %s; set %s or install voxscribe from a release bundle",
		ErrEngineUnavailable, engineBinaryName(), selfExe, EnvEnginePath)
}

func EnginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	engineName := engineBinaryName()

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, engineName),
	}
}

// logger tolerates zero-value engines so direct construction stays safe.
func (b *BundledEngine) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func (b *BundledEngine) Transcribe(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return Result{}, errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return Result{}, errors.New("model path is required")
	}

	if err := ensureExecutable(b.Executable); err != nil {
		return Result{}, fmt.Errorf("%w: engine missing or not executable: %v", ErrEngineUnavailable, err)
	}

	outDir, err := os.MkdirTemp("", "voxscribe-")
	if err != nil {
		return Result{}, fmt.Errorf("create engine output directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	outBase := filepath.Join(outDir, "transcript")
	jsonOut := outBase + ".json"

	args := []string{"-m", req.ModelPath, "-f", req.AudioPath, "-oj", "-of", outBase}
	if lang := normalizeLanguage(req.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	if !req.FP16 {
		// Full precision: keep inference on the CPU path.
		args = append(args, "-ng")
	}

	cmd := exec.CommandContext(ctx, b.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	b.logger().Debug("running whisper engine", zap.String("engine", b.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return Result{}, classifyEngineError(b.Executable, err, strings.TrimSpace(stderr.String()))
	}

	content, err := os.ReadFile(jsonOut)
	if err != nil {
		return Result{}, fmt.Errorf("read engine output: %w", err)
	}

	return parseEngineOutput(content, req.Language)
}

func classifyEngineError(executable string, err error, stderr string) error {
	if isMissingSharedLibraryError(stderr) {
		return fmt.Errorf("engine at %s is missing required shared libraries (%s)", executable, stderr)
	}
	if isIllegalInstructionError(stderr) || isIllegalInstructionError(err.Error()) {
		return fmt.Errorf("engine crashed with an illegal CPU instruction; set %s to a whisper-cli binary built for this CPU", EnvEnginePath)
	}
	if stderr == "" {
		return fmt.Errorf("whisper transcribe failed: %w", err)
	}
	return fmt.Errorf("whisper transcribe failed: %w (%s)", err, stderr)
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(stderr)
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}
