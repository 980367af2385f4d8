package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/voxscribe/voxscribe/internal/audio"
	"github.com/voxscribe/voxscribe/internal/config"
	"github.com/voxscribe/voxscribe/internal/download"
	"github.com/voxscribe/voxscribe/internal/logging"
	"github.com/voxscribe/voxscribe/internal/platform"
	"github.com/voxscribe/voxscribe/internal/version"
	"github.com/voxscribe/voxscribe/internal/whisper"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool

	configPath   string
	audioPath    string
	model        modelFlag
	language     string
	fp16         bool
	modelDir     string
	autoDownload bool
	enginePath   string
	silenceGate  bool
	silenceDBFS  float64

	logger *zap.Logger

	probeFn func() (whisper.Engine, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCommand(newAppState())
}

func newAppState() *appState {
	defaults := config.Default()
	app := &appState{
		model:        modelFlag{value: defaults.Model},
		language:     defaults.Language,
		autoDownload: defaults.AutoDownload,
		fp16:         defaults.FP16,
		silenceGate:  defaults.SilenceGate,
		silenceDBFS:  defaults.SilenceThresholdDBFS,
	}
	app.probeFn = app.resolveEngine
	return app
}

func newRootCommand(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "voxscribe",
		Short:         "Transcribe an audio file with a bundled whisper engine and print one JSON result",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger

			if err := app.applyConfig(cmd.Flags()); err != nil {
				return err
			}
			app.language = sanitizeLanguage(app.language)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := app.runTranscription(cmd.Context())
			if err != nil {
				app.log().Error("transcription failed", zap.Error(err))
				if werr := writeResult(cmd.OutOrStdout(), errorResult{Error: errorMessage(err)}); werr != nil {
					return werr
				}
				return ErrAlreadyReported
			}
			return writeResult(cmd.OutOrStdout(), res)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindConfigFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndDownloadFlags(cmd, app)
	bindEngineFlags(cmd, app)
	bindSilenceFlags(cmd, app)
	cmd.Flags().StringVar(&app.audioPath, "audio_path", "", "Path to the audio file to transcribe")
	_ = cmd.MarkFlagRequired("audio_path")

	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs on stderr")
	cmd.Flags().BoolVar(&app.jsonLogs, "json-logs", app.jsonLogs, "Log diagnostics as JSON on stderr")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindConfigFlag(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.configPath, "config", app.configPath, "Path to config file (TOML)")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().Var(&app.model, "model", "Model size: "+strings.Join(whisper.ModelNames(), "|"))
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func bindLanguageAndDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.language, "language", app.language, "Language code hint (empty = auto-detect)")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindEngineFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.enginePath, "engine", app.enginePath, "Path to the whisper-cli binary (overrides bundled lookup)")
	cmd.Flags().BoolVar(&app.fp16, "fp16", app.fp16, "Allow reduced-precision (GPU) inference")
}

func bindSilenceFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Detect near-silent WAV audio and skip inference")
	cmd.Flags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
}

// applyConfig layers config-file values under any flag the user did not set
// explicitly.
func (a *appState) applyConfig(flags *pflag.FlagSet) error {
	cfgPath := a.configPath
	if cfgPath == "" {
		resolved, err := platform.ResolveConfigFile("")
		if err != nil {
			a.log().Debug("no default config location for this platform", zap.Error(err))
			return nil
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if !flags.Changed("model") && cfg.Model != "" {
		if err := a.model.Set(cfg.Model); err != nil {
			return fmt.Errorf("invalid model in config %s: %w", cfgPath, err)
		}
	}
	if !flags.Changed("language") {
		a.language = cfg.Language
	}
	if !flags.Changed("model-dir") && cfg.ModelDir != "" {
		a.modelDir = cfg.ModelDir
	}
	if !flags.Changed("auto-download") {
		a.autoDownload = cfg.AutoDownload
	}
	if !flags.Changed("fp16") {
		a.fp16 = cfg.FP16
	}
	if !flags.Changed("engine") && cfg.Engine != "" {
		a.enginePath = cfg.Engine
	}
	if !flags.Changed("silence-gate") {
		a.silenceGate = cfg.SilenceGate
	}
	if !flags.Changed("silence-threshold-dbfs") {
		a.silenceDBFS = cfg.SilenceThresholdDBFS
	}

	return nil
}

// runTranscription produces either a success result or one of the taxonomy
// errors. The recover keeps the JSON contract intact even for panics out of
// lower layers.
func (a *appState) runTranscription(ctx context.Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InferenceError{Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	probeFn := a.probeFn
	if probeFn == nil {
		probeFn = a.resolveEngine
	}

	engine, probeErr := probeFn()
	if probeErr != nil {
		return Result{}, &DependencyError{Cause: probeErr}
	}

	if _, statErr := os.Stat(a.audioPath); statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return Result{}, &InputError{Path: a.audioPath}
		}
		return Result{}, &InferenceError{Cause: fmt.Errorf("stat audio file: %w", statErr)}
	}

	if gated, skipped := a.silenceGateResult(); skipped {
		return gated, nil
	}

	model, modelErr := a.ensureModelAvailable(ctx)
	if modelErr != nil {
		return Result{}, &InferenceError{Cause: modelErr}
	}

	a.log().Info("transcribing",
		zap.String("audio", a.audioPath),
		zap.String("model", model.Path),
		zap.String("language", a.language),
		zap.Bool("fp16", a.fp16))
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()

	result, transcribeErr := engine.Transcribe(ctx, whisper.Request{
		AudioPath: a.audioPath,
		ModelPath: model.Path,
		Language:  a.language,
		FP16:      a.fp16,
	})
	stopSpinner()
	if transcribeErr != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(transcribeErr))
		return Result{}, &InferenceError{Cause: transcribeErr}
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))

	return newResult(result), nil
}

func (a *appState) resolveEngine() (whisper.Engine, error) {
	engine, err := whisper.NewBundledEngine(a.log(), a.enginePath)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

// silenceGateResult short-circuits near-silent WAV input to an empty success
// result. Analysis failures are logged and ignored so odd containers still
// reach the engine.
func (a *appState) silenceGateResult() (Result, bool) {
	if !a.silenceGate || !strings.EqualFold(filepath.Ext(a.audioPath), ".wav") {
		return Result{}, false
	}

	metrics, err := audio.Analyze(a.audioPath)
	if err != nil {
		a.log().Warn("silence gate analysis failed; continuing transcription", zap.Error(err), zap.String("audio", a.audioPath))
		return Result{}, false
	}
	if !metrics.SilentBelow(a.silenceDBFS) {
		return Result{}, false
	}

	a.log().Info("audio considered silent; skipping inference",
		zap.String("audio", a.audioPath),
		zap.Float64("rms_dbfs", metrics.RMSdBFS),
		zap.Float64("peak_dbfs", metrics.PeakdBFS),
		zap.Float64("threshold_dbfs", a.silenceDBFS))

	return Result{Text: "", Segments: []whisper.Segment{}, Language: a.language}, true
}

func (a *appState) ensureModelAvailable(ctx context.Context) (whisper.ResolvedModel, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(a.model.value, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.autoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `voxscribe setup --model %s` or enable --auto-download", resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.File(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "auto" {
		return ""
	}
	return trimmed
}
