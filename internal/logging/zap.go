package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects verbosity and the stderr log encoding.
type Options struct {
	Verbose bool
	JSON    bool
}

// New builds a logger that writes to stderr only. Stdout is reserved for the
// final JSON payload.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	stderr := zapcore.Lock(os.Stderr)
	core := zapcore.NewCore(newEncoder(opts.JSON), stderr, level)

	zapOpts := []zap.Option{zap.ErrorOutput(stderr)}
	if opts.Verbose {
		zapOpts = append(zapOpts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(core, zapOpts...), nil
}

func newEncoder(json bool) zapcore.Encoder {
	if json {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeCaller = nil
	return zapcore.NewConsoleEncoder(cfg)
}
