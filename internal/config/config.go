// Package config loads the optional TOML config file that supplies defaults
// for transcription runs. Flags always win over config values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config mirrors the keys of config.toml.
type Config struct {
	Model                string  `toml:"model"`
	Language             string  `toml:"language"`
	ModelDir             string  `toml:"model_dir"`
	AutoDownload         bool    `toml:"auto_download"`
	FP16                 bool    `toml:"fp16"`
	Engine               string  `toml:"engine"`
	SilenceGate          bool    `toml:"silence_gate"`
	SilenceThresholdDBFS float64 `toml:"silence_threshold_dbfs"`
}

// Default returns the built-in defaults used when no config file exists.
func Default() Config {
	return Config{
		Model:                "base",
		Language:             "",
		AutoDownload:         true,
		FP16:                 false,
		SilenceGate:          true,
		SilenceThresholdDBFS: -65,
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}
