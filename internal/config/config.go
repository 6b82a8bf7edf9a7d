// Package config loads the application settings from a TOML file, with
// defaults for the stock preview window timings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pbrt-iile/internal/models"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultAutoupdateInterval = 3 * time.Second
	DefaultFinishGrace        = 10 * time.Second
	DefaultGamma              = 2.2
	DefaultConfigName         = "pbrt-iile.toml"

	EngineOpenCV  = "opencv"
	EngineCommand = "command"
)

// Duration decodes TOML strings such as "3s" or "250ms"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type RendererConfig struct {
	Binary     string `toml:"binary"`
	Scene      string `toml:"scene"`
	Args       string `toml:"args"`
	ControlDir string `toml:"control_dir"`
	Autostart  bool   `toml:"autostart"`
}

type TonemapConfig struct {
	Engine  string  `toml:"engine"`
	Command string  `toml:"command"`
	Gamma   float64 `toml:"gamma"`
}

type PreviewConfig struct {
	Buffer             string   `toml:"buffer"`
	AutoupdateInterval Duration `toml:"autoupdate_interval"`
	FinishGrace        Duration `toml:"finish_grace"`
	Watch              bool     `toml:"watch"`
	WatchDebounce      Duration `toml:"watch_debounce"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Renderer RendererConfig `toml:"renderer"`
	Tonemap  TonemapConfig  `toml:"tonemap"`
	Preview  PreviewConfig  `toml:"preview"`
	Log      LogConfig      `toml:"log"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Renderer: RendererConfig{
			Binary:     "pbrt",
			ControlDir: ".",
			Autostart:  true,
		},
		Tonemap: TonemapConfig{
			Engine: EngineOpenCV,
			Gamma:  DefaultGamma,
		},
		Preview: PreviewConfig{
			Buffer:             "combined",
			AutoupdateInterval: Duration{DefaultAutoupdateInterval},
			FinishGrace:        Duration{DefaultFinishGrace},
			Watch:              true,
			WatchDebounce:      Duration{250 * time.Millisecond},
		},
	}
}

// Load reads path over the defaults. An empty path looks for
// pbrt-iile.toml in the user config directory and silently falls back to
// the defaults when it does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		dir, err := os.UserConfigDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "pbrt-iile", DefaultConfigName)
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", expanded, err)
	}

	return cfg, nil
}

// Resolve expands home-relative paths and validates the result
func (c *Config) Resolve() error {
	var err error
	if c.Renderer.ControlDir, err = expandPath(c.Renderer.ControlDir); err != nil {
		return err
	}
	if c.Renderer.Scene, err = expandPath(c.Renderer.Scene); err != nil {
		return err
	}
	if strings.ContainsRune(c.Renderer.Binary, filepath.Separator) || strings.HasPrefix(c.Renderer.Binary, "~") {
		if c.Renderer.Binary, err = expandPath(c.Renderer.Binary); err != nil {
			return err
		}
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	var errs []error

	if c.Renderer.Autostart && c.Renderer.Binary == "" {
		errs = append(errs, fmt.Errorf("renderer.binary is required when autostart is enabled"))
	}
	if c.Renderer.ControlDir == "" {
		errs = append(errs, fmt.Errorf("renderer.control_dir is required"))
	}

	switch c.Tonemap.Engine {
	case EngineOpenCV:
	case EngineCommand:
		if strings.TrimSpace(c.Tonemap.Command) == "" {
			errs = append(errs, fmt.Errorf("tonemap.command is required for the command engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown tonemap.engine %q", c.Tonemap.Engine))
	}

	if c.Tonemap.Gamma <= 0 {
		errs = append(errs, fmt.Errorf("tonemap.gamma must be positive, got %g", c.Tonemap.Gamma))
	}
	if _, err := c.InitialBuffer(); err != nil {
		errs = append(errs, fmt.Errorf("preview.buffer: %w", err))
	}
	if c.Preview.AutoupdateInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("preview.autoupdate_interval must be positive"))
	}
	if c.Preview.FinishGrace.Duration < 0 {
		errs = append(errs, fmt.Errorf("preview.finish_grace must not be negative"))
	}

	return errors.Join(errs...)
}

// InitialBuffer is the preview buffer shown when the window opens.
// An empty setting means the combined buffer.
func (c *Config) InitialBuffer() (models.PreviewBuffer, error) {
	if strings.TrimSpace(c.Preview.Buffer) == "" {
		return models.PreviewCombined, nil
	}
	return models.ParsePreviewBuffer(c.Preview.Buffer)
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("failed to expand path %q: %w", p, err)
	}
	return filepath.Abs(expanded)
}
