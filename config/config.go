// Package config loads voicequest settings. Values are layered: flag
// defaults, then an optional YAML file, then flags set on the command line.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/nathoo/voicequest/logging"
	"github.com/nathoo/voicequest/nlu"
	"github.com/nathoo/voicequest/types"
)

// Config holds every setting of a play session.
type Config struct {
	Game    string        `koanf:"game"`
	UI      string        `koanf:"ui"`
	Restart string        `koanf:"restart"`
	Log     LogConfig     `koanf:"log"`
	NLU     NLUConfig     `koanf:"nlu"`
	Listen  ListenConfig  `koanf:"listen"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
	File   string `koanf:"file"`
}

// NLUConfig selects and configures the interpreter.
type NLUConfig struct {
	Mode       string        `koanf:"mode"`
	Endpoint   string        `koanf:"endpoint"`
	Key        string        `koanf:"key"`
	Project    string        `koanf:"project"`
	Deployment string        `koanf:"deployment"`
	Timeout    time.Duration `koanf:"timeout"`
	Retries    uint64        `koanf:"retries"`
}

// ListenConfig controls how long a driver waits for an answer.
type ListenConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// MetricsConfig configures the /metrics endpoint. An empty address disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// UI and NLU modes.
const (
	UITerminal = "tui"
	UIConsole  = "cli"

	NLUKeyword = "keyword"
	NLURemote  = "remote"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Game: "games/detective",
		UI:   UITerminal,
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		NLU: NLUConfig{
			Mode:    NLUKeyword,
			Timeout: nlu.DefaultRemoteTimeout,
			Retries: nlu.DefaultRemoteRetries,
		},
		Listen: ListenConfig{Timeout: 20 * time.Second},
	}
}

// RegisterFlags adds a flag for every key, named with '-' for '.',
// e.g. --nlu-endpoint for nlu.endpoint.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("game", d.Game, "game content directory")
	fs.String("ui", d.UI, "driver: tui or cli")
	fs.String("restart", d.Restart, "override the game's restart policy: keep or reset")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-file", d.Log.File, "log file (empty = stderr for cli, discarded for tui)")
	fs.String("nlu-mode", d.NLU.Mode, "interpreter: keyword or remote")
	fs.String("nlu-endpoint", d.NLU.Endpoint, "conversation-analysis prediction URL")
	fs.String("nlu-key", d.NLU.Key, "conversation-analysis subscription key")
	fs.String("nlu-project", d.NLU.Project, "conversation-analysis project name")
	fs.String("nlu-deployment", d.NLU.Deployment, "conversation-analysis deployment name")
	fs.Duration("nlu-timeout", d.NLU.Timeout, "per-request timeout of the remote interpreter")
	fs.Uint64("nlu-retries", d.NLU.Retries, "retries of a failed remote request")
	fs.Duration("listen-timeout", d.Listen.Timeout, "time to wait for an answer before no-input (0 = wait forever)")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics HTTP address (empty = disabled)")
}

// Load reads path (if not empty) and then the flags in fs (if not nil).
// Flags the user did not set only fill keys the file left out.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	errb := oops.Code("CONFIG_INVALID").With("file", path)
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errb.Wrapf(err, "reading config file")
		}
	}
	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			return strings.ReplaceAll(f.Name, "-", "."), posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, errb.Wrapf(err, "reading flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errb.Wrapf(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errb.Wrap(err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Game == "" {
		return fmt.Errorf("game is required")
	}
	if c.UI != UITerminal && c.UI != UIConsole {
		return fmt.Errorf("ui must be %q or %q, got %q", UITerminal, UIConsole, c.UI)
	}
	switch types.RestartPolicy(c.Restart) {
	case "", types.RestartKeep, types.RestartReset:
	default:
		return fmt.Errorf("restart must be %q or %q, got %q", types.RestartKeep, types.RestartReset, c.Restart)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.NLU.Mode {
	case NLUKeyword:
	case NLURemote:
		if c.NLU.Endpoint == "" || c.NLU.Key == "" {
			return fmt.Errorf("nlu.endpoint and nlu.key are required in remote mode")
		}
		if c.NLU.Project == "" || c.NLU.Deployment == "" {
			return fmt.Errorf("nlu.project and nlu.deployment are required in remote mode")
		}
	default:
		return fmt.Errorf("nlu.mode must be %q or %q, got %q", NLUKeyword, NLURemote, c.NLU.Mode)
	}
	if c.NLU.Timeout < 0 || c.Listen.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// RemoteConfig returns the settings of the remote interpreter.
func (c *Config) RemoteConfig() nlu.RemoteConfig {
	return nlu.RemoteConfig{
		Endpoint:   c.NLU.Endpoint,
		Key:        c.NLU.Key,
		Project:    c.NLU.Project,
		Deployment: c.NLU.Deployment,
		Timeout:    c.NLU.Timeout,
		Retries:    c.NLU.Retries,
	}
}
