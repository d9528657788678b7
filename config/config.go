package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/spidey/core"
	"github.com/searchktools/spidey/core/codec"
)

// EnvPrefix marks environment variables read by Load, e.g. SPIDEY_PORT
const EnvPrefix = "SPIDEY_"

// Log output formats
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration. It is built once by Load
// and not modified afterwards.
type Config struct {
	Port            string        `config:"port"`
	Root            string        `config:"root"`
	MimeTypesPath   string        `config:"mime.types"`
	DefaultMimeType string        `config:"mime.default"`
	Mode            string        `config:"mode"`
	MaxWorkers      int           `config:"max.workers"`
	AccessLog       string        `config:"access.log"`
	AccessLogFormat string        `config:"access.format"`
	LogLevel        string        `config:"log.level"`
	LogFormat       string        `config:"log.format"`
	ShutdownTimeout time.Duration `config:"shutdown.timeout"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port:            "9898",
		Root:            "www",
		MimeTypesPath:   "/etc/mime.types",
		DefaultMimeType: "text/plain",
		Mode:            core.ModeNameSingle,
		AccessLogFormat: codec.NameJSON,
		LogLevel:        "info",
		LogFormat:       LogFormatConsole,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from, lowest precedence first: defaults,
// the JSON file named by -config, SPIDEY_* environment variables and the
// flags set in args. It returns flag.ErrHelp when -h was given.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("spidey", flag.ContinueOnError)
	flags := Default()
	var configPath string

	fs.StringVar(&flags.Mode, "c", flags.Mode, "Concurrency mode: single or forking")
	fs.StringVar(&flags.Mode, "mode", flags.Mode, "Same as -c")
	fs.StringVar(&flags.MimeTypesPath, "m", flags.MimeTypesPath, "Path to mime.types file")
	fs.StringVar(&flags.MimeTypesPath, "mime-types", flags.MimeTypesPath, "Same as -m")
	fs.StringVar(&flags.DefaultMimeType, "M", flags.DefaultMimeType, "Default MIME type")
	fs.StringVar(&flags.DefaultMimeType, "default-mime", flags.DefaultMimeType, "Same as -M")
	fs.StringVar(&flags.Port, "p", flags.Port, "Port to listen on")
	fs.StringVar(&flags.Port, "port", flags.Port, "Same as -p")
	fs.StringVar(&flags.Root, "r", flags.Root, "Document root")
	fs.StringVar(&flags.Root, "root", flags.Root, "Same as -r")
	fs.IntVar(&flags.MaxWorkers, "max-workers", flags.MaxWorkers, "Concurrent connection limit in forking mode (0 = unlimited)")
	fs.StringVar(&flags.AccessLog, "access-log", flags.AccessLog, "Access log file (\"-\" = stdout, empty = off)")
	fs.StringVar(&flags.AccessLogFormat, "access-log-format", flags.AccessLogFormat, "Access log format: json or proto")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: trace, debug, info, warn, error")
	fs.StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: console or json")
	fs.DurationVar(&flags.ShutdownTimeout, "shutdown-timeout", flags.ShutdownTimeout, "Time allowed for in-flight requests on shutdown")
	fs.StringVar(&configPath, "config", "", "JSON configuration file")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: spidey [-h -c ModeType -m path -M mimetype -p port -r path]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrInvalidConfig, fs.Arg(0))
	}

	cfg := Default()
	m := NewManager()
	if configPath != "" {
		if err := m.LoadFromJSON(configPath); err != nil {
			return nil, err
		}
	}
	m.LoadFromEnv(EnvPrefix)
	if err := m.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "c", "mode":
			cfg.Mode = flags.Mode
		case "m", "mime-types":
			cfg.MimeTypesPath = flags.MimeTypesPath
		case "M", "default-mime":
			cfg.DefaultMimeType = flags.DefaultMimeType
		case "p", "port":
			cfg.Port = flags.Port
		case "r", "root":
			cfg.Root = flags.Root
		case "max-workers":
			cfg.MaxWorkers = flags.MaxWorkers
		case "access-log":
			cfg.AccessLog = flags.AccessLog
		case "access-log-format":
			cfg.AccessLogFormat = flags.AccessLogFormat
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "log-format":
			cfg.LogFormat = flags.LogFormat
		case "shutdown-timeout":
			cfg.ShutdownTimeout = flags.ShutdownTimeout
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return fmt.Errorf("%w: empty port", ErrInvalidConfig)
	case c.Root == "":
		return fmt.Errorf("%w: empty document root", ErrInvalidConfig)
	case c.DefaultMimeType == "":
		return fmt.Errorf("%w: empty default MIME type", ErrInvalidConfig)
	case c.MaxWorkers < 0:
		return fmt.Errorf("%w: negative max workers %d", ErrInvalidConfig, c.MaxWorkers)
	case c.ShutdownTimeout < 0:
		return fmt.Errorf("%w: negative shutdown timeout %v", ErrInvalidConfig, c.ShutdownTimeout)
	case c.LogFormat != LogFormatConsole && c.LogFormat != LogFormatJSON:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}

	if _, err := core.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := codec.GetCodec(c.AccessLogFormat); err != nil {
		return fmt.Errorf("%w: access log format: %v", ErrInvalidConfig, err)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// EngineMode returns the parsed concurrency mode
func (c *Config) EngineMode() core.Mode {
	m, _ := core.ParseMode(c.Mode)
	return m
}

// Level returns the parsed log level, info when unset
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Summary returns the settings worth logging at startup
func (c *Config) Summary() map[string]any {
	return map[string]any{
		"port":         c.Port,
		"root":         c.Root,
		"mode":         c.Mode,
		"mime_types":   c.MimeTypesPath,
		"mime_default": c.DefaultMimeType,
		"max_workers":  c.MaxWorkers,
		"access_log":   c.AccessLog,
	}
}
