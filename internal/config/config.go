package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	DrainTimeout   time.Duration
	MaxRequestSize int
	LogLevel       slog.Level

	ServiceName  string
	OTLPEndpoint string
}

// TelemetryEnabled reports whether telemetry should be exported over OTLP.
func (c Config) TelemetryEnabled() bool {
	return c.OTLPEndpoint != ""
}

func Default() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           3000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		DrainTimeout:   10 * time.Millisecond,
		MaxRequestSize: 2 * 1024 * 1024,
		LogLevel:       slog.LevelInfo,
		ServiceName:    "restless",
	}
}

// Load builds the configuration from defaults, then the environment, then
// command line flags; later sources win.
func Load(args []string) (Config, error) {
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}

	logLevel := cfg.LogLevel.String()

	fs := flag.NewFlagSet("restless", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "interface to bind")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "port number")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "deadline for receiving a request")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "deadline for sending a response")
	fs.DurationVar(&cfg.DrainTimeout, "drain-timeout", cfg.DrainTimeout, "wait for bytes still in flight after a request")
	fs.IntVar(&cfg.MaxRequestSize, "max-request-size", cfg.MaxRequestSize, "largest accepted request in bytes")
	fs.StringVar(&logLevel, "log-level", logLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.ServiceName, "service-name", cfg.ServiceName, "service name reported to telemetry")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP gRPC endpoint; empty disables export")
	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		return cfg, err
	}
	cfg.LogLevel = level

	return cfg, cfg.validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("RESTLESS_HOST"); ok {
		c.Host = v
	}
	if v, ok := lookup("RESTLESS_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RESTLESS_PORT=%q", ErrInvalid, v)
		}
		c.Port = port
	}
	for name, dst := range map[string]*time.Duration{
		"RESTLESS_READ_TIMEOUT":  &c.ReadTimeout,
		"RESTLESS_WRITE_TIMEOUT": &c.WriteTimeout,
		"RESTLESS_DRAIN_TIMEOUT": &c.DrainTimeout,
	} {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, name, v)
		}
		*dst = d
	}
	if v, ok := lookup("RESTLESS_MAX_REQUEST_SIZE"); ok {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RESTLESS_MAX_REQUEST_SIZE=%q", ErrInvalid, v)
		}
		c.MaxRequestSize = size
	}
	if v, ok := lookup("RESTLESS_LOG_LEVEL"); ok {
		level, err := parseLevel(v)
		if err != nil {
			return err
		}
		c.LogLevel = level
	}
	if v, ok := lookup("OTEL_SERVICE_NAME"); ok {
		c.ServiceName = v
	}
	if v, ok := lookup("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
		c.OTLPEndpoint = v
	}
	return nil
}

func (c Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.DrainTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalid)
	}
	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("%w: max request size must be positive", ErrInvalid)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("%w: empty service name", ErrInvalid)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("%w: log level %q", ErrInvalid, s)
	}
	return level, nil
}
