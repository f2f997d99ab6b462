package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultHTTPAddr is where the ops endpoints and spectator feed listen.
	DefaultHTTPAddr = ":43127"
	// DefaultGRPCAddr is where the gRPC health service listens.
	DefaultGRPCAddr = ":43128"
	// DefaultTickRate is the fixed simulation rate in ticks per second.
	DefaultTickRate = 60
	// DefaultCountdownSeconds is the length of a round.
	DefaultCountdownSeconds = 499

	// DefaultSpectatorBuffer bounds the per-spectator event queue.
	DefaultSpectatorBuffer = 64
	// DefaultSpectatorWindow is the sliding window used to throttle spectator connections.
	DefaultSpectatorWindow = time.Minute
	// DefaultSpectatorBurst sets how many spectator connections may open per window.
	DefaultSpectatorBurst = 30
	// DefaultPingInterval controls the keepalive cadence for spectator connections.
	DefaultPingInterval = 30 * time.Second
	// DefaultEventRetention keeps this many events for late subscribers.
	DefaultEventRetention = 512

	// DefaultLogLevel controls verbosity for arena logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "arena.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true

	// FileEnv names the optional TOML file providing base values.
	FileEnv = "ARENA_CONFIG_FILE"
)

// Config captures all runtime tunables for the arena binary.
type Config struct {
	HTTPAddr         string
	GRPCAddr         string
	GRPCSharedSecret string
	TickRate         int
	CountdownSeconds int
	Seed             uint64
	SpectatorSecret  string
	SpectatorBuffer  int
	SpectatorWindow  time.Duration
	SpectatorBurst   int
	PingInterval     time.Duration
	EventRetention   int
	Logging          LoggingConfig
	// Source is the TOML file the values were layered on, empty when none was read.
	Source string
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// TickInterval converts the tick rate into the fixed simulation step.
func (c *Config) TickInterval() time.Duration {
	if c == nil || c.TickRate <= 0 {
		return time.Second / DefaultTickRate
	}
	return time.Second / time.Duration(c.TickRate)
}

// fileConfig mirrors Config with optional fields so absent keys keep their defaults.
type fileConfig struct {
	HTTPAddr         *string `toml:"http_addr"`
	GRPCAddr         *string `toml:"grpc_addr"`
	GRPCSharedSecret *string `toml:"grpc_shared_secret"`
	TickRate         *int    `toml:"tick_rate"`
	CountdownSeconds *int    `toml:"countdown_seconds"`
	Seed             *int64  `toml:"seed"`
	EventRetention   *int    `toml:"event_retention"`
	Spectator        struct {
		Secret       *string `toml:"secret"`
		Buffer       *int    `toml:"buffer"`
		Window       *string `toml:"window"`
		Burst        *int    `toml:"burst"`
		PingInterval *string `toml:"ping_interval"`
	} `toml:"spectator"`
	Logging struct {
		Level      *string `toml:"level"`
		Path       *string `toml:"path"`
		MaxSizeMB  *int    `toml:"max_size_mb"`
		MaxBackups *int    `toml:"max_backups"`
		MaxAgeDays *int    `toml:"max_age_days"`
		Compress   *bool   `toml:"compress"`
	} `toml:"logging"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		HTTPAddr:         DefaultHTTPAddr,
		GRPCAddr:         DefaultGRPCAddr,
		TickRate:         DefaultTickRate,
		CountdownSeconds: DefaultCountdownSeconds,
		SpectatorBuffer:  DefaultSpectatorBuffer,
		SpectatorWindow:  DefaultSpectatorWindow,
		SpectatorBurst:   DefaultSpectatorBurst,
		PingInterval:     DefaultPingInterval,
		EventRetention:   DefaultEventRetention,
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			Path:       DefaultLogPath,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}
}

// Load layers the optional TOML file and then ARENA_* environment variables over the
// defaults, returning every invalid value in one descriptive error. An empty path falls
// back to ARENA_CONFIG_FILE.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	var problems []string

	//1.- Apply the file layer first so the environment always wins.
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(FileEnv))
	}
	if path != "" {
		problems = append(problems, applyFile(cfg, path)...)
	}

	//2.- Overlay the environment.
	cfg.HTTPAddr = getString("ARENA_HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getString("ARENA_GRPC_ADDR", cfg.GRPCAddr)
	cfg.GRPCSharedSecret = getString("ARENA_GRPC_SHARED_SECRET", cfg.GRPCSharedSecret)
	cfg.SpectatorSecret = getString("ARENA_SPECTATOR_SECRET", cfg.SpectatorSecret)
	cfg.Logging.Level = getString("ARENA_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Path = getString("ARENA_LOG_PATH", cfg.Logging.Path)

	envPositiveInt(&problems, "ARENA_TICK_RATE", &cfg.TickRate)
	envPositiveInt(&problems, "ARENA_COUNTDOWN_SECONDS", &cfg.CountdownSeconds)
	envPositiveInt(&problems, "ARENA_SPECTATOR_BUFFER", &cfg.SpectatorBuffer)
	envPositiveInt(&problems, "ARENA_SPECTATOR_BURST", &cfg.SpectatorBurst)
	envPositiveInt(&problems, "ARENA_EVENT_RETENTION", &cfg.EventRetention)
	envPositiveInt(&problems, "ARENA_LOG_MAX_SIZE_MB", &cfg.Logging.MaxSizeMB)
	envNonNegativeInt(&problems, "ARENA_LOG_MAX_BACKUPS", &cfg.Logging.MaxBackups)
	envNonNegativeInt(&problems, "ARENA_LOG_MAX_AGE_DAYS", &cfg.Logging.MaxAgeDays)
	envPositiveDuration(&problems, "ARENA_SPECTATOR_WINDOW", &cfg.SpectatorWindow)
	envPositiveDuration(&problems, "ARENA_PING_INTERVAL", &cfg.PingInterval)

	if raw := strings.TrimSpace(os.Getenv("ARENA_SEED")); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ARENA_SEED must be an unsigned integer, got %q", raw))
		} else {
			cfg.Seed = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ARENA_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ARENA_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	//3.- Validate the merged result once so file values are checked too.
	if cfg.TickRate <= 0 || cfg.TickRate > 1000 {
		problems = append(problems, fmt.Sprintf("tick rate must be within 1..1000, got %d", cfg.TickRate))
	}
	if cfg.CountdownSeconds <= 0 {
		problems = append(problems, fmt.Sprintf("countdown seconds must be positive, got %d", cfg.CountdownSeconds))
	}
	if cfg.HTTPAddr != "" && cfg.HTTPAddr == cfg.GRPCAddr {
		problems = append(problems, "ARENA_HTTP_ADDR and ARENA_GRPC_ADDR must differ")
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) []string {
	var file fileConfig
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return []string{fmt.Sprintf("config file %s: %v", path, err)}
	}
	cfg.Source = path

	var problems []string
	for _, key := range meta.Undecoded() {
		problems = append(problems, fmt.Sprintf("config file %s: unknown key %q", path, key.String()))
	}

	setString(&cfg.HTTPAddr, file.HTTPAddr)
	setString(&cfg.GRPCAddr, file.GRPCAddr)
	setString(&cfg.GRPCSharedSecret, file.GRPCSharedSecret)
	setString(&cfg.SpectatorSecret, file.Spectator.Secret)
	setInt(&cfg.TickRate, file.TickRate)
	setInt(&cfg.CountdownSeconds, file.CountdownSeconds)
	setInt(&cfg.EventRetention, file.EventRetention)
	setInt(&cfg.SpectatorBuffer, file.Spectator.Buffer)
	setInt(&cfg.SpectatorBurst, file.Spectator.Burst)
	setString(&cfg.Logging.Level, file.Logging.Level)
	setString(&cfg.Logging.Path, file.Logging.Path)
	setInt(&cfg.Logging.MaxSizeMB, file.Logging.MaxSizeMB)
	setInt(&cfg.Logging.MaxBackups, file.Logging.MaxBackups)
	setInt(&cfg.Logging.MaxAgeDays, file.Logging.MaxAgeDays)
	if file.Logging.Compress != nil {
		cfg.Logging.Compress = *file.Logging.Compress
	}
	if file.Seed != nil {
		if *file.Seed < 0 {
			problems = append(problems, fmt.Sprintf("config file %s: seed must be non-negative, got %d", path, *file.Seed))
		} else {
			cfg.Seed = uint64(*file.Seed)
		}
	}
	for key, target := range map[string]struct {
		raw *string
		dst *time.Duration
	}{
		"spectator.window":        {file.Spectator.Window, &cfg.SpectatorWindow},
		"spectator.ping_interval": {file.Spectator.PingInterval, &cfg.PingInterval},
	} {
		if target.raw == nil {
			continue
		}
		duration, err := time.ParseDuration(strings.TrimSpace(*target.raw))
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("config file %s: %s must be a positive duration, got %q", path, key, *target.raw))
			continue
		}
		*target.dst = duration
	}
	return problems
}

func setString(dst *string, value *string) {
	if value != nil && strings.TrimSpace(*value) != "" {
		*dst = strings.TrimSpace(*value)
	}
}

func setInt(dst *int, value *int) {
	if value != nil {
		*dst = *value
	}
}

func envPositiveInt(problems *[]string, key string, dst *int) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		*problems = append(*problems, fmt.Sprintf("%s must be a positive integer, got %q", key, raw))
		return
	}
	*dst = value
}

func envNonNegativeInt(problems *[]string, key string, dst *int) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		*problems = append(*problems, fmt.Sprintf("%s must be a non-negative integer, got %q", key, raw))
		return
	}
	*dst = value
}

func envPositiveDuration(problems *[]string, key string, dst *time.Duration) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	duration, err := time.ParseDuration(raw)
	if err != nil || duration <= 0 {
		*problems = append(*problems, fmt.Sprintf("%s must be a positive duration, got %q", key, raw))
		return
	}
	*dst = duration
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
