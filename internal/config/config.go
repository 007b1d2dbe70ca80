package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type SignalConfig struct {
	QueueSize    int           `mapstructure:"queue_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// InviteLimit callUser events are allowed per InviteWindow per session.
	InviteLimit  int           `mapstructure:"invite_limit"`
	InviteWindow time.Duration `mapstructure:"invite_window"`
}

type UploadConfig struct {
	Dir           string `mapstructure:"dir"`
	MaxBytes      int64  `mapstructure:"max_bytes"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type WorldConfig struct {
	// MapPath is optional; an empty open floor of Width x Height is used without it.
	MapPath string  `mapstructure:"map_path"`
	Width   float64 `mapstructure:"width"`
	Height  float64 `mapstructure:"height"`
}

type SpawnConfig struct {
	Attempts int `mapstructure:"attempts"`
}

type MeshConfig struct {
	AutoZone bool `mapstructure:"auto_zone"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables a rolling log file next to stderr output.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type PolicyConfig struct {
	Backpressure string `mapstructure:"backpressure"`
}

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	StaticPath     string        `mapstructure:"static_path"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	Secret         string        `mapstructure:"secret"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	QueueSize      int           `mapstructure:"queue_size"`

	Signal  SignalConfig  `mapstructure:"signal"`
	Upload  UploadConfig  `mapstructure:"upload"`
	World   WorldConfig   `mapstructure:"world"`
	Spawn   SpawnConfig   `mapstructure:"spawn"`
	Mesh    MeshConfig    `mapstructure:"mesh"`
	Logging LoggingConfig `mapstructure:"logging"`
	Policy  PolicyConfig  `mapstructure:"policy"`
}

// PongWait is how long the read side waits for a pong before giving up.
func (c Config) PongWait() time.Duration {
	return c.PingPeriod * 10 / 9
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "gather-dev-secret")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("queue_size", 256)

	v.SetDefault("signal.queue_size", 64)
	v.SetDefault("signal.write_timeout", "5s")
	v.SetDefault("signal.invite_limit", 5)
	v.SetDefault("signal.invite_window", "10s")

	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.max_bytes", 10<<20)
	v.SetDefault("upload.public_base_url", "")

	v.SetDefault("world.map_path", "")
	v.SetDefault("world.width", 1524)
	v.SetDefault("world.height", 776)

	v.SetDefault("spawn.attempts", 100)
	v.SetDefault("mesh.auto_zone", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 14)

	v.SetDefault("policy.backpressure", "drop")
}

// Load reads config/config.<CONFIG_ENV>.yaml, falling back to defaults,
// and applies GATHER_* environment overrides.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix("GATHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Static: %s\n", cfg.Mode, cfg.Port, cfg.StaticPath)
	return &cfg, nil
}

// Validate reports every violation at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("mode must be one of [debug, release, test], got %q", c.Mode))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be 1-65535, got %d", c.Port))
	}
	if c.ReadLimit <= 0 {
		errs = append(errs, fmt.Errorf("read_limit must be positive, got %d", c.ReadLimit))
	}
	if c.PingPeriod <= 0 {
		errs = append(errs, fmt.Errorf("ping_period must be positive, got %s", c.PingPeriod))
	}
	if c.Secret == "" {
		errs = append(errs, errors.New("secret must not be empty"))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("queue_size must be positive, got %d", c.QueueSize))
	}
	if c.Signal.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("signal.queue_size must be positive, got %d", c.Signal.QueueSize))
	}
	if c.Signal.InviteLimit <= 0 || c.Signal.InviteWindow <= 0 {
		errs = append(errs, errors.New("signal.invite_limit and signal.invite_window must be positive"))
	}
	if c.Upload.Dir == "" {
		errs = append(errs, errors.New("upload.dir must not be empty"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes))
	}
	if c.World.MapPath == "" && (c.World.Width <= 0 || c.World.Height <= 0) {
		errs = append(errs, errors.New("world.width and world.height must be positive without a map"))
	}
	if c.Spawn.Attempts <= 0 {
		errs = append(errs, fmt.Errorf("spawn.attempts must be positive, got %d", c.Spawn.Attempts))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of [console, json], got %q", c.Logging.Format))
	}
	switch c.Policy.Backpressure {
	case "drop", "kick":
	default:
		errs = append(errs, fmt.Errorf("policy.backpressure must be one of [drop, kick], got %q", c.Policy.Backpressure))
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %w", errors.Join(errs...))
	}
	return nil
}
