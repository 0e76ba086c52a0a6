package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`

	// Filesystem workspace
	WorkspaceRoot string `mapstructure:"WORKSPACE_ROOT" validate:"required"`

	// External tools
	YtdlpPath       string `mapstructure:"YTDLP_PATH"`
	WhisperCmd      string `mapstructure:"WHISPER_CMD"`
	WhisperModel    string `mapstructure:"WHISPER_MODEL"`
	WhisperDevice   string `mapstructure:"WHISPER_DEVICE"`
	WhisperLanguage string `mapstructure:"WHISPER_LANGUAGE"`
	FaceDetectorCmd string `mapstructure:"FACE_DETECTOR_CMD"`

	// Progress fan-out. Empty disables the Redis publisher.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	// Sessions
	SessionSecret string `mapstructure:"SESSION_SECRET"`

	// Retention
	AnonymousTTLHours    int `mapstructure:"ANONYMOUS_TTL_HOURS"`
	SweepIntervalMinutes int `mapstructure:"SWEEP_INTERVAL_MINUTES"`

	// Clip defaults
	DefaultClipSeconds int `mapstructure:"DEFAULT_CLIP_SECONDS"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("mapstructure")
		if tag != "" {
			viper.BindEnv(tag)
		}
	}
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("WEBSERVER_PORT", 8090)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("WORKSPACE_ROOT", "/workspace")
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("WHISPER_CMD", "whisper")
	viper.SetDefault("WHISPER_MODEL", "base")
	viper.SetDefault("WHISPER_DEVICE", "cpu")
	viper.SetDefault("ANONYMOUS_TTL_HOURS", 24)
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 30)
	viper.SetDefault("DEFAULT_CLIP_SECONDS", 30)

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	slog.Info("Loaded configuration", "workspace", cfg.WorkspaceRoot, "port", cfg.WebServerPort)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
