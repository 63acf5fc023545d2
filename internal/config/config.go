package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Language string  `yaml:"language" env:"APP_LANGUAGE" env-default:"nb"`
	Game     Game    `yaml:"game"`
	Session  Session `yaml:"session"`
}

type Game struct {
	ThinkingDelay time.Duration `yaml:"thinking-delay" env:"GAME_THINKING_DELAY" env-default:"500ms"`
	DefaultMode   string        `yaml:"default-mode" env:"GAME_DEFAULT_MODE" env-default:"computer"`
}

type Session struct {
	IdleTTL       time.Duration `yaml:"idle-ttl" env:"SESSION_IDLE_TTL" env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"SESSION_SWEEP_INTERVAL" env-default:"1m"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load reads path and applies environment overrides on top of it.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

// GetHTTPAddr returns the listen address for the HTTP server.
func (that *Config) GetHTTPAddr() string {
	return ":" + that.HTTPPort
}
