package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		APIURL         string `yaml:"api_url"`
		RequestTimeout string `yaml:"request_timeout"`
		TimeLimit      string `yaml:"time_limit"`
		Tick           string `yaml:"tick"`
		LockDelay      string `yaml:"lock_delay"`
		FallbackTTL    string `yaml:"fallback_ttl"`
		HistoryLimit   int    `yaml:"history_limit"`
		DefaultAmount  int    `yaml:"default_amount"`
	} `yaml:"quiz"`
	Storage struct {
		Driver string `yaml:"driver"` // memory, redis or sqlite
		Path   string `yaml:"path"`
	} `yaml:"storage"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Redis.TTL = "10m"
	cfg.Quiz.APIURL = "https://opentdb.com/api.php"
	cfg.Quiz.RequestTimeout = "10s"
	cfg.Quiz.TimeLimit = "30s"
	cfg.Quiz.Tick = "1s"
	cfg.Quiz.LockDelay = "600ms"
	cfg.Quiz.FallbackTTL = "10m"
	cfg.Quiz.HistoryLimit = 50
	cfg.Quiz.DefaultAmount = 5
	cfg.Storage.Driver = "memory"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}
