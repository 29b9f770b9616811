package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

const (
	defaultDBPath          = "./database.sqlite"
	defaultPort            = 3001
	defaultCacheTTLSeconds = 300

	envDBPath   = "PAPERSHELF_DB_PATH"
	envPort     = "PAPERSHELF_PORT"
	envLogLevel = "PAPERSHELF_LOG_LEVEL"
)

type Config struct {
	DBPath          string           `json:"db_path"`
	Port            int              `json:"port"`
	LogConfig       logger.LogConfig `json:"log_config"`
	CORSOrigins     []string         `json:"cors_origins"`
	CacheSize       int              `json:"cache_size"`
	CacheTTLSeconds int              `json:"cache_ttl_seconds"`
	Gzip            bool             `json:"gzip"`
	WriteIntervalMS int              `json:"write_interval_ms"`
}

// Load reads the JSON config at path. An empty path yields the defaults. A
// .env file in the working directory, if present, is loaded first and the
// PAPERSHELF_* variables override the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port out of range: %d", cfg.Port)
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("cache_size must not be negative")
	}
	if cfg.WriteIntervalMS < 0 {
		return nil, fmt.Errorf("write_interval_ms must not be negative")
	}
	if cfg.CacheTTLSeconds < 0 {
		return nil, fmt.Errorf("cache_ttl_seconds must not be negative")
	}
	// the cache is switched off with cache_size, not the ttl
	if cfg.CacheTTLSeconds == 0 {
		cfg.CacheTTLSeconds = defaultCacheTTLSeconds
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envPort, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogConfig.Level = v
	}
	return nil
}
