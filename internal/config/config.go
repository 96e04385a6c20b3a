package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server and client configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"db"`
	Log     LogConfig     `yaml:"log"`
	Auth    AuthConfig    `yaml:"auth"`
	Uploads UploadsConfig `yaml:"uploads"`
	Client  ClientConfig  `yaml:"client"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	JWTSecret         string `yaml:"jwt_secret"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
	RefreshTTLDays    int    `yaml:"refresh_ttl_days"`
}

type UploadsConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// ClientConfig configures the boardctl CLI.
type ClientConfig struct {
	BaseURL     string `yaml:"base_url"`
	SessionFile string `yaml:"session_file"`
}

// Load reads configuration from an optional .env file, an optional YAML
// file, and environment variables. Exported variables win over both files.
func Load() (Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load()

	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "kanban.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			JWTSecret:         "dev-secret",
			SessionTTLMinutes: 15,
			RefreshTTLDays:    7,
		},
		Uploads: UploadsConfig{
			Dir:       "uploads",
			MaxSizeMB: 10,
		},
		Client: ClientConfig{
			BaseURL:     "http://localhost:8080",
			SessionFile: defaultSessionFile(),
		},
	}

	if path := os.Getenv("KANBAN_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("KANBAN_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("KANBAN_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid KANBAN_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("KANBAN_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("KANBAN_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if secret := os.Getenv("KANBAN_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if dir := os.Getenv("KANBAN_UPLOAD_DIR"); dir != "" {
		cfg.Uploads.Dir = dir
	}
	if base := os.Getenv("KANBAN_BASE_URL"); base != "" {
		cfg.Client.BaseURL = base
	}
	if file := os.Getenv("KANBAN_SESSION_FILE"); file != "" {
		cfg.Client.SessionFile = file
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kanban-session.json"
	}
	return filepath.Join(home, ".kanban-session.json")
}
