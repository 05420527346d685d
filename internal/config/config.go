// Package config loads service configuration: defaults first, then an
// optional YAML file, then TEAMCHAT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/teamchat/config.yaml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	Chat     ChatConfig     `koanf:"chat"`
	SMTP     SMTPConfig     `koanf:"smtp"`
}

type ServerConfig struct {
	Addr      string `koanf:"addr"`
	StaticDir string `koanf:"static_dir"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

type AuthConfig struct {
	CookieSecret string `koanf:"cookie_secret"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ChatConfig struct {
	// DedupWindow is the fuzzy-match window used to reconcile an
	// optimistic local message with its realtime echo.
	DedupWindow time.Duration `koanf:"dedup_window"`
	// SendRate and SendBurst bound per-session message sends.
	SendRate  float64 `koanf:"send_rate"`
	SendBurst int     `koanf:"send_burst"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			StaticDir: "static",
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "teamchat.db",
		},
		Auth: AuthConfig{
			CookieSecret: "change-me-in-production",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Chat: ChatConfig{
			DedupWindow: time.Second,
			SendRate:    5,
			SendBurst:   10,
		},
	}
}

// Load builds the configuration. path may be empty, in which case the
// default locations are tried; a missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("TEAMCHAT_", ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Chat.DedupWindow <= 0 {
		return fmt.Errorf("chat.dedup_window must be positive")
	}
	if c.Chat.SendRate <= 0 || c.Chat.SendBurst <= 0 {
		return fmt.Errorf("chat.send_rate and chat.send_burst must be positive")
	}
	return nil
}

// envKeyMappings maps TEAMCHAT_* variable names (prefix stripped,
// lowercased) to koanf key paths. Leaf keys contain underscores, so a
// plain separator replacement cannot recover the path.
var envKeyMappings = map[string]string{
	"server_addr":        "server.addr",
	"server_static_dir":  "server.static_dir",
	"database_driver":    "database.driver",
	"database_dsn":       "database.dsn",
	"auth_cookie_secret": "auth.cookie_secret",
	"log_level":          "log.level",
	"log_format":         "log.format",
	"chat_dedup_window":  "chat.dedup_window",
	"chat_send_rate":     "chat.send_rate",
	"chat_send_burst":    "chat.send_burst",
	"smtp_host":          "smtp.host",
	"smtp_port":          "smtp.port",
	"smtp_username":      "smtp.username",
	"smtp_password":      "smtp.password",
	"smtp_from":          "smtp.from",
}

// envTransform resolves TEAMCHAT_CHAT_DEDUP_WINDOW -> chat.dedup_window.
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "TEAMCHAT_"))
	if mapped, ok := envKeyMappings[key]; ok {
		return mapped
	}
	return strings.ReplaceAll(key, "_", ".")
}

func findConfigFile() string {
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
