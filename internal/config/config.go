package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Console bool   `yaml:"console"`
	ToFile  bool   `yaml:"to_file"`
	File    string `yaml:"file"`
	Caller  bool   `yaml:"caller"`
}

type AppConfig struct {
	PGNPath        string `yaml:"pgn_path"`
	StructuredPath string `yaml:"structured_path"`

	DisqualifiedPlayers []string `yaml:"disqualified_players"`
	ExcludedPlayers     []string `yaml:"excluded_players"`
	// IneligibleSuffix marks excluded players by name suffix in older exports.
	IneligibleSuffix string `yaml:"ineligible_suffix"`
	LabelOpenings    bool   `yaml:"label_openings"`

	RedisURL          string `yaml:"redis_url"`
	DatabaseURL       string `yaml:"database_url"`
	LeaderboardTTLSec int    `yaml:"leaderboard_ttl_sec"`

	MetricsFile string `yaml:"metrics_file"`
	MessagesDir string `yaml:"messages_dir"`

	Log LogConfig `yaml:"log"`
}

func defaults() *AppConfig {
	return &AppConfig{
		LeaderboardTTLSec: 7 * 24 * 3600,
		Log: LogConfig{
			Level:   "info",
			Format:  "legacy",
			Console: true,
			ToFile:  false,
			File:    filepath.Join("logs", "comeback.log"),
		},
	}
}

// Load reads configuration from the environment.
func Load() (*AppConfig, error) {
	cfg := defaults()
	applyEnv(cfg)
	return cfg, nil
}

// LoadFile reads a YAML file and then lets environment variables override it.
func LoadFile(path string) (*AppConfig, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyEnv(cfg)
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.PGNPath) == "" {
		return errors.New("PGN_PATH is required")
	}
	if c.LeaderboardTTLSec <= 0 {
		return errors.New("LEADERBOARD_TTL_SEC must be greater than 0")
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("PGN_PATH")); v != "" {
		cfg.PGNPath = v
	}
	if v := strings.TrimSpace(os.Getenv("STRUCTURED_PATH")); v != "" {
		cfg.StructuredPath = v
	}
	if v := strings.TrimSpace(os.Getenv("DISQUALIFIED_PLAYERS")); v != "" {
		cfg.DisqualifiedPlayers = SplitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("EXCLUDED_PLAYERS")); v != "" {
		cfg.ExcludedPlayers = SplitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("INELIGIBLE_SUFFIX")); v != "" {
		cfg.IneligibleSuffix = v
	}
	if v := strings.TrimSpace(os.Getenv("LABEL_OPENINGS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LabelOpenings = b
		}
	}

	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LEADERBOARD_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LeaderboardTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("METRICS_FILE")); v != "" {
		cfg.MetricsFile = v
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		cfg.MessagesDir = v
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Log.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_TO_CONSOLE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Console = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_TO_FILE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.ToFile = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_CALLER")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Caller = b
		}
	}
}

// SplitList splits a comma separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
