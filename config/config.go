package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port              int `yaml:"port"`
	ReadTimeoutMS     int `yaml:"read_timeout_ms"`
	WriteTimeoutMS    int `yaml:"write_timeout_ms"`
	ShutdownTimeoutMS int `yaml:"shutdown_timeout_ms"`
}

// UpstreamConfig points at the leaderboard/trades data provider.
type UpstreamConfig struct {
	LeaderboardURL string `yaml:"leaderboard_url"`
	TradesURL      string `yaml:"trades_url"`
	TimeoutMS      int    `yaml:"timeout_ms"`
}

// LiveConfig controls the live trade feed cadence and bounds.
type LiveConfig struct {
	PollSeconds            int `yaml:"poll_seconds"`
	CountdownTickMS        int `yaml:"countdown_tick_ms"`
	WindowSize             int `yaml:"window_size"`
	TradeLimit             int `yaml:"trade_limit"`
	AnalysisTradeLimit     int `yaml:"analysis_trade_limit"`
	Candidates             int `yaml:"candidates"`
	RankingsRefreshMinutes int `yaml:"rankings_refresh_minutes"`
}

// DataConfig contains persistence-related settings.
type DataConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	DBPath string `yaml:"db_path"`
}

// RedisConfig is optional; an empty Addr disables redis-backed metrics.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level      string `yaml:"level"`
	Pretty     bool   `yaml:"pretty"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Config aggregates all app configuration knobs.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Live     LiveConfig     `yaml:"live"`
	Data     DataConfig     `yaml:"data"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads configuration from disk, falling back to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	configPath := path
	if configPath == "" {
		configPath = filepath.Join("config", "default.yaml")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: unable to read %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: unable to parse %s: %w", configPath, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns baseline configuration values.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:              8787,
			ReadTimeoutMS:     10000,
			WriteTimeoutMS:    10000,
			ShutdownTimeoutMS: 5000,
		},
		Upstream: UpstreamConfig{
			LeaderboardURL: "https://693ee85255fb0d5e85311330-api.poof.new/api/leaderboard?period=daily&category=all",
			TradesURL:      "https://693ee85255fb0d5e85311331-api.poof.new/api/trades",
			TimeoutMS:      15000,
		},
		Live: LiveConfig{
			PollSeconds:            30,
			CountdownTickMS:        1000,
			WindowSize:             250,
			TradeLimit:             50,
			AnalysisTradeLimit:     20,
			Candidates:             100,
			RankingsRefreshMinutes: 5,
		},
		Data: DataConfig{
			Driver: "sqlite",
			DBPath: "data/polytraders.db",
		},
		Log: LogConfig{
			Level:      "info",
			Pretty:     true,
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()

	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ReadTimeoutMS == 0 {
		c.Server.ReadTimeoutMS = def.Server.ReadTimeoutMS
	}
	if c.Server.WriteTimeoutMS == 0 {
		c.Server.WriteTimeoutMS = def.Server.WriteTimeoutMS
	}
	if c.Server.ShutdownTimeoutMS == 0 {
		c.Server.ShutdownTimeoutMS = def.Server.ShutdownTimeoutMS
	}

	if c.Upstream.LeaderboardURL == "" {
		c.Upstream.LeaderboardURL = def.Upstream.LeaderboardURL
	}
	if c.Upstream.TradesURL == "" {
		c.Upstream.TradesURL = def.Upstream.TradesURL
	}
	if c.Upstream.TimeoutMS == 0 {
		c.Upstream.TimeoutMS = def.Upstream.TimeoutMS
	}

	if c.Live.PollSeconds == 0 {
		c.Live.PollSeconds = def.Live.PollSeconds
	}
	if c.Live.CountdownTickMS == 0 {
		c.Live.CountdownTickMS = def.Live.CountdownTickMS
	}
	if c.Live.WindowSize == 0 {
		c.Live.WindowSize = def.Live.WindowSize
	}
	if c.Live.TradeLimit == 0 {
		c.Live.TradeLimit = def.Live.TradeLimit
	}
	if c.Live.AnalysisTradeLimit == 0 {
		c.Live.AnalysisTradeLimit = def.Live.AnalysisTradeLimit
	}
	if c.Live.Candidates == 0 {
		c.Live.Candidates = def.Live.Candidates
	}
	if c.Live.RankingsRefreshMinutes == 0 {
		c.Live.RankingsRefreshMinutes = def.Live.RankingsRefreshMinutes
	}

	if c.Data.Driver == "" {
		c.Data.Driver = def.Data.Driver
	}
	if c.Data.DBPath == "" {
		c.Data.DBPath = def.Data.DBPath
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = def.Log.MaxBackups
	}
}

// PollInterval is the delay between two live trade polls.
func (l LiveConfig) PollInterval() time.Duration {
	return time.Duration(l.PollSeconds) * time.Second
}

// CountdownTick is the period of the visible countdown.
func (l LiveConfig) CountdownTick() time.Duration {
	return time.Duration(l.CountdownTickMS) * time.Millisecond
}

// RankingsInterval is the delay between two leaderboard refreshes.
func (l LiveConfig) RankingsInterval() time.Duration {
	return time.Duration(l.RankingsRefreshMinutes) * time.Minute
}

// Timeout returns the upstream request timeout.
func (u UpstreamConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutMS) * time.Millisecond
}
