package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Collector CollectorConfig `yaml:"collector"`
	History   HistoryConfig   `yaml:"history"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Debug     bool            `yaml:"debug"`
}

type ServerConfig struct {
	Port          int    `yaml:"port"`
	Host          string `yaml:"host"`
	WebDir        string `yaml:"web_dir"`
	AccessKeyFile string `yaml:"access_key_file"`
}

type HeartbeatConfig struct {
	Interval    time.Duration `yaml:"interval"`
	PongTimeout time.Duration `yaml:"pong_timeout"`
}

type CollectorConfig struct {
	Interval      time.Duration `yaml:"interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	StreamBackoff time.Duration `yaml:"stream_backoff"`
	Interface     string        `yaml:"interface"`     // bandwidth interface; empty = auto-detect
	SpaceFSType   string        `yaml:"space_fs_type"` // filesystem type passed to df
	PgBouncerPort int           `yaml:"pgbouncer_port"`
}

type HistoryConfig struct {
	File         string        `yaml:"file"`
	TrimInterval time.Duration `yaml:"trim_interval"`
}

type TelemetryConfig struct {
	AuthLog  string        `yaml:"auth_log"`
	DisksTTL time.Duration `yaml:"disks_ttl"`
}

// Load reads the YAML config at path, applying defaults for any fields
// the file leaves unset. A missing file is an error; an empty file
// yields pure defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration, matching the daemon's
// historical defaults (port 3939, 1s collection cadence, 24h history).
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          3939,
			Host:          "0.0.0.0",
			WebDir:        "web",
			AccessKeyFile: ".access-key",
		},
		Heartbeat: HeartbeatConfig{
			Interval:    15 * time.Second,
			PongTimeout: 30 * time.Second,
		},
		Collector: CollectorConfig{
			Interval:      time.Second,
			ProbeTimeout:  10 * time.Second,
			StreamBackoff: 5 * time.Second,
			SpaceFSType:   "ext4",
			PgBouncerPort: 6432,
		},
		History: HistoryConfig{
			File:         "history.db",
			TrimInterval: 15 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			AuthLog:  "/var/log/auth.log",
			DisksTTL: time.Hour,
		},
	}
}
