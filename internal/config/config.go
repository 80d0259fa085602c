// Package config loads procscope settings from an optional YAML file
// with environment overrides applied on top.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultRefreshInterval = time.Second
	defaultHistoryInterval = time.Second
	defaultHistoryPoints   = 60
	defaultExitLogCapacity = 100

	envRefreshInterval = "PROCSCOPE_REFRESH_INTERVAL"
	envHistoryInterval = "PROCSCOPE_HISTORY_INTERVAL"
	envHistoryPoints   = "PROCSCOPE_HISTORY_POINTS"
	envExitLogCapacity = "PROCSCOPE_EXIT_LOG_CAPACITY"
	envLogFile         = "PROCSCOPE_LOG_FILE"
	envAuditDB         = "PROCSCOPE_AUDIT_DB"
	envAuditKeyFile    = "PROCSCOPE_AUDIT_KEY_FILE"
)

// Config aggregates the tunable settings of the telemetry core.
type Config struct {
	RefreshInterval time.Duration // table refresh cadence
	HistoryInterval time.Duration // minimum spacing between history points
	HistoryPoints   int           // points retained per series
	ExitLogCapacity int           // exit records retained in memory
	LogFile         string        // structured log destination, empty for stderr
	AuditDB         string        // encrypted exit audit database, empty disables the sink
	AuditKeyFile    string        // key file for the audit database
}

// Load builds a Config from an optional YAML file path plus
// environment overrides. When an audit database is configured without
// a key file, the key is kept beside the database.
func Load(path string) (Config, error) {
	cfg := Config{
		RefreshInterval: defaultRefreshInterval,
		HistoryInterval: defaultHistoryInterval,
		HistoryPoints:   defaultHistoryPoints,
		ExitLogCapacity: defaultExitLogCapacity,
	}

	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.AuditDB != "" && cfg.AuditKeyFile == "" {
		cfg.AuditKeyFile = cfg.AuditDB + ".key"
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type fileConfig struct {
	RefreshInterval string `yaml:"refresh_interval"`
	HistoryInterval string `yaml:"history_interval"`
	HistoryPoints   int    `yaml:"history_points"`
	ExitLogCapacity int    `yaml:"exit_log_capacity"`
	LogFile         string `yaml:"log_file"`
	AuditDB         string `yaml:"audit_db"`
	AuditKeyFile    string `yaml:"audit_key_file"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.RefreshInterval != "" {
		dur, err := parsePositiveDuration("refresh_interval", raw.RefreshInterval)
		if err != nil {
			return err
		}
		cfg.RefreshInterval = dur
	}
	if raw.HistoryInterval != "" {
		dur, err := parsePositiveDuration("history_interval", raw.HistoryInterval)
		if err != nil {
			return err
		}
		cfg.HistoryInterval = dur
	}
	if raw.HistoryPoints != 0 {
		cfg.HistoryPoints = raw.HistoryPoints
	}
	if raw.ExitLogCapacity != 0 {
		cfg.ExitLogCapacity = raw.ExitLogCapacity
	}
	if raw.LogFile != "" {
		cfg.LogFile = raw.LogFile
	}
	if raw.AuditDB != "" {
		cfg.AuditDB = raw.AuditDB
	}
	if raw.AuditKeyFile != "" {
		cfg.AuditKeyFile = raw.AuditKeyFile
	}
	return nil
}

func parsePositiveDuration(field, value string) (time.Duration, error) {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("%s must be > 0", field)
	}
	return dur, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envRefreshInterval); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.RefreshInterval = dur
		} else {
			log.Printf("invalid %s value %q, keeping %s", envRefreshInterval, v, cfg.RefreshInterval)
		}
	}
	if v := os.Getenv(envHistoryInterval); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.HistoryInterval = dur
		} else {
			log.Printf("invalid %s value %q, keeping %s", envHistoryInterval, v, cfg.HistoryInterval)
		}
	}
	if v := os.Getenv(envHistoryPoints); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryPoints = n
		} else {
			log.Printf("invalid %s value %q, keeping %d", envHistoryPoints, v, cfg.HistoryPoints)
		}
	}
	if v := os.Getenv(envExitLogCapacity); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ExitLogCapacity = n
		} else {
			log.Printf("invalid %s value %q, keeping %d", envExitLogCapacity, v, cfg.ExitLogCapacity)
		}
	}
	if v := os.Getenv(envLogFile); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv(envAuditDB); v != "" {
		cfg.AuditDB = v
	}
	if v := os.Getenv(envAuditKeyFile); v != "" {
		cfg.AuditKeyFile = v
	}
}

func (c Config) validate() error {
	if c.RefreshInterval <= 0 {
		return errors.New("refresh_interval must be > 0")
	}
	if c.HistoryInterval <= 0 {
		return errors.New("history_interval must be > 0")
	}
	if c.HistoryPoints < 1 {
		return errors.New("history_points must be >= 1")
	}
	if c.ExitLogCapacity < 1 {
		return errors.New("exit_log_capacity must be >= 1")
	}
	return nil
}
