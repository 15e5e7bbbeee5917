package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the base server configuration.
type Config struct {
	Host         string
	Port         string
	SQLiteDBPath string

	SSDPDiscoveryTimeoutMs int
	SSDPDiscoveryPasses    int
	SSDPPassIntervalMs     int
	DiscoveryBindIP        string
	RescanCronSpec         string
	StaticSpeakerIPs       []string

	WamTimeoutMs  int
	SpeakersFile  string
	EventsEnabled bool
	LockTimeoutMs int
}

// fileConfig is the optional YAML overlay, pointed at by WAM_HUB_CONFIG.
// Environment variables always win over file values.
type fileConfig struct {
	Host             string   `yaml:"host"`
	Port             string   `yaml:"port"`
	SQLiteDBPath     string   `yaml:"sqlite_db_path"`
	DiscoveryBindIP  string   `yaml:"discovery_bind_ip"`
	RescanCronSpec   string   `yaml:"rescan_cron"`
	StaticSpeakerIPs []string `yaml:"static_speaker_ips"`
	WamTimeoutMs     int      `yaml:"wam_timeout_ms"`
	SpeakersFile     string   `yaml:"speakers_file"`
	EventsEnabled    *bool    `yaml:"events_enabled"`
	DiscoveryPasses  int      `yaml:"discovery_passes"`
	DiscoveryTimeout int      `yaml:"discovery_timeout_ms"`
	PassIntervalMs   int      `yaml:"discovery_pass_interval_ms"`
	LockTimeoutMs    int      `yaml:"lock_timeout_ms"`
}

// Load reads configuration from the optional YAML file named by
// WAM_HUB_CONFIG, then overrides from environment variables.
func Load() (Config, error) {
	cfg := Config{
		Host:                   "0.0.0.0",
		Port:                   "9000",
		SQLiteDBPath:           "./data/wam-hub.db",
		SSDPDiscoveryTimeoutMs: 5000,
		SSDPDiscoveryPasses:    3,
		SSDPPassIntervalMs:     2000,
		RescanCronSpec:         "",
		WamTimeoutMs:           5000,
		SpeakersFile:           "",
		EventsEnabled:          true,
		LockTimeoutMs:          30000,
		StaticSpeakerIPs:       []string{},
	}

	if path := os.Getenv("WAM_HUB_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.Host = envString("HOST", cfg.Host)
	cfg.Port = envString("PORT", cfg.Port)
	cfg.SQLiteDBPath = envString("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.SSDPDiscoveryTimeoutMs = envInt("SSDP_DISCOVERY_TIMEOUT_MS", cfg.SSDPDiscoveryTimeoutMs)
	cfg.SSDPDiscoveryPasses = envInt("SSDP_DISCOVERY_PASSES", cfg.SSDPDiscoveryPasses)
	cfg.SSDPPassIntervalMs = envInt("SSDP_PASS_INTERVAL_MS", cfg.SSDPPassIntervalMs)
	cfg.DiscoveryBindIP = envString("WAM_DISCOVERY_BIND_IP", cfg.DiscoveryBindIP)
	cfg.RescanCronSpec = envString("RESCAN_CRON", cfg.RescanCronSpec)
	cfg.WamTimeoutMs = envInt("WAM_TIMEOUT_MS", cfg.WamTimeoutMs)
	cfg.SpeakersFile = envString("SPEAKERS_FILE", cfg.SpeakersFile)
	cfg.EventsEnabled = envBool("EVENTS_ENABLED", cfg.EventsEnabled)
	cfg.LockTimeoutMs = envInt("LOCK_TIMEOUT_MS", cfg.LockTimeoutMs)
	if ips := envCSV("STATIC_SPEAKER_IPS"); len(ips) > 0 {
		cfg.StaticSpeakerIPs = ips
	}

	if cfg.SSDPDiscoveryPasses < 1 {
		return Config{}, fmt.Errorf("SSDP_DISCOVERY_PASSES must be at least 1")
	}
	if cfg.WamTimeoutMs < 1 {
		return Config{}, fmt.Errorf("WAM_TIMEOUT_MS must be positive")
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Host != "" {
		cfg.Host = fc.Host
	}
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.SQLiteDBPath != "" {
		cfg.SQLiteDBPath = fc.SQLiteDBPath
	}
	if fc.DiscoveryBindIP != "" {
		cfg.DiscoveryBindIP = fc.DiscoveryBindIP
	}
	if fc.RescanCronSpec != "" {
		cfg.RescanCronSpec = fc.RescanCronSpec
	}
	if len(fc.StaticSpeakerIPs) > 0 {
		cfg.StaticSpeakerIPs = fc.StaticSpeakerIPs
	}
	if fc.WamTimeoutMs > 0 {
		cfg.WamTimeoutMs = fc.WamTimeoutMs
	}
	if fc.SpeakersFile != "" {
		cfg.SpeakersFile = fc.SpeakersFile
	}
	if fc.EventsEnabled != nil {
		cfg.EventsEnabled = *fc.EventsEnabled
	}
	if fc.DiscoveryPasses > 0 {
		cfg.SSDPDiscoveryPasses = fc.DiscoveryPasses
	}
	if fc.DiscoveryTimeout > 0 {
		cfg.SSDPDiscoveryTimeoutMs = fc.DiscoveryTimeout
	}
	if fc.PassIntervalMs > 0 {
		cfg.SSDPPassIntervalMs = fc.PassIntervalMs
	}
	if fc.LockTimeoutMs > 0 {
		cfg.LockTimeoutMs = fc.LockTimeoutMs
	}
	return nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true")
}

func envCSV(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return []string{}
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
