// Package config provides configuration management for the ironhive agent.
// It supports loading configuration from environment variables, config
// files, and defaults, layered as: defaults -> default.json -> <RUN_MODE>.json
// overlay -> IRONHIVE_-prefixed environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for the ironhive agent.
type Config struct {
	Broker  BrokerConfig  `mapstructure:"broker"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BrokerConfig holds NATS broker connection configuration (spec.md §4.1, §6).
type BrokerConfig struct {
	Addrs                    []string `mapstructure:"addrs"`
	UserAndPassword          bool     `mapstructure:"userAndPassword"`
	Pass                     string   `mapstructure:"pass"`
	Token                    string   `mapstructure:"token"`
	NKey                     string   `mapstructure:"nkey"`
	CredentialsFile          string   `mapstructure:"credentialsFile"`
	RootCertificates         string   `mapstructure:"rootCertificates"`
	ClientCertificateCert    string   `mapstructure:"clientCertificateCert"`
	ClientCertificateKey     string   `mapstructure:"clientCertificateKey"`
	RequireTLS               bool     `mapstructure:"requireTls"`
	PingIntervalSeconds      int      `mapstructure:"pingInterval"`
	ConnectionTimeoutSeconds int      `mapstructure:"connectionTimeout"`
	SubscriptionCapacity     int      `mapstructure:"subscriptionCapacity"`
	ClientCapacity           int      `mapstructure:"clientCapacity"`
	ReadBufferCapacity       int      `mapstructure:"readBufferCapacity"`
	NoEcho                   bool     `mapstructure:"noEcho"`
	IgnoreDiscoveredServers  bool     `mapstructure:"ignoreDiscoveredServers"`
	RetainServersOrder       bool     `mapstructure:"retainServersOrder"`
}

// AgentConfig holds agent identity configuration.
type AgentConfig struct {
	ExePath string `mapstructure:"exePath"`
	AgentID string `mapstructure:"agentId"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// PingInterval returns the configured ping interval as a time.Duration.
func (b *BrokerConfig) PingInterval() time.Duration {
	if b.PingIntervalSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(b.PingIntervalSeconds) * time.Second
}

// ConnectionTimeout returns the configured connection timeout as a time.Duration.
func (b *BrokerConfig) ConnectionTimeout() time.Duration {
	if b.ConnectionTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(b.ConnectionTimeoutSeconds) * time.Second
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	v.SetDefault("broker.addrs", []string{"nats://127.0.0.1:4222"})
	v.SetDefault("broker.requireTls", false)
	v.SetDefault("broker.pingInterval", 120)
	v.SetDefault("broker.connectionTimeout", 5)
	v.SetDefault("broker.clientCapacity", 128)
	v.SetDefault("broker.noEcho", false)
	v.SetDefault("broker.ignoreDiscoveredServers", false)
	v.SetDefault("broker.retainServersOrder", false)

	v.SetDefault("agent.exePath", "")
	v.SetDefault("agent.agentId", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// detectDefaultLogFormat mirrors the teacher's "text in a terminal, json in
// production" heuristic.
func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if env := os.Getenv("IRONHIVE_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

// defaultConfigDir returns the platform config directory ("<proj>/").
func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "ironhive")
}

// Load reads configuration from the default locations.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default
// locations: default.json, then an optional <RUN_MODE>.json overlay file,
// then IRONHIVE_-prefixed environment variables.
func LoadWithPath(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigDir()
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("IRONHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("default")
	v.SetConfigType("json")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading default config: %w", err)
		}
	}

	if runMode := os.Getenv("RUN_MODE"); runMode != "" {
		overlay := viper.New()
		overlay.SetConfigName(runMode)
		overlay.SetConfigType("json")
		overlay.AddConfigPath(configPath)
		overlay.AddConfigPath(".")
		if err := overlay.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(overlay.AllSettings()); err != nil {
				return nil, fmt.Errorf("error merging %s overlay: %w", runMode, err)
			}
		} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading %s overlay config: %w", runMode, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// PrintEnv prints the resolved configuration as IRONHIVE_-prefixed
// environment variable assignments, one per line, matching what the `env`
// CLI subcommand exposes for operators to diff against a running agent.
func PrintEnv(cfg *Config, w io.Writer) error {
	lines := [][2]string{
		{"BROKER_ADDRS", strings.Join(cfg.Broker.Addrs, ",")},
		{"BROKER_REQUIRETLS", fmt.Sprintf("%t", cfg.Broker.RequireTLS)},
		{"BROKER_PINGINTERVAL", fmt.Sprintf("%d", cfg.Broker.PingIntervalSeconds)},
		{"BROKER_CONNECTIONTIMEOUT", fmt.Sprintf("%d", cfg.Broker.ConnectionTimeoutSeconds)},
		{"AGENT_AGENTID", cfg.Agent.AgentID},
		{"AGENT_EXEPATH", cfg.Agent.ExePath},
		{"LOGGING_LEVEL", cfg.Logging.Level},
		{"LOGGING_FORMAT", cfg.Logging.Format},
	}
	for _, kv := range lines {
		if _, err := fmt.Fprintf(w, "IRONHIVE_%s=%s\n", kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if len(cfg.Broker.Addrs) == 0 {
		errs = append(errs, "broker.addrs must contain at least one address")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text, console")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
