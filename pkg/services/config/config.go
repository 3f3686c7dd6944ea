package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr        string `mapstructure:"server_addr"`
	DBPath            string `mapstructure:"db_path"`
	TargetDaysToClose int    `mapstructure:"target_days_to_close"`
	ComplianceURL     string `mapstructure:"compliance_url"`
	AnthropicModel    string `mapstructure:"anthropic_model"`
	SlackChannel      string `mapstructure:"slack_channel"`
	EscalationCron    string `mapstructure:"escalation_cron"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("db_path", "quality-atlas.db")
	v.SetDefault("target_days_to_close", 30)
	v.SetDefault("anthropic_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("escalation_cron", "0 8 * * *")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.TargetDaysToClose <= 0 {
		return nil, fmt.Errorf("target_days_to_close must be positive, got %d", cfg.TargetDaysToClose)
	}
	return &cfg, nil
}
