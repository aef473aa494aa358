package config

import (
	"log"

	"github.com/spf13/viper"
)

// Defaults are fallback request parameters shared by every connector; a
// request value always wins, then the configured default, and required
// parameters with neither are rejected.
type Defaults struct {
	SecretProjectID      string `mapstructure:"secret_project_id"`
	BQSecretID           string `mapstructure:"bq_secret_id"`
	DestinationProjectID string `mapstructure:"destination_project_id"`
	DestinationDataset   string `mapstructure:"destination_dataset"`
}

type DV360Config struct {
	SecretID         string `mapstructure:"secret_id"`
	MinRetryInterval int    `mapstructure:"min_retry_interval"`
	MaxRetryInterval int    `mapstructure:"max_retry_interval"`
	MaxRetryCount    int    `mapstructure:"max_retry_count"`
}

type PlatformConfig struct {
	SecretID string `mapstructure:"secret_id"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type Config struct {
	DatabaseURL string         `mapstructure:"database_url"`
	ServerPort  string         `mapstructure:"server_port"`
	JWTSecret   string         `mapstructure:"jwt_secret"`
	Timezone    string         `mapstructure:"timezone"`
	Defaults    Defaults       `mapstructure:"defaults"`
	DV360       DV360Config    `mapstructure:"dv360"`
	GoogleAds   PlatformConfig `mapstructure:"google_ads"`
	TikTok      PlatformConfig `mapstructure:"tiktok"`
	LinkedIn    PlatformConfig `mapstructure:"linkedin"`
	Webhook     WebhookConfig  `mapstructure:"webhook"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.Timezone == "" {
		config.Timezone = "America/Sao_Paulo"
	}
	if config.DV360.MinRetryInterval == 0 {
		config.DV360.MinRetryInterval = 30
	}
	if config.DV360.MaxRetryInterval == 0 {
		config.DV360.MaxRetryInterval = 60
	}
	if config.DV360.MaxRetryCount == 0 {
		config.DV360.MaxRetryCount = 10
	}

	if config.DatabaseURL == "" {
		log.Fatal("database_url must be set in the config file")
	}

	return &config
}
