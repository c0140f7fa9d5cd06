package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Environment string `yaml:"environment"`
	Database    struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Privy struct {
		Host          string `yaml:"host"`
		AppID         string `yaml:"app_id"`
		KeyTTLMinutes int64  `yaml:"key_ttl_minutes"`
	} `yaml:"privy"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file and then
// applies environment-variable overrides, so Railway-style deployments
// can configure the service without editing the file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if config.Privy.AppID == "" {
		return nil, fmt.Errorf("privy app id is not configured")
	}

	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("PRIVY_APP_ID"); v != "" {
		c.Privy.AppID = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = ":" + v
	}
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.Privy.Host == "" {
		c.Privy.Host = "auth.privy.io"
	}
	if c.Privy.KeyTTLMinutes <= 0 {
		c.Privy.KeyTTLMinutes = 60
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8000"
	}
}
