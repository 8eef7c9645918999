package main

import (
	"fmt"
	"strings"
	"time"

	"geohunt/internal/repository"
	"geohunt/internal/service"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

type Config struct {
	Database repository.Config `yaml:"database"`
	Server   ServerConfig      `yaml:"server"`

	TelegramAuth TelegramAuthConfig `yaml:"telegramAuth"`
	MerchantAuth MerchantAuthConfig `yaml:"merchantAuth"`

	Hunt   HuntConfig `yaml:"hunt"`
	Admins []int64    `yaml:"admins"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `yaml:"telegramBotToken"`
	DebugMode        bool   `yaml:"debugMode"`
}

type MerchantAuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
}

type HuntConfig struct {
	GeofenceRadius float64 `yaml:"geofenceRadius"`
	// NotifyPrizes sends the prize QR to the participant's Telegram chat.
	NotifyPrizes bool `yaml:"notifyPrizes"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(configPath)
	viper.SetConfigType(configFormat)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("hunt.geofenceRadius", service.DefaultGeofenceRadius)
	viper.SetDefault("merchantAuth.issuer", "geohunt")
	viper.SetDefault("merchantAuth.tokenTTL", 30*24*time.Hour)
	viper.SetDefault("logLevel", "info")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.MerchantAuth.JWTSecret == "" {
		return nil, fmt.Errorf("merchantAuth.jwtSecret is required")
	}

	return &cfg, nil
}
