// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml. Credentials are usually
// supplied through the environment rather than the file; required values are
// validated at the point of use so each missing one produces its own error.
type Config struct {
	Port    int `mapstructure:"port"`
	Backend struct {
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"backend"`
	Shopify struct {
		ShopURL     string `mapstructure:"shop_url"`
		AccessToken string `mapstructure:"access_token"`
	} `mapstructure:"shopify"`
	Webhook struct {
		URL       string `mapstructure:"url"`
		FileField string `mapstructure:"file_field"`
	} `mapstructure:"webhook"`
	Stream struct {
		Filter    bool `mapstructure:"filter"`
		Reconnect bool `mapstructure:"reconnect"`
	} `mapstructure:"stream"`
	PriceLogs struct {
		PollInterval int `mapstructure:"poll_interval"` // minutes, 0 disables polling
	} `mapstructure:"price_logs"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	// A local .env file is honored the same way the backend honors its own.
	_ = godotenv.Load()

	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "SHOPDASH_"
	// prefix. e.g., SHOPDASH_BACKEND_BASE_URL overrides `backend.base_url`.
	viper.SetEnvPrefix("SHOPDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The bare variable names the backend's own .env uses are accepted too.
	// Two spellings exist in the wild for the shop URL; the first non-empty
	// one wins.
	viper.BindEnv("backend.base_url", "SHOPDASH_BACKEND_BASE_URL", "BACKEND_BASE_URL")
	viper.BindEnv("shopify.shop_url", "SHOPDASH_SHOPIFY_SHOP_URL", "SHOPIFY_STORE_URL", "SHOP_URL")
	viper.BindEnv("shopify.access_token", "SHOPDASH_SHOPIFY_ACCESS_TOKEN", "SHOPIFY_ACCESS_TOKEN")
	viper.BindEnv("webhook.url", "SHOPDASH_WEBHOOK_URL", "N8N_WEBHOOK_URL")

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("webhook.file_field", "file")
	viper.SetDefault("stream.filter", false)
	viper.SetDefault("stream.reconnect", false)
	viper.SetDefault("price_logs.poll_interval", 0)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
