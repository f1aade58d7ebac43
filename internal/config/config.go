// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Upload struct {
		Path        string `mapstructure:"path"`
		MaxMemoryMB int64  `mapstructure:"max_memory_mb"`
	} `mapstructure:"upload"`
	Extraction struct {
		// MaxConcurrent bounds how many archives are unpacked at once.
		// Zero disables the bound.
		MaxConcurrent int64 `mapstructure:"max_concurrent"`
	} `mapstructure:"extraction"`
	Jobs struct {
		RetentionMinutes int `mapstructure:"retention_minutes"`
		PruneInterval    int `mapstructure:"prune_interval"`
	} `mapstructure:"jobs"`
	Watcher struct {
		Enabled    bool `mapstructure:"enabled"`
		DebounceMs int  `mapstructure:"debounce_ms"`
	} `mapstructure:"watcher"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")
	v.AddConfigPath(".")

	// --- Environment Variable Overrides ---
	// e.g., FILEBOX_UPLOAD_PATH will override the `upload.path` key.
	v.SetEnvPrefix("FILEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8000)
	v.SetDefault("database.path", "./folders.db")
	v.SetDefault("upload.path", "./uploads")
	v.SetDefault("upload.max_memory_mb", 32)
	v.SetDefault("extraction.max_concurrent", 4)
	v.SetDefault("jobs.retention_minutes", 60)
	v.SetDefault("jobs.prune_interval", 10)
	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.debounce_ms", 500)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
