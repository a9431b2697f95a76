package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = EnvLocal
	defaultConfigDir     = ".roundkeeper"
)

type Config struct {
	Env               string        `mapstructure:"app_env"`
	ServerAddress     string        `mapstructure:"server_address"`
	LogLevel          string        `mapstructure:"log_level"`
	ConfigDir         string        `mapstructure:"config_dir"`
	QueuePath         string        `mapstructure:"queue_path"`
	CachePath         string        `mapstructure:"cache_path"`
	MaxRetries        int           `mapstructure:"max_retries"`
	ProbeInterval     time.Duration `mapstructure:"probe_interval"`
	ReconnectDebounce time.Duration `mapstructure:"reconnect_debounce"`
	EnableTLS         bool          `mapstructure:"enable_tls"`
}

// MustLoad loads the client configuration from the environment, panicking on
// invalid values.
func MustLoad() *Config {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("failed to load .env file: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("PROBE_INTERVAL_SECONDS", 30)
	viper.SetDefault("RECONNECT_DEBOUNCE_MS", 1000)
	viper.SetDefault("ENABLE_TLS", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("failed to create config directory: %v\n", err)
	}

	config := &Config{
		Env:               viper.GetString("APP_ENV"),
		ServerAddress:     viper.GetString("SERVER_ADDRESS"),
		LogLevel:          viper.GetString("LOG_LEVEL"),
		ConfigDir:         configDir,
		QueuePath:         filepath.Join(configDir, "queue.db"),
		CachePath:         filepath.Join(configDir, "cache.db"),
		MaxRetries:        viper.GetInt("MAX_RETRIES"),
		ProbeInterval:     time.Duration(viper.GetInt("PROBE_INTERVAL_SECONDS")) * time.Second,
		ReconnectDebounce: time.Duration(viper.GetInt("RECONNECT_DEBOUNCE_MS")) * time.Millisecond,
		EnableTLS:         viper.GetBool("ENABLE_TLS"),
	}

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address must not be empty")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	return nil
}

// IsProd reports whether the prod environment is active.
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsLocal reports whether the local environment is active.
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
