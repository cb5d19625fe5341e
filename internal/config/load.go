package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration.
type Config struct {
	DatabaseURL        string
	MaxConcurrentTasks int
	PollInterval       time.Duration
	LogLevel           string
	LogFile            string
	HTTPAddr           string
}

// Load initializes the configuration from file and environment variables.
// Environment always wins over the config file.
func Load(cfgFile string) *Config {
	// explicit .env loading; missing file is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()

	// Bind the deployment's bare env names explicitly.
	viper.BindEnv("database_url", "DATABASE_URL")
	viper.BindEnv("max_concurrent_tasks", "MAX_CONCURRENT_TASKS")
	viper.BindEnv("scheduler_poll_interval_ms", "SCHEDULER_POLL_INTERVAL_MS")
	viper.BindEnv("log_level", "LOG_LEVEL")
	viper.BindEnv("log_file", "LOG_FILE")
	viper.BindEnv("http_addr", "HTTP_ADDR")

	viper.SetDefault("database_url", "./tasks.db")
	viper.SetDefault("max_concurrent_tasks", 3)
	viper.SetDefault("scheduler_poll_interval_ms", 500)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("http_addr", ":8080")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	return &Config{
		DatabaseURL:        viper.GetString("database_url"),
		MaxConcurrentTasks: viper.GetInt("max_concurrent_tasks"),
		PollInterval:       time.Duration(viper.GetInt("scheduler_poll_interval_ms")) * time.Millisecond,
		LogLevel:           viper.GetString("log_level"),
		LogFile:            viper.GetString("log_file"),
		HTTPAddr:           viper.GetString("http_addr"),
	}
}
