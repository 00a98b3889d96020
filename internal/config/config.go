package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Report    ReportConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type StoreConfig struct {
	File              string
	BackupDir         string
	ResetOnCorrupt    bool
	LowStockThreshold int
}

type ReportConfig struct {
	Dir string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("STORE_FILE", "inventory.json")
	viper.SetDefault("STORE_BACKUP_DIR", "backups")
	viper.SetDefault("STORE_RESET_ON_CORRUPT", false)
	viper.SetDefault("LOW_STOCK_THRESHOLD", 5)
	viper.SetDefault("REPORT_DIR", "reports")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	var origins []string
	for _, o := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Store: StoreConfig{
			File:              viper.GetString("STORE_FILE"),
			BackupDir:         viper.GetString("STORE_BACKUP_DIR"),
			ResetOnCorrupt:    viper.GetBool("STORE_RESET_ON_CORRUPT"),
			LowStockThreshold: viper.GetInt("LOW_STOCK_THRESHOLD"),
		},
		Report: ReportConfig{
			Dir: viper.GetString("REPORT_DIR"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: origins,
		},
	}
}
