package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", "tags.json")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
		config.Storage.Backend = BackendPostgres
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if tagsPath := v.GetString("TAGS_PATH"); tagsPath != "" {
		config.Storage.Path = tagsPath
	}

	return &config, nil
}
