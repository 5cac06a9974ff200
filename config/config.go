package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	apperr "estatescrapers/pkg/errors"

	"gopkg.in/yaml.v3"
)

// DBConfig holds the Postgres connection parameters
type DBConfig struct {
	Database string
	Host     string
	Port     int
	User     string
	Password string
}

// dbConfigFile mirrors the two-section layout of the database config file:
//
//	connection:
//	  database: scrapers
//	  host: localhost
//	  port: 5432
//	credentials:
//	  user: scraper
//	  password: secret
type dbConfigFile struct {
	Connection struct {
		Database string `yaml:"database"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
	} `yaml:"connection"`
	Credentials struct {
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"credentials"`
}

// Config represents the application configuration
type Config struct {
	// Postgres configuration
	DB DBConfig

	// Memcache configuration (empty disables the shared block cache)
	MemcacheAddr string

	// Redis publisher configuration (empty RedisAddr disables publishing)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Crawler configuration
	Concurrency        int
	PerHostConcurrency int
	RequestTimeout     time.Duration
	BatchSize          int
	ChromeBin          string

	// Environment
	Environment string

	// dbErr records why the database configuration could not be resolved,
	// so Validate can name the actual problem
	dbErr error
}

var requiredDBEnvVars = []string{
	"POSTGRES_DB",
	"POSTGRES_HOST",
	"POSTGRES_PORT",
	"POSTGRES_USER",
	"POSTGRES_PASSWORD",
}

// LoadConfig loads the configuration from environment variables with defaults.
// Database settings come from the POSTGRES_* variables when all five are set,
// otherwise from the yaml file at DB_CONFIG_FILE (default "db.yml").
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	concurrency, _ := strconv.Atoi(getEnv("CRAWL_CONCURRENCY", "16"))
	perHost, _ := strconv.Atoi(getEnv("CRAWL_PER_HOST_CONCURRENCY", "4"))
	timeoutSec, _ := strconv.Atoi(getEnv("REQUEST_TIMEOUT_SECONDS", "30"))
	batchSize, _ := strconv.Atoi(getEnv("BATCH_SIZE", "100"))

	cfg := &Config{
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "listings"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		Concurrency:          concurrency,
		PerHostConcurrency:   perHost,
		RequestTimeout:       time.Duration(timeoutSec) * time.Second,
		BatchSize:            batchSize,
		ChromeBin:            getEnv("CHROME_BIN", ""),
		Environment:          getEnv("SCRAPER_ENVIRONMENT", "development"),
	}

	cfg.DB, cfg.dbErr = loadDBConfig(getEnv("DB_CONFIG_FILE", "db.yml"))

	return cfg
}

// loadDBConfig resolves the database configuration. Environment variables
// take precedence over the config file, but only when all five are set.
func loadDBConfig(configPath string) (DBConfig, error) {
	if dbEnvVarsAvailable() {
		port, err := strconv.Atoi(os.Getenv("POSTGRES_PORT"))
		if err != nil {
			return DBConfig{}, apperr.NewConfiguration("invalid POSTGRES_PORT", err)
		}
		return DBConfig{
			Database: os.Getenv("POSTGRES_DB"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     port,
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
		}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return DBConfig{}, apperr.NewConfiguration(
			fmt.Sprintf("no database configuration: set %v or provide %s", requiredDBEnvVars, configPath), err)
	}

	var file dbConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return DBConfig{}, apperr.NewConfiguration("malformed database config file", err)
	}

	return DBConfig{
		Database: file.Connection.Database,
		Host:     file.Connection.Host,
		Port:     file.Connection.Port,
		User:     file.Credentials.User,
		Password: file.Credentials.Password,
	}, nil
}

func dbEnvVarsAvailable() bool {
	for _, key := range requiredDBEnvVars {
		if os.Getenv(key) == "" {
			return false
		}
	}
	return true
}

// Validate checks that the configuration can run a crawl
func (c *Config) Validate() error {
	if c.dbErr != nil {
		return c.dbErr
	}
	if c.DB.Database == "" || c.DB.Host == "" || c.DB.Port == 0 || c.DB.User == "" {
		return apperr.NewConfiguration(
			fmt.Sprintf("incomplete database configuration: set %v or provide a config file", requiredDBEnvVars), nil)
	}
	if c.Concurrency <= 0 {
		return apperr.NewConfiguration("CRAWL_CONCURRENCY must be positive", nil)
	}
	if c.PerHostConcurrency <= 0 {
		return apperr.NewConfiguration("CRAWL_PER_HOST_CONCURRENCY must be positive", nil)
	}
	if c.BatchSize <= 0 {
		return apperr.NewConfiguration("BATCH_SIZE must be positive", nil)
	}
	return nil
}

// DSN returns the Postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Database,
		getEnv("POSTGRES_SSLMODE", "disable"))
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
