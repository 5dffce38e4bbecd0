package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Auth          AuthConfig          `json:"auth"`
	Certification CertificationConfig `json:"certification"`
	Evidence      EvidenceConfig      `json:"evidence"`
	Stats         StatsConfig         `json:"stats"`
	Logging       LoggingConfig       `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration. An empty Host selects
// the in-memory stores instead of Postgres.
type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"db_name"`
	SSLMode        string `json:"ssl_mode"`
	MaxConnections int    `json:"max_connections"`
	MaxIdleConns   int    `json:"max_idle_conns"`
}

// AuthConfig holds the token verification secret.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// CertificationConfig carries the credit formula constants. Coefficients
// are credits per hectare, keyed by project type; unset types fall back to
// built-in defaults.
type CertificationConfig struct {
	Coefficients         map[string]float64 `json:"coefficients"`
	EligibilityTolerance int                `json:"eligibility_tolerance"`
}

// EvidenceConfig selects the evidence content store. Driver is "memory" or
// "s3".
type EvidenceConfig struct {
	Driver          string `json:"driver"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// StatsConfig controls the background refresh of aggregate stats.
type StatsConfig struct {
	RefreshSchedule string `json:"refresh_schedule"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "carbon_registry",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret",
		},
		Evidence: EvidenceConfig{
			Driver: "memory",
		},
		Stats: StatsConfig{
			RefreshSchedule: "@every 1m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if tolerance := os.Getenv("ELIGIBILITY_TOLERANCE"); tolerance != "" {
		if t, err := strconv.Atoi(tolerance); err == nil {
			config.Certification.EligibilityTolerance = t
		}
	}
	if driver := os.Getenv("EVIDENCE_DRIVER"); driver != "" {
		config.Evidence.Driver = driver
	}
	if bucket := os.Getenv("EVIDENCE_BUCKET"); bucket != "" {
		config.Evidence.Bucket = bucket
	}
	if region := os.Getenv("EVIDENCE_REGION"); region != "" {
		config.Evidence.Region = region
	}
	if endpoint := os.Getenv("EVIDENCE_ENDPOINT"); endpoint != "" {
		config.Evidence.Endpoint = endpoint
	}
	if key := os.Getenv("EVIDENCE_ACCESS_KEY_ID"); key != "" {
		config.Evidence.AccessKeyID = key
	}
	if secret := os.Getenv("EVIDENCE_SECRET_ACCESS_KEY"); secret != "" {
		config.Evidence.SecretAccessKey = secret
	}
	if schedule := os.Getenv("STATS_REFRESH_SCHEDULE"); schedule != "" {
		config.Stats.RefreshSchedule = schedule
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
