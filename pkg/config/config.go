package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Logging    LoggingConfig
	Store      StoreConfig
	Comparison ComparisonConfig
	Fetch      FetchConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	JWTSecret      string
	AllowedOrigins []string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string
	Format       string // json or text
	Output       string // stdout or stderr
	EnableCaller bool
}

// StoreConfig selects the backend of the ingestion store
type StoreConfig struct {
	Backend    string // "postgres" or "csv"
	CSVPath    string
	ExportPath string
}

// ComparisonConfig holds the defaults of the alignment run
type ComparisonConfig struct {
	ReferenceDevice string
	WindowSize      int
	StartTime       string
	Variables       string
	OutputPath      string
}

// FetchConfig controls pulling from upstream devices
type FetchConfig struct {
	// Interval of the background pull loop of the server; zero disables it
	Interval time.Duration
	Timeout  time.Duration
}

// Load reads configuration from an optional .env file and the environment
func Load() (*Config, error) {
	// A missing .env file is fine, variables may come from the environment
	_ = godotenv.Load()

	windowSize, err := getInt("WINDOW_SIZE", 5)
	if err != nil {
		return nil, err
	}
	maxConns, err := getInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	minConns, err := getInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, err
	}
	readTimeout, err := getDuration("SERVER_READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	fetchInterval, err := getDuration("FETCH_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := getDuration("FETCH_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	enableCaller, err := getBool("LOG_ENABLE_CALLER", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "5432"),
			User:     GetEnv("DB_USER", "airmaestro"),
			Password: GetEnv("DB_PASSWORD", "airmaestro"),
			DBName:   GetEnv("DB_NAME", "airmaestro"),
			SSLMode:  GetEnv("DB_SSLMODE", "disable"),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Server: ServerConfig{
			Port:           GetEnv("SERVER_PORT", "8059"),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			JWTSecret:      GetEnv("JWT_SECRET", ""),
			AllowedOrigins: getStringSlice("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		},
		Logging: LoggingConfig{
			Level:        GetEnv("LOG_LEVEL", "info"),
			Format:       GetEnv("LOG_FORMAT", "text"),
			Output:       GetEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: enableCaller,
		},
		Store: StoreConfig{
			Backend:    GetEnv("STORE_BACKEND", "postgres"),
			CSVPath:    GetEnv("STORE_CSV_PATH", "aranet4_data.csv"),
			ExportPath: GetEnv("STORE_EXPORT_PATH", ""),
		},
		Comparison: ComparisonConfig{
			ReferenceDevice: GetEnv("REFERENCE_DEVICE", "1"),
			WindowSize:      windowSize,
			StartTime:       GetEnv("START_TIME", ""),
			Variables:       GetEnv("VARIABLES", ""),
			OutputPath:      GetEnv("DIFFERENCE_OUTPUT", "sliding_difference_data.csv"),
		},
		Fetch: FetchConfig{
			Interval: fetchInterval,
			Timeout:  fetchTimeout,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "postgres":
	case "csv":
		if c.Store.CSVPath == "" {
			return fmt.Errorf("STORE_CSV_PATH is required for the csv backend")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %q (valid: postgres, csv)", c.Store.Backend)
	}

	if c.Comparison.WindowSize < 1 {
		return fmt.Errorf("WINDOW_SIZE must be at least 1")
	}

	if c.Fetch.Interval < 0 || c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_INTERVAL must not be negative and FETCH_TIMEOUT must be positive")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid LOG_FORMAT: %q (valid: json, text)", c.Logging.Format)
	}

	return nil
}

// DSN returns the lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ParseStartTime parses a start time lower bound.
// Accepted layouts are RFC3339 and "2006-01-02 15:04"; naive times are taken as UTC.
// An empty string yields the zero time, which excludes nothing.
func ParseStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid start time: %q (expected RFC3339 or YYYY-MM-DD HH:MM)", s)
}

// GetEnv returns the value of an environment variable or a default
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q (expected true/false or 1/0)", key, value)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
