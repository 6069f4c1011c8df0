// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the server runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short and long names of each environment
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	default:
		return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", value)
	}
}

// Catalog backends, kept in sync with the catalog package
const (
	BackendPostgres    = "postgres"
	BackendMeilisearch = "meilisearch"
	BackendFile        = "file"
)

var (
	collectionNameRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	ocrLanguageRegex    = regexp.MustCompile(`^[a-z_]+$`)
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string // Empty disables file logging
	LogRetentionWeeks int    // Number of weeks to keep log files
	MaxLogFileSize    int64  // Maximum log file size in bytes
	MaxRequestBody    int64  // Maximum request body size in bytes
	MaxHeaderSize     int64  // Maximum header size in bytes

	CatalogBackend      string
	DatabaseURL         string
	MeiliURL            string
	MeiliAPIKey         string
	CatalogDir          string
	MedicineCollection  string
	GenericCollection   string
	GenericThreshold    float64
	CatalogCache        bool     // Serve resolutions from the in-memory snapshot
	CatalogRefreshTimes []string // Daily "HH:MM" refresh times of the snapshot
	FetchTimeout        time.Duration

	OCRLanguages  []string
	UploadDir     string
	MaxUploadSize int64 // Maximum scan upload size in bytes
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            os.Getenv("LOG_DIR"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		CatalogBackend:      strings.ToLower(getEnvWithDefault("CATALOG_BACKEND", BackendFile)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MeiliURL:            os.Getenv("MEILI_URL"),
		MeiliAPIKey:         os.Getenv("MEILI_API_KEY"),
		CatalogDir:          getEnvWithDefault("CATALOG_DIR", "catalog-data"),
		MedicineCollection:  getEnvWithDefault("MEDICINE_COLLECTION", "medicines"),
		GenericCollection:   getEnvWithDefault("GENERIC_COLLECTION", "generic_med"),
		GenericThreshold:    getFloatEnvWithDefault("GENERIC_THRESHOLD", 0.5),
		CatalogCache:        getBoolEnvWithDefault("CATALOG_CACHE", true),
		CatalogRefreshTimes: getListEnvWithDefault("CATALOG_REFRESH_TIMES", ";", []string{"06:00", "18:00"}),
		FetchTimeout:        getDurationEnvWithDefault("FETCH_TIMEOUT", 30*time.Second),

		OCRLanguages:  getListEnvWithDefault("OCR_LANGUAGES", "+", []string{"eng"}),
		UploadDir:     getEnvWithDefault("UPLOAD_DIR", "uploads"),
		MaxUploadSize: getInt64EnvWithDefault("MAX_UPLOAD_SIZE", 10485760), // 10MB default
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateCatalogBackend(cfg); err != nil {
		return fmt.Errorf("invalid CATALOG_BACKEND: %w", err)
	}

	if err := validateCollectionName(cfg.MedicineCollection); err != nil {
		return fmt.Errorf("invalid MEDICINE_COLLECTION: %w", err)
	}

	if err := validateCollectionName(cfg.GenericCollection); err != nil {
		return fmt.Errorf("invalid GENERIC_COLLECTION: %w", err)
	}

	if err := validateThreshold(cfg.GenericThreshold); err != nil {
		return fmt.Errorf("invalid GENERIC_THRESHOLD: %w", err)
	}

	if err := validateRefreshTimes(cfg.CatalogRefreshTimes); err != nil {
		return fmt.Errorf("invalid CATALOG_REFRESH_TIMES: %w", err)
	}

	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("invalid FETCH_TIMEOUT: must be positive, got: %s", cfg.FetchTimeout)
	}

	if err := validateOCRLanguages(cfg.OCRLanguages); err != nil {
		return fmt.Errorf("invalid OCR_LANGUAGES: %w", err)
	}

	if strings.TrimSpace(cfg.UploadDir) == "" {
		return fmt.Errorf("invalid UPLOAD_DIR: cannot be empty")
	}

	if err := validateSizeLimit(cfg.MaxUploadSize, "MAX_UPLOAD_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// Loopback, private ranges and the container wildcard are accepted
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateCatalogBackend checks the backend name and the settings it requires
func validateCatalogBackend(cfg *Config) error {
	switch cfg.CatalogBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendMeilisearch:
		if cfg.MeiliURL == "" {
			return fmt.Errorf("MEILI_URL is required for the meilisearch backend")
		}
	case BackendFile:
		if cfg.CatalogDir == "" {
			return fmt.Errorf("CATALOG_DIR is required for the file backend")
		}
	default:
		return fmt.Errorf("must be one of: [%s %s %s], got: %s",
			BackendPostgres, BackendMeilisearch, BackendFile, cfg.CatalogBackend)
	}
	return nil
}

// validateCollectionName only accepts names safe to use as a table, index or file name
func validateCollectionName(name string) error {
	if !collectionNameRegex.MatchString(name) {
		return fmt.Errorf("collection names may only contain letters, digits, '-' and '_', got: %q", name)
	}
	return nil
}

// validateThreshold validates the GENERIC_THRESHOLD environment variable
func validateThreshold(threshold float64) error {
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("must be in (0, 1], got: %v", threshold)
	}
	return nil
}

// validateRefreshTimes checks every entry is a valid HH:MM time
func validateRefreshTimes(times []string) error {
	if len(times) == 0 {
		return fmt.Errorf("at least one refresh time is required")
	}
	for _, value := range times {
		if _, err := time.Parse("15:04", value); err != nil {
			return fmt.Errorf("%q is not a valid HH:MM time", value)
		}
	}
	return nil
}

// validateOCRLanguages checks the tesseract language codes
func validateOCRLanguages(languages []string) error {
	if len(languages) == 0 {
		return fmt.Errorf("at least one language is required")
	}
	for _, lang := range languages {
		if !ocrLanguageRegex.MatchString(lang) {
			return fmt.Errorf("%q is not a valid tesseract language code", lang)
		}
	}
	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnvWithDefault gets an environment variable as float64 with a default value.
// Unparsable values are kept as -1 so validation reports them.
func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return -1
		}
		return floatValue
	}
	return defaultValue
}

// getBoolEnvWithDefault gets an environment variable as bool with a default value
func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go durations ("45s") or plain seconds ("45")
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// getListEnvWithDefault splits an environment variable on sep, dropping empty items
func getListEnvWithDefault(key, sep string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, sep) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"CATALOG_BACKEND",
		"DATABASE_URL",
		"MEILI_URL",
		"MEILI_API_KEY",
		"CATALOG_DIR",
		"MEDICINE_COLLECTION",
		"GENERIC_COLLECTION",
		"GENERIC_THRESHOLD",
		"CATALOG_CACHE",
		"CATALOG_REFRESH_TIMES",
		"FETCH_TIMEOUT",
		"OCR_LANGUAGES",
		"UPLOAD_DIR",
		"MAX_UPLOAD_SIZE",
	}
}
