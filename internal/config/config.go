package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	// Server configuration
	Port        int    `json:"port"`
	Environment string `json:"environment"`

	// MongoDB configuration
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`

	// Redis configuration
	RedisAddr     string        `json:"redis_addr"`
	RedisPassword string        `json:"redis_password"`
	RedisDB       int           `json:"redis_db"`
	RedisTTL      time.Duration `json:"redis_ttl"`

	// Collection names
	CitizenCollection           string `json:"mongo_citizen_collection"`
	AddressCollection           string `json:"mongo_address_collection"`
	MunicipalityCollection      string `json:"mongo_municipality_collection"`
	ServiceCollection           string `json:"mongo_service_collection"`
	ServiceRequestCollection    string `json:"mongo_service_request_collection"`
	CommunicationCollection     string `json:"mongo_communication_collection"`
	CommunicationLinkCollection string `json:"mongo_communication_link_collection"`
	CommunicationReadCollection string `json:"mongo_communication_read_collection"`
	IdentityCollection          string `json:"mongo_identity_collection"`
	CompensationLogCollection   string `json:"mongo_compensation_log_collection"`
	CounterCollection           string `json:"mongo_counter_collection"`

	// Session configuration
	JWTSecret  string        `json:"-"`
	SessionTTL time.Duration `json:"session_ttl"`

	// Tracing configuration
	TracingEnabled  bool   `json:"tracing_enabled"`
	TracingEndpoint string `json:"tracing_endpoint"`

	// Index maintenance
	IndexMaintenanceInterval time.Duration `json:"index_maintenance_interval"`
}

var (
	AppConfig *Config
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisTTL, err := time.ParseDuration(getEnvOrDefault("REDIS_TTL", "60m"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "24h"))
	if err != nil {
		return fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	indexInterval, err := time.ParseDuration(getEnvOrDefault("INDEX_MAINTENANCE_INTERVAL", "1h"))
	if err != nil {
		return fmt.Errorf("invalid INDEX_MAINTENANCE_INTERVAL: %w", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	AppConfig = &Config{
		// Server configuration
		Port:        port,
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		// MongoDB configuration
		MongoURI:      getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "municipe"),

		// Redis configuration
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		RedisTTL:      redisTTL,

		// Collection names
		CitizenCollection:           getEnvOrDefault("MONGODB_CITIZEN_COLLECTION", "citizens"),
		AddressCollection:           getEnvOrDefault("MONGODB_ADDRESS_COLLECTION", "citizen_addresses"),
		MunicipalityCollection:      getEnvOrDefault("MONGODB_MUNICIPALITY_COLLECTION", "municipalities"),
		ServiceCollection:           getEnvOrDefault("MONGODB_SERVICE_COLLECTION", "services"),
		ServiceRequestCollection:    getEnvOrDefault("MONGODB_SERVICE_REQUEST_COLLECTION", "service_requests"),
		CommunicationCollection:     getEnvOrDefault("MONGODB_COMMUNICATION_COLLECTION", "communications"),
		CommunicationLinkCollection: getEnvOrDefault("MONGODB_COMMUNICATION_LINK_COLLECTION", "communication_links"),
		CommunicationReadCollection: getEnvOrDefault("MONGODB_COMMUNICATION_READ_COLLECTION", "communication_reads"),
		IdentityCollection:          getEnvOrDefault("MONGODB_IDENTITY_COLLECTION", "auth_identities"),
		CompensationLogCollection:   getEnvOrDefault("MONGODB_COMPENSATION_LOG_COLLECTION", "compensation_log"),
		CounterCollection:           getEnvOrDefault("MONGODB_COUNTER_COLLECTION", "counters"),

		// Session configuration
		JWTSecret:  jwtSecret,
		SessionTTL: sessionTTL,

		// Tracing configuration
		TracingEnabled:  getEnvOrDefault("TRACING_ENABLED", "false") == "true",
		TracingEndpoint: getEnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),

		// Index maintenance
		IndexMaintenanceInterval: indexInterval,
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
