package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TemporalAddress   string
	TemporalNamespace string
	TaskQueue         string
	HealthAddr        string

	ChainGatewayURL    string
	OracleURL          string
	EvidenceServiceURL string

	PolicyBundlePath string

	MinCoverage int64
	MaxCoverage int64

	VerificationTimeout time.Duration
	PollInterval        time.Duration

	SweepInterval       time.Duration
	MarketInterval      time.Duration
	UtilizationInterval time.Duration
}

func FromEnv() Config {
	return Config{
		HTTPAddr:    envDefault("HTTP_ADDR", ":8080"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		RedisAddr:     envDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:         envDefault("TEMPORAL_TASK_QUEUE", "bioshield-adjudication"),
		HealthAddr:        envDefault("HEALTH_ADDR", ":8090"),

		ChainGatewayURL:    envDefault("CHAIN_GATEWAY_URL", "http://localhost:8091"),
		OracleURL:          envDefault("ORACLE_URL", "http://localhost:8092"),
		EvidenceServiceURL: envDefault("EVIDENCE_SERVICE_URL", "http://localhost:8093"),

		PolicyBundlePath: os.Getenv("POLICY_BUNDLE_PATH"),

		MinCoverage: envInt64("MIN_COVERAGE_AMOUNT", 1_000),
		MaxCoverage: envInt64("MAX_COVERAGE_AMOUNT", 10_000_000),

		VerificationTimeout: envDuration("VERIFICATION_TIMEOUT", 10*time.Minute),
		PollInterval:        envDuration("VERIFICATION_POLL_INTERVAL", 30*time.Second),

		SweepInterval:       envDuration("EXPIRY_SWEEP_INTERVAL", time.Hour),
		MarketInterval:      envDuration("MARKET_REFRESH_INTERVAL", 6*time.Hour),
		UtilizationInterval: envDuration("UTILIZATION_REFRESH_INTERVAL", 10*time.Minute),
	}
}

func envDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

func envInt(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
