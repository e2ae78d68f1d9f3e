// Package config reads the process configuration from environment
// variables, with defaults suitable for local development.
package config

import "os"

type Config struct {
	HTTPAddr    string
	DBPath      string
	RedisAddr   string
	Environment string

	// OTLPEndpoint is the OTel Collector gRPC endpoint.
	OTLPEndpoint string

	// FedaPay hosted checkout.
	FedaPayBaseURL string
	FedaPayAPIKey  string
	Currency       string

	// CallbackBaseURL is the storefront origin the provider redirects the
	// customer back to after payment.
	CallbackBaseURL string

	JWTSecret string
}

func Load() Config {
	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DBPath:          getEnv("DB_PATH", "luxecajou.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		Environment:     getEnv("APP_ENV", "local"),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		FedaPayBaseURL:  getEnv("FEDAPAY_BASE_URL", "https://sandbox-api.fedapay.com"),
		FedaPayAPIKey:   os.Getenv("FEDAPAY_API_KEY"),
		Currency:        getEnv("CURRENCY", "XOF"),
		CallbackBaseURL: getEnv("CALLBACK_BASE_URL", "http://localhost:3000"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
