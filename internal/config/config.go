package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Capacity defaults apply to lazily created
// session rows; admins can correct individual sessions afterwards.
type Config struct {
	Env              string // application environment (e.g. "dev", "prod")
	Port             string // HTTP port to listen on
	DBUser           string // database username
	DBPass           string // database password (optional)
	DBHost           string // database host address
	DBPort           string // database port number
	DBName           string // database name
	JWTSecret        string // secret used to verify tokens from the auth service
	PaymentVerifyURL string // base URL of the payment gateway's confirm endpoint
	TimeZone         string // exam timezone for the registration cutoff
	MaxCapacity      int    // default overall seats per session
	FreeLimit        int    // default free-tier quota per session
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message; capacity settings
// fall back to the standard 300/150 split.
func Load() Config {
	return Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		JWTSecret:        must("JWT_SECRET"),
		PaymentVerifyURL: must("PAYMENT_VERIFY_URL"),
		TimeZone:         envStr("EXAM_TIMEZONE", "Asia/Bangkok"),
		MaxCapacity:      envInt("CAPACITY_MAX", 300),
		FreeLimit:        envInt("CAPACITY_FREE_LIMIT", 150),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
