package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Scheduling tunables default to the values
// the event has always run with; only infrastructure coordinates are
// strictly required.
type Config struct {
	Env               string        // application environment (e.g. "dev", "prod")
	Port              string        // HTTP port to listen on
	DBUser            string        // database username
	DBPass            string        // database password (optional)
	DBHost            string        // database host address
	DBPort            string        // database port number
	DBName            string        // database name
	JWTSecret         string        // secret used to sign operator JWTs
	AdminPasswordHash string        // bcrypt hash of the operator password
	TokenTTLDays      int           // operator token time-to-live in days
	AutoStopThreshold int           // waiting headcount at which intake closes
	AbsenceGrace      time.Duration // how long an absentee may stay before purge
	AbsenceInterval   time.Duration // absence monitor sweep period
	AutoStopInterval  time.Duration // admission controller check period
	RolloverDelay     time.Duration // countdown before a completed group resets
	AcceptPolicy      string        // staging commit policy: "visit" or "delete"
	PurgePolicy       string        // absentee purge policy: "delete" or "cancel"
}

// Load reads configuration from the environment, after loading a local
// .env file when one is present.  Required variables are enforced by
// must(); missing values cause the program to exit with a fatal log.
func Load() Config {
	// A missing .env is fine; on deployed instances everything comes in
	// through real environment variables.
	_ = godotenv.Load()

	return Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		DBUser:            must("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"),
		DBHost:            must("DB_HOST"),
		DBPort:            must("DB_PORT"),
		DBName:            must("DB_NAME"),
		JWTSecret:         must("JWT_SECRET"),
		AdminPasswordHash: must("ADMIN_PASSWORD_HASH"),
		TokenTTLDays:      envInt("TOKEN_TTL_DAYS", 7),
		AutoStopThreshold: envInt("AUTO_STOP_THRESHOLD", 40),
		AbsenceGrace:      envDur("ABSENCE_GRACE", 15*time.Minute),
		AbsenceInterval:   envDur("ABSENCE_SWEEP_INTERVAL", 30*time.Second),
		AutoStopInterval:  envDur("AUTO_STOP_INTERVAL", time.Minute),
		RolloverDelay:     envDur("ROLLOVER_DELAY", 30*time.Second),
		AcceptPolicy:      envStr("ACCEPT_POLICY", "visit"),
		PurgePolicy:       envStr("PURGE_POLICY", "cancel"),
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

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
