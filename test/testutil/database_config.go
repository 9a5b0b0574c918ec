package testutil

import (
	"net/url"
	"os"

	"github.com/spf13/cast"
)

// DefaultPostgresImage is the container image used when no server is configured.
const DefaultPostgresImage = "postgres:18-alpine"

// DatabaseConfig holds configuration for the PostgreSQL integration tests.
type DatabaseConfig struct {
	URL            string
	Image          string
	MaxConnections int
	EnablePooling  bool
	KeepDatabases  bool
}

// GetDatabaseConfig reads database configuration from environment variables.
//
// RELQ_TEST_DATABASE_URL names an existing server and takes priority over
// DATABASE_URL, so relq's tests can target a different server than the
// application does. DATABASE_HOST and friends build a URL from parts. With
// none of them set, URL is empty and the tests start a container from Image
// (RELQ_TEST_PG_IMAGE, default DefaultPostgresImage).
//
// The database named by the URL is used as the admin database: each test
// creates its own database next to it and drops it afterwards unless
// RELQ_TEST_KEEP_DB is set.
func GetDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		Image:          getEnv("RELQ_TEST_PG_IMAGE", DefaultPostgresImage),
		MaxConnections: getEnvInt("DATABASE_MAX_CONNS", 20),
		EnablePooling:  getEnvBool("DATABASE_POOLING", true),
		KeepDatabases:  getEnvBool("RELQ_TEST_KEEP_DB", false),
	}

	switch {
	case os.Getenv("RELQ_TEST_DATABASE_URL") != "":
		cfg.URL = os.Getenv("RELQ_TEST_DATABASE_URL")
	case os.Getenv("DATABASE_URL") != "":
		cfg.URL = os.Getenv("DATABASE_URL")
	case os.Getenv("DATABASE_HOST") != "":
		cfg.URL = buildDatabaseURL(
			getEnv("DATABASE_USER", "postgres"),
			os.Getenv("DATABASE_PASSWORD"),
			os.Getenv("DATABASE_HOST"),
			getEnv("DATABASE_PORT", "5432"),
			getEnv("DATABASE_NAME", "postgres"),
			getEnv("DATABASE_SSLMODE", "prefer"),
		)
	default:
		// testcontainers
		cfg.MaxConnections = 0
	}
	return cfg
}

// buildDatabaseURL constructs a PostgreSQL connection string, escaping
// credentials.
func buildDatabaseURL(user, password, host, port, dbname, sslmode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(user),
		Host:     host + ":" + port,
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if i, err := cast.ToIntE(os.Getenv(key)); err == nil && i > 0 {
		return i
	}
	return fallback
}

// getEnvBool accepts anything strconv.ParseBool does; unparsable values fall
// back to the default.
func getEnvBool(key string, fallback bool) bool {
	if b, err := cast.ToBoolE(os.Getenv(key)); err == nil && os.Getenv(key) != "" {
		return b
	}
	return fallback
}
