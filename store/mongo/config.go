package mongo

import (
	"os"
	"strconv"
)

// Config parametrizes the Mongo-backed Store, analogous to
// store/postgres.Config. As with Postgres, configuration stays a narrow
// hand-rolled struct rather than a framework; see DESIGN.md.
type Config struct {
	// URI is a mongodb:// connection string.
	URI string
	// Database is the database name holding the consensus collections.
	Database string
	// MaxAppendRetries bounds how many times AppendEvent retries a
	// transaction that aborted on a transient transaction error.
	MaxAppendRetries int
}

const (
	envURI              = "SCABBARD_MONGO_URI"
	envDatabase         = "SCABBARD_MONGO_DATABASE"
	envMaxAppendRetries = "SCABBARD_MONGO_MAX_APPEND_RETRIES"
)

// DefaultConfig returns sane defaults for a locally-run Mongo replica set
// (transactions require a replica set, even a single-node one).
func DefaultConfig() Config {
	return Config{
		URI:              "mongodb://localhost:27017",
		Database:         "scabbard",
		MaxAppendRetries: 5,
	}
}

// ConfigFromEnv overlays DefaultConfig with SCABBARD_MONGO_* variables.
func ConfigFromEnv() Config {
	c := DefaultConfig()
	if v := os.Getenv(envURI); v != "" {
		c.URI = v
	}
	if v := os.Getenv(envDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(envMaxAppendRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAppendRetries = n
		}
	}
	return c
}
