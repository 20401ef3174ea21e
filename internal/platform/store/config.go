package store

import (
	"time"

	"ffiassembler/internal/platform/config"
)

// Relational drivers
const (
	DriverPG     = "pg"
	DriverSQLite = "sqlite"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string
	Driver  string

	PG     PGConfig
	SQLite SQLiteConfig
	CH     CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
	PingTimeout time.Duration
}

// SQLiteConfig configures the embedded database
// Path ":memory:" opens a private in-memory database
type SQLiteConfig struct {
	Path   string
	LogSQL bool
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	Role    string
}

// FromConfig reads FFI_STORE_* settings
func FromConfig(cfg config.Conf) Config {
	c := cfg.Prefix("FFI_STORE_")
	chURL := c.MayString("CH_URL", "")
	return Config{
		AppName: "ffiassembler",
		Driver:  c.MayEnum("DRIVER", DriverSQLite, DriverPG, DriverSQLite),
		PG: PGConfig{
			URL:         c.MayString("PG_URL", ""),
			MaxConns:    int32(c.MayInt("PG_MAX_CONNS", 8)),
			LogSQL:      c.MayBool("LOG_SQL", false),
			SlowQueryMs: c.MayInt("PG_SLOW_MS", 250),
			PingTimeout: c.MayDuration("PG_PING_TIMEOUT", 3*time.Second),
		},
		SQLite: SQLiteConfig{
			Path:   c.MayString("SQLITE_PATH", "ffiassembler.db"),
			LogSQL: c.MayBool("LOG_SQL", false),
		},
		CH: CHConfig{
			Enabled: chURL != "",
			URL:     chURL,
		},
	}
}
