package dbmigrate

import (
	"errors"

	"github.com/orbitha/orbitha/internal/config"
)

var (
	ErrDirectURLRequired = errors.New("DATABASE_URL_DIRECT is required for DDL/migrations")
	ErrNoDatabaseURL     = errors.New("no database URL configured (set DATABASE_URL_DIRECT or DATABASE_URL)")
)

// SelectDatabaseURL picks the URL used for DDL.
// Priority: DIRECT > DATABASE_URL > POOLED (with warning).
// If requireDirect is true, only DATABASE_URL_DIRECT is accepted.
func SelectDatabaseURL(cfg *config.Config, requireDirect bool) (dbURL string, source string, warning string, err error) {
	if requireDirect {
		if cfg.DatabaseURLDirect == "" {
			return "", "", "", ErrDirectURLRequired
		}
		return cfg.DatabaseURLDirect, "DATABASE_URL_DIRECT", "", nil
	}

	if cfg.DatabaseURLDirect != "" {
		return cfg.DatabaseURLDirect, "DATABASE_URL_DIRECT", "", nil
	}
	if cfg.DatabaseURLRaw != "" {
		return cfg.DatabaseURLRaw, "DATABASE_URL", "", nil
	}
	if cfg.DatabaseURLPooled != "" {
		return cfg.DatabaseURLPooled, "DATABASE_URL_POOLED", "using pooled connection for DDL is not recommended; set DATABASE_URL_DIRECT", nil
	}

	return "", "", "", ErrNoDatabaseURL
}
