package database

import (
	"fmt"
	"net/url"
	"strings"
)

type sqlitePoolConfig struct {
	maxOpenConns int
	maxIdleConns int
	maxIdleSec   int
	maxLifeSec   int
}

// sanitizeSQLitePoolConfig ensures maxOpenConns is at least 1, clamps
// maxIdleConns to [0, maxOpenConns] and forces the durations to be >= 0.
func sanitizeSQLitePoolConfig(cfg sqlitePoolConfig) sqlitePoolConfig {
	if cfg.maxOpenConns < 1 {
		cfg.maxOpenConns = 1
	}
	if cfg.maxIdleConns < 0 {
		cfg.maxIdleConns = 0
	}
	if cfg.maxIdleConns > cfg.maxOpenConns {
		cfg.maxIdleConns = cfg.maxOpenConns
	}
	if cfg.maxIdleSec < 0 {
		cfg.maxIdleSec = 0
	}
	if cfg.maxLifeSec < 0 {
		cfg.maxLifeSec = 0
	}
	return cfg
}

func poolConfig(opts Options) sqlitePoolConfig {
	return sanitizeSQLitePoolConfig(sqlitePoolConfig{
		maxOpenConns: opts.MaxOpenConns,
		maxIdleConns: opts.MaxIdleConns,
		maxIdleSec:   opts.ConnMaxIdleSec,
		maxLifeSec:   opts.ConnMaxLifeSec,
	})
}

// buildGlebarezDSN appends `_pragma` parameters understood by the pure-Go
// driver, preserving any query already present in dbPath.
func buildGlebarezDSN(dbPath string, opts Options) string {
	base, rawQuery, _ := strings.Cut(dbPath, "?")
	query, _ := url.ParseQuery(rawQuery)

	if opts.PragmasEnabled {
		if opts.BusyTimeoutMS > 0 {
			query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", opts.BusyTimeoutMS))
		}
		if journalMode := normalizeSQLiteJournalMode(opts.JournalMode); journalMode != "" {
			query.Add("_pragma", fmt.Sprintf("journal_mode(%s)", journalMode))
		}
		if synchronous := normalizeSQLiteSynchronous(opts.Synchronous); synchronous != "" {
			query.Add("_pragma", fmt.Sprintf("synchronous(%s)", synchronous))
		}
		if opts.ForeignKeys {
			query.Add("_pragma", "foreign_keys(1)")
		} else {
			query.Add("_pragma", "foreign_keys(0)")
		}
	}

	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}

// buildMattnDSN renders the same settings in the cgo driver's `file:` form.
func buildMattnDSN(dbPath string, opts Options) string {
	base, rawQuery, _ := strings.Cut(dbPath, "?")
	query, _ := url.ParseQuery(rawQuery)

	if opts.PragmasEnabled {
		if opts.BusyTimeoutMS > 0 {
			query.Set("_busy_timeout", fmt.Sprintf("%d", opts.BusyTimeoutMS))
		}
		if journalMode := normalizeSQLiteJournalMode(opts.JournalMode); journalMode != "" {
			query.Set("_journal_mode", journalMode)
		}
		if synchronous := normalizeSQLiteSynchronous(opts.Synchronous); synchronous != "" {
			query.Set("_synchronous", synchronous)
		}
		if opts.ForeignKeys {
			query.Set("_foreign_keys", "on")
		} else {
			query.Set("_foreign_keys", "off")
		}
	}

	if !strings.HasPrefix(base, "file:") {
		base = "file:" + base
	}
	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}

// normalizeSQLiteJournalMode returns the upper-cased journal mode, or "" if it is not one of
// WAL, DELETE, TRUNCATE, PERSIST, MEMORY, OFF.
func normalizeSQLiteJournalMode(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF":
		return value
	default:
		return ""
	}
}

// normalizeSQLiteSynchronous accepts OFF, NORMAL, FULL, EXTRA or 0-3.
func normalizeSQLiteSynchronous(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	switch value {
	case "OFF", "NORMAL", "FULL", "EXTRA":
		return value
	case "0", "1", "2", "3":
		return value
	default:
		return ""
	}
}
