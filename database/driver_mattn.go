//go:build cgo

package database

import (
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

func init() {
	drivers["mattn"] = sqliteDriver{name: "sqlite3", dsn: buildMattnDSN}
}
