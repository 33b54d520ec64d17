package database

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"litebridge/dberror"
)

// engineErrors counts bridged engine errors across every Database in the
// process.
var engineErrors = struct {
	total, busy, locked, corrupt atomic.Uint64

	mu     sync.Mutex
	byCode map[dberror.Code]uint64
}{byCode: make(map[dberror.Code]uint64)}

// classifySQLiteError reports whether err is a busy or locked failure. Bridged
// errors answer by code; anything else falls back to the driver message.
func classifySQLiteError(err error) (busy bool, locked bool) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, false
	}

	var bridged *dberror.Error
	if errors.As(err, &bridged) && bridged.Code != dberror.CodeError {
		return bridged.Code == dberror.CodeBusy, bridged.Code == dberror.CodeLocked
	}

	msg := strings.ToLower(err.Error())
	busy = strings.Contains(msg, "sqlite_busy") || strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy timeout")
	locked = strings.Contains(msg, "sqlite_locked") || strings.Contains(msg, "database table is locked")
	return busy, locked
}

func recordSQLiteError(err *dberror.Error) {
	engineErrors.total.Add(1)

	busy, locked := classifySQLiteError(err)
	if busy {
		engineErrors.busy.Add(1)
	}
	if locked {
		engineErrors.locked.Add(1)
	}
	if err.Code == dberror.CodeCorrupt || err.Code == dberror.CodeNotADatabase {
		engineErrors.corrupt.Add(1)
	}

	engineErrors.mu.Lock()
	engineErrors.byCode[err.Code]++
	engineErrors.mu.Unlock()
}

func SQLiteErrorsTotal() uint64        { return engineErrors.total.Load() }
func SQLiteBusyErrorsTotal() uint64    { return engineErrors.busy.Load() }
func SQLiteLockedErrorsTotal() uint64  { return engineErrors.locked.Load() }
func SQLiteCorruptErrorsTotal() uint64 { return engineErrors.corrupt.Load() }

// SQLiteErrorsByCode returns the error count per result code name.
func SQLiteErrorsByCode() map[string]uint64 {
	engineErrors.mu.Lock()
	defer engineErrors.mu.Unlock()
	out := make(map[string]uint64, len(engineErrors.byCode))
	for code, n := range engineErrors.byCode {
		out[code.String()] = n
	}
	return out
}
